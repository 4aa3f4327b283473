package repository

import (
	"context"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
)

// JobStore persists chat jobs and the FIFO queue of pending job ids.
// Each operation is atomic on its own key; there are no multi-key transactions.
type JobStore interface {
	// Get returns domain.ErrNotFound when no record exists.
	Get(ctx context.Context, id string) (*model.ChatJob, error)
	// Save replaces the whole record.
	Save(ctx context.Context, job *model.ChatJob) error
	// Delete removes the record; a missing record is not an error.
	Delete(ctx context.Context, id string) error
	Enqueue(ctx context.Context, id string) error
	// Dequeue atomically claims the oldest queued id.
	// It returns domain.ErrQueueEmpty when nothing is queued.
	Dequeue(ctx context.Context) (string, error)
	QueueLen(ctx context.Context) (int64, error)
	// Backend names the store implementation ("redis", "postgres").
	Backend() string
}

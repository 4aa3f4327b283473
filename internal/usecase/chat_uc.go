// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/repository"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/logging"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

type ChatUseCase interface {
	// Submit validates the turn, persists a pending job and enqueues it.
	// It never waits for processing.
	Submit(ctx context.Context, messages []model.Message, info model.CompanyInfo) (*model.ChatJob, error)
	// Status returns the current record verbatim.
	Status(ctx context.Context, id string) (*model.ChatJob, error)
	QueueDepth(ctx context.Context) (int64, error)
	Backend() string
}

type chatUC struct {
	store repository.JobStore
	log   *zerolog.Logger
	now   func() time.Time
	newID func() string
}

func NewChatUseCase(store repository.JobStore, logger *zerolog.Logger) *chatUC {
	return &chatUC{
		store: store,
		log:   logging.Component(logger, "chat_uc"),
		now:   time.Now,
		newID: func() string { return ulid.Make().String() },
	}
}

func (c *chatUC) Submit(ctx context.Context, messages []model.Message, info model.CompanyInfo) (*model.ChatJob, error) {
	job, err := model.NewChatJob(c.newID(), messages, info, c.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	if err := c.store.Enqueue(ctx, job.ID); err != nil {
		// The id is never returned, so the pending record is unreachable.
		// If the delete fails too, the store TTL removes it.
		if derr := c.store.Delete(context.WithoutCancel(ctx), job.ID); derr != nil {
			logging.With(logging.WithJobID(ctx, job.ID), c.log).Warn().Err(derr).Msg("cannot remove unqueued chat job")
		}
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	metrics.IncChatJobSubmitted()

	logging.With(logging.WithJobID(ctx, job.ID), c.log).Info().
		Int("messages", len(job.Messages)).
		Str("company", job.CompanyContext.CompanyName).
		Msg("chat job submitted")
	return job, nil
}

func (c *chatUC) Status(ctx context.Context, id string) (*model.ChatJob, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", domain.ErrInvalidArgument)
	}
	job, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (c *chatUC) QueueDepth(ctx context.Context) (int64, error) {
	return c.store.QueueLen(ctx)
}

func (c *chatUC) Backend() string { return c.store.Backend() }

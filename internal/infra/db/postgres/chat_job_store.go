package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.JobStore = (*JobStore)(nil)

// Schema creates the job and queue tables. Safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS chat_jobs (
  id         TEXT PRIMARY KEY,
  status     TEXT NOT NULL,
  record     JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_job_queue (
  seq    BIGSERIAL PRIMARY KEY,
  job_id TEXT NOT NULL
);`

// JobStore keeps the serialized job in chat_jobs.record and pending ids in
// chat_job_queue, claimed oldest-first with FOR UPDATE SKIP LOCKED so that
// concurrent workers never receive the same id.
type JobStore struct {
	pool *pgxpool.Pool
}

func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

func (s *JobStore) EnsureSchema(ctx context.Context) error {
	if _, err := execSQL(ctx, s.pool, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *JobStore) Backend() string { return "postgres" }

func (s *JobStore) Get(ctx context.Context, id string) (*model.ChatJob, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM chat_jobs WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select job: %w", err)
	}
	var job model.ChatJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func (s *JobStore) Save(ctx context.Context, job *model.ChatJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	updated := job.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	const q = `
INSERT INTO chat_jobs (id, status, record, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  record = EXCLUDED.record,
  updated_at = EXCLUDED.updated_at;`

	if _, err := execSQL(ctx, s.pool, q, job.ID, string(job.Status), raw, job.CreatedAt, updated); err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

func (s *JobStore) Delete(ctx context.Context, id string) error {
	if _, err := execSQL(ctx, s.pool, `DELETE FROM chat_jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

func (s *JobStore) Enqueue(ctx context.Context, id string) error {
	if _, err := execSQL(ctx, s.pool, `INSERT INTO chat_job_queue (job_id) VALUES ($1)`, id); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

func (s *JobStore) Dequeue(ctx context.Context) (string, error) {
	const q = `
DELETE FROM chat_job_queue
WHERE seq = (
  SELECT seq FROM chat_job_queue
  ORDER BY seq
  LIMIT 1
  FOR UPDATE SKIP LOCKED
)
RETURNING job_id;`

	var id string
	if err := s.pool.QueryRow(ctx, q).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrQueueEmpty
		}
		return "", fmt.Errorf("dequeue job: %w", err)
	}
	return id, nil
}

func (s *JobStore) QueueLen(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chat_job_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.JobStore = (*JobStore)(nil)

// JobStore keeps each job as a JSON string under "<prefix>:<id>" and the
// pending ids in a list: LPUSH to enqueue, RPOP to claim, so the oldest id
// is claimed first. RPOP is atomic, so each id is handed to one worker only.
type JobStore struct {
	client   RedisClient
	prefix   string
	queueKey string
	ttl      time.Duration
}

// NewJobStore builds the store. ttl <= 0 keeps records forever.
func NewJobStore(client RedisClient, prefix, queueKey string, ttl time.Duration) *JobStore {
	if prefix == "" {
		prefix = "chat"
	}
	if queueKey == "" {
		queueKey = prefix + ":queue"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &JobStore{client: client, prefix: prefix, queueKey: queueKey, ttl: ttl}
}

func (s *JobStore) jobKey(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

func (s *JobStore) Backend() string { return "redis" }

func (s *JobStore) Get(ctx context.Context, id string) (*model.ChatJob, error) {
	data, err := s.client.Get(ctx, s.jobKey(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis get job: %w", err)
	}

	var job model.ChatJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func (s *JobStore) Save(ctx context.Context, job *model.ChatJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if err := s.client.Set(ctx, s.jobKey(job.ID), data, s.ttl); err != nil {
		return fmt.Errorf("redis set job: %w", err)
	}
	return nil
}

func (s *JobStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.jobKey(id)); err != nil {
		return fmt.Errorf("redis delete job: %w", err)
	}
	return nil
}

func (s *JobStore) Enqueue(ctx context.Context, id string) error {
	if err := s.client.LPush(ctx, s.queueKey, id); err != nil {
		return fmt.Errorf("redis enqueue: %w", err)
	}
	return nil
}

func (s *JobStore) Dequeue(ctx context.Context) (string, error) {
	id, err := s.client.RPop(ctx, s.queueKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrQueueEmpty
		}
		return "", fmt.Errorf("redis dequeue: %w", err)
	}
	return id, nil
}

func (s *JobStore) QueueLen(ctx context.Context) (int64, error) {
	return s.client.LLen(ctx, s.queueKey)
}

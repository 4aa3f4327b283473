package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func newJob(t *testing.T, id string) *model.ChatJob {
	t.Helper()
	job, err := model.NewChatJob(id,
		[]model.Message{{ID: "m1", Role: model.RoleUser, Content: "Hi"}},
		model.CompanyInfo{CompanyName: "Acme", WebsiteURL: "acme.com"},
		time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, err)
	return job
}

func TestJobStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	s := NewJobStore(c, "chat", "chat:queue", time.Hour)

	job := newJob(t, "job-1")
	require.NoError(t, s.Save(ctx, job))

	assert.True(t, mr.Exists("chat:job-1"))
	assert.Equal(t, time.Hour, mr.TTL("chat:job-1"))

	got, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Equal(t, job.Messages, got.Messages)
	assert.Equal(t, job.CompanyContext, got.CompanyContext)
	assert.True(t, job.CreatedAt.Equal(got.CreatedAt))

	// whole-record replacement
	require.NoError(t, got.MarkProcessing(time.Now()))
	require.NoError(t, got.Complete("hello", time.Now()))
	require.NoError(t, s.Save(ctx, got))
	again, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, again.Status)
	assert.Equal(t, "hello", again.Result)
	assert.Empty(t, again.Error)
}

func TestJobStore_Delete(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	s := NewJobStore(c, "chat", "chat:queue", time.Hour)

	require.NoError(t, s.Save(ctx, newJob(t, "job-del")))
	require.NoError(t, s.Delete(ctx, "job-del"))
	assert.False(t, mr.Exists("chat:job-del"))
	_, err := s.Get(ctx, "job-del")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "never-saved"))
}

func TestJobStore_GetMissing(t *testing.T) {
	c, _ := newTestClient(t)
	s := NewJobStore(c, "chat", "", 0)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJobStore_WireFormat(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	s := NewJobStore(c, "chat", "chat:queue", 0)

	require.NoError(t, s.Save(ctx, newJob(t, "job-1")))
	raw, err := mr.Get("chat:job-1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"companyContext":{"companyName":"Acme","websiteUrl":"acme.com"}`)
	assert.Contains(t, raw, `"status":"pending"`)
	assert.NotContains(t, raw, `"result"`)
	assert.NotContains(t, raw, `"error"`)
	assert.Zero(t, mr.TTL("chat:job-1"))
}

func TestJobStore_QueueIsFIFO(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	s := NewJobStore(c, "chat", "chat:queue", 0)

	_, err := s.Dequeue(ctx)
	assert.ErrorIs(t, err, domain.ErrQueueEmpty)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Enqueue(ctx, id))
	}
	n, err := s.QueueLen(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	for _, want := range []string{"a", "b", "c"} {
		got, err := s.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = s.Dequeue(ctx)
	assert.ErrorIs(t, err, domain.ErrQueueEmpty)
}

func TestJobStore_ConcurrentDequeueClaimsOnce(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)
	s := NewJobStore(c, "chat", "chat:queue", 0)

	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, s.Enqueue(ctx, string(rune('A'+i))))
	}

	var (
		mu      sync.Mutex
		claimed = map[string]int{}
		wg      sync.WaitGroup
	)
	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				id, err := s.Dequeue(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				claimed[id]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, n)
	for id, times := range claimed {
		assert.Equal(t, 1, times, "id %s claimed more than once", id)
	}
}

func TestJobStore_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	s := NewJobStore(c, "chat", "chat:queue", 0)
	mr.Close()

	assert.Error(t, s.Save(ctx, newJob(t, "job-1")))
	_, err := s.Dequeue(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrQueueEmpty)
}

//go:build !integration

package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/adapter"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/repository"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/salespolicy"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/logging"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/adapters/ai"
	red "github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/redis"
)

// ---- Fakes ----

type fakeRetriever struct {
	mu       sync.Mutex
	snippets []adapter.Snippet
	err      error
	queries  []string
}

func (f *fakeRetriever) Name() string { return "fake" }
func (f *fakeRetriever) Search(ctx context.Context, q string) ([]adapter.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.snippets, f.err
}

type fakeGenerator struct {
	fn func(ctx context.Context, system string, history []adapter.Message) (adapter.Completion, error)
}

func (f *fakeGenerator) Name() string  { return "fake" }
func (f *fakeGenerator) Model() string { return "fake-model" }
func (f *fakeGenerator) Generate(ctx context.Context, system string, history []adapter.Message) (adapter.Completion, error) {
	return f.fn(ctx, system, history)
}

func reply(parts ...string) *fakeGenerator {
	return &fakeGenerator{fn: func(context.Context, string, []adapter.Message) (adapter.Completion, error) {
		return adapter.Completion{Parts: parts}, nil
	}}
}

type countingEstimator struct{ calls int }

func (c *countingEstimator) Estimate(string, string, []adapter.Message) int {
	c.calls++
	return 42
}

// failingSaves wraps a store and fails Save once status matches.
type failingSaves struct {
	repository.JobStore
	failOn model.JobStatus
}

func (f *failingSaves) Save(ctx context.Context, job *model.ChatJob) error {
	if job.Status == f.failOn {
		return errors.New("store unavailable")
	}
	return f.JobStore.Save(ctx, job)
}

// failingGets wraps a store and fails the first n Get calls.
type failingGets struct {
	repository.JobStore
	n int
}

func (f *failingGets) Get(ctx context.Context, id string) (*model.ChatJob, error) {
	if f.n > 0 {
		f.n--
		return nil, errors.New("connection reset")
	}
	return f.JobStore.Get(ctx, id)
}

// ---- Helpers ----

func newStore(t *testing.T) *red.JobStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return red.NewJobStore(red.Wrap(rdb), "chat", "chat:queue", time.Hour)
}

func submit(t *testing.T, store repository.JobStore, id string, msgs ...model.Message) {
	t.Helper()
	if len(msgs) == 0 {
		msgs = []model.Message{{Role: model.RoleUser, Content: "Hi"}}
	}
	job, err := model.NewChatJob(id, msgs, model.CompanyInfo{CompanyName: "Acme", WebsiteURL: "acme.com"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if err := store.Enqueue(context.Background(), id); err != nil {
		t.Fatal(err)
	}
}

func newProcessor(store repository.JobStore, r adapter.ContextRetriever, g adapter.ResponseGenerator) *ChatJobProcessor {
	return NewChatJobProcessor(store, r, g, nil, ProcessorConfig{
		IdleBackoff:  10 * time.Millisecond,
		ErrorBackoff: 50 * time.Millisecond,
		JobTimeout:   time.Second,
	}, logging.Nop())
}

func mustGet(t *testing.T, store repository.JobStore, id string) *model.ChatJob {
	t.Helper()
	job, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return job
}

// ---- Tests ----

func TestProcess_CompletesAndPersistsProcessingFirst(t *testing.T) {
	store := newStore(t)
	submit(t, store, "job-1")

	var seenDuringCall model.JobStatus
	gen := &fakeGenerator{fn: func(ctx context.Context, system string, history []adapter.Message) (adapter.Completion, error) {
		seenDuringCall = mustGet(t, store, "job-1").Status
		return adapter.Completion{Parts: []string{"Our pricing starts at $99/month"}}, nil
	}}
	ret := &fakeRetriever{snippets: []adapter.Snippet{{Content: "Acme sells anvils."}, {Content: "Pricing from $99."}}}
	p := newProcessor(store, ret, gen)

	if err := p.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if seenDuringCall != model.JobStatusProcessing {
		t.Errorf("status during provider call = %q, want processing", seenDuringCall)
	}
	job := mustGet(t, store, "job-1")
	if job.Status != model.JobStatusCompleted || job.Result != "Our pricing starts at $99/month" || job.Error != "" {
		t.Errorf("unexpected terminal record: %+v", job)
	}
}

func TestProcess_QueryContainsCompanyAndURL(t *testing.T) {
	store := newStore(t)
	submit(t, store, "job-q")
	ret := &fakeRetriever{}
	p := newProcessor(store, ret, reply("ok"))

	if err := p.ProcessNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(ret.queries) != 1 {
		t.Fatalf("retriever calls = %d", len(ret.queries))
	}
	q := ret.queries[0]
	if !strings.Contains(q, "Acme") || !strings.Contains(q, "acme.com") {
		t.Errorf("query %q must contain company name and url", q)
	}
}

func TestProcess_EmptySearchStillCompletes(t *testing.T) {
	store := newStore(t)
	submit(t, store, "job-e")

	var system string
	gen := &fakeGenerator{fn: func(_ context.Context, s string, _ []adapter.Message) (adapter.Completion, error) {
		system = s
		return adapter.Completion{Parts: []string{"Hello!"}}, nil
	}}
	p := newProcessor(store, &fakeRetriever{snippets: nil}, gen)
	if err := p.ProcessNext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if job := mustGet(t, store, "job-e"); job.Status != model.JobStatusCompleted {
		t.Fatalf("status = %s, error = %q", job.Status, job.Error)
	}
	if system != salespolicy.SystemPrompt("Acme", "") {
		t.Error("system prompt should embed an empty search context")
	}
}

func TestProcess_GeneratorErrorFailsWithMessage(t *testing.T) {
	store := newStore(t)
	submit(t, store, "job-f")
	gen := &fakeGenerator{fn: func(context.Context, string, []adapter.Message) (adapter.Completion, error) {
		return adapter.Completion{}, errors.New("provider exploded")
	}}
	p := newProcessor(store, &fakeRetriever{}, gen)

	if err := p.ProcessNext(context.Background()); err != nil {
		t.Fatalf("job failures must not surface as worker errors: %v", err)
	}
	job := mustGet(t, store, "job-f")
	if job.Status != model.JobStatusFailed || job.Error != "provider exploded" || job.Result != "" {
		t.Errorf("unexpected record: %+v", job)
	}
}

func TestProcess_RetrieverErrorFails(t *testing.T) {
	store := newStore(t)
	submit(t, store, "job-r")
	called := false
	gen := &fakeGenerator{fn: func(context.Context, string, []adapter.Message) (adapter.Completion, error) {
		called = true
		return adapter.Completion{Parts: []string{"x"}}, nil
	}}
	p := newProcessor(store, &fakeRetriever{err: errors.New("search quota exceeded")}, gen)

	_ = p.ProcessNext(context.Background())
	job := mustGet(t, store, "job-r")
	if job.Status != model.JobStatusFailed || job.Error != "search quota exceeded" {
		t.Errorf("unexpected record: %+v", job)
	}
	if called {
		t.Error("generator must not run after a failed search")
	}
}

func TestProcess_PanicBecomesFailure(t *testing.T) {
	store := newStore(t)
	submit(t, store, "job-p")
	gen := &fakeGenerator{fn: func(context.Context, string, []adapter.Message) (adapter.Completion, error) {
		panic("nil pointer somewhere")
	}}
	p := newProcessor(store, &fakeRetriever{}, gen)

	_ = p.ProcessNext(context.Background())
	job := mustGet(t, store, "job-p")
	if job.Status != model.JobStatusFailed || !strings.Contains(job.Error, "nil pointer somewhere") {
		t.Errorf("unexpected record: %+v", job)
	}
}

func TestProcess_EmptyReplyFails(t *testing.T) {
	store := newStore(t)
	submit(t, store, "job-empty")
	p := newProcessor(store, &fakeRetriever{}, reply("", " "))

	_ = p.ProcessNext(context.Background())
	job := mustGet(t, store, "job-empty")
	if job.Status != model.JobStatusFailed || job.Error != domain.ErrEmptyResult.Error() {
		t.Errorf("unexpected record: %+v", job)
	}
}

func TestProcess_FlattensPartsAndValidates(t *testing.T) {
	store := newStore(t)
	submit(t, store, "job-v")
	p := newProcessor(store, &fakeRetriever{}, reply("To schedule a demo,", "visit our website at example.com"))

	_ = p.ProcessNext(context.Background())
	if job := mustGet(t, store, "job-v"); job.Result != salespolicy.BookingResponse {
		t.Errorf("result = %q, want booking response", job.Result)
	}

	submit(t, store, "job-join")
	p = newProcessor(store, &fakeRetriever{}, reply("Hello", "there"))
	_ = p.ProcessNext(context.Background())
	if job := mustGet(t, store, "job-join"); job.Result != "Hello there" {
		t.Errorf("result = %q, want parts joined by a space", job.Result)
	}
}

func TestProcess_HistoryOrderAndRolesPreserved(t *testing.T) {
	store := newStore(t)
	submit(t, store, "job-h",
		model.Message{Role: model.RoleUser, Content: "one"},
		model.Message{Role: model.RoleAssistant, Content: "two"},
		model.Message{Role: model.RoleUser, Content: "three"},
	)
	var got []adapter.Message
	gen := &fakeGenerator{fn: func(_ context.Context, _ string, h []adapter.Message) (adapter.Completion, error) {
		got = h
		return adapter.Completion{Parts: []string{"ok"}}, nil
	}}
	est := &countingEstimator{}
	p := NewChatJobProcessor(store, &fakeRetriever{}, gen, est, ProcessorConfig{}, logging.Nop())
	_ = p.ProcessNext(context.Background())

	want := []string{"user:one", "assistant:two", "user:three"}
	if len(got) != len(want) {
		t.Fatalf("history len = %d", len(got))
	}
	for i, m := range got {
		if string(m.Role)+":"+m.Content != want[i] {
			t.Errorf("history[%d] = %s:%s, want %s", i, m.Role, m.Content, want[i])
		}
	}
	if est.calls != 1 {
		t.Errorf("estimator calls = %d", est.calls)
	}
}

func TestProcess_MissingRecordIsDropped(t *testing.T) {
	store := newStore(t)
	if err := store.Enqueue(context.Background(), "ghost"); err != nil {
		t.Fatal(err)
	}
	p := newProcessor(store, &fakeRetriever{}, reply("x"))
	if err := p.ProcessNext(context.Background()); err != nil {
		t.Fatalf("missing record should be dropped, got %v", err)
	}
	if _, err := store.Get(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("no record should be created, got %v", err)
	}
}

func TestProcess_UnreadableRecordIsRequeued(t *testing.T) {
	base := newStore(t)
	submit(t, base, "job-rq")
	store := &failingGets{JobStore: base, n: 1}
	p := newProcessor(store, &fakeRetriever{}, reply("recovered"))

	if err := p.ProcessNext(context.Background()); err == nil {
		t.Fatal("expected load error so the loop backs off")
	}
	if n, _ := base.QueueLen(context.Background()); n != 1 {
		t.Fatalf("queue length = %d, want the claimed id back on the queue", n)
	}
	if job := mustGet(t, base, "job-rq"); job.Status != model.JobStatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}

	if err := p.ProcessNext(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if job := mustGet(t, base, "job-rq"); job.Status != model.JobStatusCompleted || job.Result != "recovered" {
		t.Errorf("retried job = %+v", job)
	}
}

func TestProcess_ColdTokenEstimatorDoesNotDelayJob(t *testing.T) {
	store := newStore(t)
	submit(t, store, "job-est")
	p := NewChatJobProcessor(store, &fakeRetriever{}, reply("fast"), ai.NewTokenEstimator(), ProcessorConfig{
		JobTimeout: 200 * time.Millisecond,
	}, logging.Nop())

	done := make(chan error, 1)
	go func() { done <- p.ProcessNext(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ProcessNext: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("job blocked in prompt estimation")
	}
	if job := mustGet(t, store, "job-est"); job.Status != model.JobStatusCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
}

func TestProcess_TerminalJobIsNotReprocessed(t *testing.T) {
	store := newStore(t)
	submit(t, store, "job-dup")
	p := newProcessor(store, &fakeRetriever{}, reply("first"))
	_ = p.ProcessNext(context.Background())

	if err := store.Enqueue(context.Background(), "job-dup"); err != nil {
		t.Fatal(err)
	}
	p = newProcessor(store, &fakeRetriever{}, reply("second"))
	_ = p.ProcessNext(context.Background())

	if job := mustGet(t, store, "job-dup"); job.Result != "first" {
		t.Errorf("terminal job was overwritten: %+v", job)
	}
}

func TestProcess_TerminalPersistFailureLeavesProcessing(t *testing.T) {
	base := newStore(t)
	submit(t, base, "job-pf")
	store := &failingSaves{JobStore: base, failOn: model.JobStatusCompleted}
	p := newProcessor(store, &fakeRetriever{}, reply("done"))

	if err := p.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext: %v", err)
	}
	if job := mustGet(t, base, "job-pf"); job.Status != model.JobStatusProcessing {
		t.Errorf("status = %s, want last persisted state processing", job.Status)
	}
}

func TestProcessNext_EmptyQueue(t *testing.T) {
	p := newProcessor(newStore(t), &fakeRetriever{}, reply("x"))
	if err := p.ProcessNext(context.Background()); !errors.Is(err, domain.ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestBackoff_IdleVsError(t *testing.T) {
	p := newProcessor(newStore(t), &fakeRetriever{}, reply("x"))
	if got := p.backoff(domain.ErrQueueEmpty); got != 10*time.Millisecond {
		t.Errorf("idle backoff = %s", got)
	}
	if got := p.backoff(errors.New("redis down")); got != 50*time.Millisecond {
		t.Errorf("error backoff = %s", got)
	}

	d := NewChatJobProcessor(nil, nil, nil, nil, ProcessorConfig{}, logging.Nop())
	if d.cfg.IdleBackoff != time.Second || d.cfg.ErrorBackoff != 5*time.Second {
		t.Errorf("default backoffs = %s / %s", d.cfg.IdleBackoff, d.cfg.ErrorBackoff)
	}
}

func TestPool_DrainsQueueAndStops(t *testing.T) {
	store := newStore(t)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		submit(t, store, id)
	}
	p := newProcessor(store, &fakeRetriever{}, reply("ok"))
	pool := NewPool(3, p.Run, logging.Nop())
	pool.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		done := 0
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			if mustGet(t, store, id).Status == model.JobStatusCompleted {
				done++
			}
		}
		if done == 5 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pool.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if s := mustGet(t, store, id).Status; s != model.JobStatusCompleted {
			t.Errorf("job %s status = %s", id, s)
		}
	}
}

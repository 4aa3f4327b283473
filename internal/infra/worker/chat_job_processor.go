package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/adapter"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/repository"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/salespolicy"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/logging"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/metrics"
)

// Processing steps, in execution order.
const (
	StepQuery    = "query"
	StepSearch   = "search"
	StepPrompt   = "prompt"
	StepHistory  = "history"
	StepGenerate = "generate"
	StepValidate = "validate"
)

// StepError records which step failed. Its message is the underlying error
// message so the persisted job error is exactly what the step reported.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }

// PromptEstimator sizes a prompt before it is sent. Optional.
type PromptEstimator interface {
	Estimate(model, systemPrompt string, history []adapter.Message) int
}

type ProcessorConfig struct {
	IdleBackoff  time.Duration
	ErrorBackoff time.Duration
	JobTimeout   time.Duration
	// PersistTimeout bounds the terminal write, which runs detached from the
	// worker context.
	PersistTimeout time.Duration
}

// ChatJobProcessor claims queued chat jobs and drives each one from
// processing to a terminal state.
type ChatJobProcessor struct {
	store     repository.JobStore
	retriever adapter.ContextRetriever
	generator adapter.ResponseGenerator
	estimator PromptEstimator
	cfg       ProcessorConfig
	log       *zerolog.Logger
	now       func() time.Time
}

func NewChatJobProcessor(
	store repository.JobStore,
	retriever adapter.ContextRetriever,
	generator adapter.ResponseGenerator,
	estimator PromptEstimator,
	cfg ProcessorConfig,
	log *zerolog.Logger,
) *ChatJobProcessor {
	if cfg.IdleBackoff <= 0 {
		cfg.IdleBackoff = time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 5 * time.Second
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}
	return &ChatJobProcessor{
		store:     store,
		retriever: retriever,
		generator: generator,
		estimator: estimator,
		cfg:       cfg,
		log:       logging.Component(log, "chat_job_processor"),
		now:       time.Now,
	}
}

// Run pulls jobs until ctx is cancelled. It waits IdleBackoff when the queue
// is empty and ErrorBackoff after any other failure.
// This should be run in a goroutine.
func (p *ChatJobProcessor) Run(ctx context.Context, worker int) {
	log := p.log.With().Int("worker", worker).Logger()
	log.Info().Msg("chat job worker started")
	defer log.Info().Msg("chat job worker stopping")

	for ctx.Err() == nil {
		err := p.ProcessNext(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if !errors.Is(err, domain.ErrQueueEmpty) {
			log.Error().Err(err).Msg("chat job worker error")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.backoff(err)):
		}
	}
}

func (p *ChatJobProcessor) backoff(err error) time.Duration {
	if errors.Is(err, domain.ErrQueueEmpty) {
		return p.cfg.IdleBackoff
	}
	return p.cfg.ErrorBackoff
}

// ProcessNext claims one job and processes it. It returns domain.ErrQueueEmpty
// when nothing is queued and a non-nil error only for store failures; job
// failures are recorded on the job itself.
func (p *ChatJobProcessor) ProcessNext(ctx context.Context) error {
	id, err := p.store.Dequeue(ctx)
	if err != nil {
		return err
	}
	return p.Process(ctx, id)
}

// Process drives a claimed job id to a terminal state.
func (p *ChatJobProcessor) Process(ctx context.Context, id string) error {
	start := p.now()
	ctx = logging.WithJobID(ctx, id)
	log := logging.With(ctx, p.log)

	job, err := p.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Msg("claimed chat job has no record, dropping")
			metrics.IncChatJobFailedStep("load")
			return nil
		}
		p.requeue(log, id)
		return fmt.Errorf("load job %s: %w", id, err)
	}

	if err := job.MarkProcessing(p.now().UTC()); err != nil {
		log.Warn().Err(err).Str("status", string(job.Status)).Msg("claimed chat job is not pending, skipping")
		return nil
	}
	if err := p.store.Save(ctx, job); err != nil {
		p.finish(log, job, &StepError{Step: "persist", Err: err}, start)
		return fmt.Errorf("persist processing %s: %w", id, err)
	}
	log.Info().Msg("processing chat job")

	// In-flight generation is not cancelled by worker shutdown.
	jobCtx := context.WithoutCancel(ctx)
	if p.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, p.cfg.JobTimeout)
		defer cancel()
	}

	result, stepErr := p.run(jobCtx, log, job)
	if stepErr != nil {
		p.finish(log, job, stepErr, start)
		return nil
	}
	if err := job.Complete(result, p.now().UTC()); err != nil {
		p.finish(log, job, &StepError{Step: StepValidate, Err: err}, start)
		return nil
	}
	p.finish(log, job, nil, start)
	return nil
}

// requeue puts back a claimed id whose record could not be read, so the
// job is retried instead of staying pending with nothing queued.
func (p *ChatJobProcessor) requeue(log *zerolog.Logger, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PersistTimeout)
	defer cancel()
	if err := p.store.Enqueue(ctx, id); err != nil {
		metrics.IncChatJobLost()
		log.Error().Err(err).Msg("cannot requeue chat job, it stays pending")
		return
	}
	metrics.IncChatJobRequeued()
	log.Warn().Msg("chat job record unreadable, requeued")
}

// finish records the outcome and writes the terminal record once. A failed
// write leaves the job in its last persisted state.
func (p *ChatJobProcessor) finish(log *zerolog.Logger, job *model.ChatJob, stepErr *StepError, start time.Time) {
	if stepErr != nil {
		if err := job.Fail(stepErr.Error(), p.now().UTC()); err != nil {
			log.Error().Err(err).Msg("cannot mark chat job failed")
			return
		}
		metrics.IncChatJobFailedStep(stepErr.Step)
		log.Error().Err(stepErr.Err).Str("step", stepErr.Step).Msg("chat job failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PersistTimeout)
	defer cancel()
	if err := p.store.Save(ctx, job); err != nil {
		metrics.IncChatJobPersistFailure(string(job.Status))
		log.Error().Err(err).Str("status", string(job.Status)).Msg("failed to persist terminal chat job state")
	}

	elapsed := p.now().Sub(start)
	metrics.ObserveChatJob(string(job.Status), elapsed)
	log.Info().Str("status", string(job.Status)).Dur("duration", elapsed).Msg("chat job finished")
}

// run executes the six processing steps, stopping at the first failure.
func (p *ChatJobProcessor) run(ctx context.Context, log *zerolog.Logger, job *model.ChatJob) (result string, stepErr *StepError) {
	step := StepQuery
	defer func() {
		if r := recover(); r != nil {
			result, stepErr = "", &StepError{Step: step, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	query := salespolicy.SearchQuery(job.CompanyContext)
	if strings.TrimSpace(query) == "" {
		return "", &StepError{Step: step, Err: fmt.Errorf("%w: empty search query", domain.ErrInvalidArgument)}
	}

	step = StepSearch
	searchContext, err := p.search(ctx, log, query)
	if err != nil {
		return "", &StepError{Step: step, Err: err}
	}

	step = StepPrompt
	prompt := salespolicy.SystemPrompt(job.CompanyContext.CompanyName, searchContext)

	step = StepHistory
	history, err := toHistory(job.Messages)
	if err != nil {
		return "", &StepError{Step: step, Err: err}
	}

	step = StepGenerate
	text, err := p.generate(ctx, log, prompt, history)
	if err != nil {
		return "", &StepError{Step: step, Err: err}
	}

	step = StepValidate
	validated := salespolicy.ValidateResponse(text)
	if validated != text {
		log.Info().Msg("reply rewritten to booking response")
	}
	return validated, nil
}

func (p *ChatJobProcessor) search(ctx context.Context, log *zerolog.Logger, query string) (string, error) {
	defer logging.TraceDuration(log, "ChatJobProcessor.search")()

	start := time.Now()
	snippets, err := p.retriever.Search(ctx, query)
	latency := int(time.Since(start) / time.Millisecond)
	if err != nil {
		metrics.ObserveSearch(p.retriever.Name(), 0, latency, false)
		return "", err
	}
	metrics.ObserveSearch(p.retriever.Name(), len(snippets), latency, true)

	contents := make([]string, 0, len(snippets))
	for _, s := range snippets {
		contents = append(contents, s.Content)
	}
	log.Debug().Int("snippets", len(snippets)).Msg("company context retrieved")
	return salespolicy.JoinSnippets(contents), nil
}

func (p *ChatJobProcessor) generate(ctx context.Context, log *zerolog.Logger, prompt string, history []adapter.Message) (string, error) {
	defer logging.TraceDuration(log, "ChatJobProcessor.generate")()

	if p.estimator != nil {
		n := p.estimator.Estimate(p.generator.Model(), prompt, history)
		metrics.ObservePromptEstimate(p.generator.Model(), n)
		log.Debug().Int("prompt_tokens_est", n).Msg("prompt sized")
	}

	start := time.Now()
	out, err := p.generator.Generate(ctx, prompt, history)
	latency := int(time.Since(start) / time.Millisecond)
	if err != nil {
		metrics.ObserveGeneration(p.generator.Name(), p.generator.Model(), 0, 0, latency, false)
		return "", err
	}
	metrics.ObserveGeneration(p.generator.Name(), p.generator.Model(), out.Usage.PromptTokens, out.Usage.CompletionTokens, latency, true)

	text := out.Text()
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyResult
	}
	return text, nil
}

// toHistory preserves order and maps every role explicitly.
func toHistory(msgs []model.Message) ([]adapter.Message, error) {
	out := make([]adapter.Message, 0, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case model.RoleSystem, model.RoleUser, model.RoleAssistant:
			out = append(out, adapter.Message{Role: m.Role, Content: m.Content})
		default:
			return nil, fmt.Errorf("messages[%d]: %w: %q", i, domain.ErrUnknownRole, m.Role)
		}
	}
	return out, nil
}

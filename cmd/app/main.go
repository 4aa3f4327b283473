// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/config"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/adapter"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/repository"
	aiAdapters "github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/adapters/ai"
	searchAdapters "github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/adapters/search"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/api"
	pg "github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/db/postgres"
	infrahttp "github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/http"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/logging"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/metrics"
	red "github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/redis"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/sched"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/worker"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/usecase"
)

// Set via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

const (
	shutdownTimeout     = 30 * time.Second
	encodingWarmTimeout = 30 * time.Second
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, static providers when config is missing")
	role := flag.String("role", "all", "process role: all | api | worker")
	flag.Parse()

	runAPI, runWorker, err := roles(*role)
	if err != nil {
		log.Fatalf("flags: %v", err)
	}

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().Str("version", version).Str("commit", commit).Str("role", *role).Bool("dev", cfg.Runtime.Dev).Msg("starting")

	if cfg.Metrics.Enabled {
		metrics.MustRegister()
		metrics.SetBuildInfo(version, commit)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, runAPI, runWorker); err != nil {
		logger.Error().Err(err).Msg("exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("stopped")
}

func roles(role string) (apiOn, workerOn bool, err error) {
	switch role {
	case "all":
		return true, true, nil
	case "api":
		return true, false, nil
	case "worker":
		return false, true, nil
	default:
		return false, false, fmt.Errorf("unknown role %q", role)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, runAPI, runWorker bool) error {
	// ---- Store ----
	var (
		store       repository.JobStore
		redisClient *red.Client
	)
	if cfg.Redis.URL != "" {
		c, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer c.Close()
		redisClient = c
	}

	switch cfg.Store.Backend {
	case "postgres":
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		pgStore := pg.NewJobStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
		store = pgStore
	default:
		store = red.NewJobStore(redisClient, cfg.Store.KeyPrefix, cfg.Store.QueueKey, cfg.Store.TTL)
	}
	logger.Info().Str("backend", store.Backend()).Msg("job store ready")

	chat := usecase.NewChatUseCase(store, logger)

	// ---- Worker ----
	var pool *worker.Pool
	if runWorker && cfg.Worker.Enabled {
		generator, err := buildGenerator(ctx, cfg, logger)
		if err != nil {
			return err
		}
		retriever, err := buildRetriever(cfg, logger)
		if err != nil {
			return err
		}
		estimator := aiAdapters.NewTokenEstimator()
		go func() {
			warmCtx, cancel := context.WithTimeout(ctx, encodingWarmTimeout)
			defer cancel()
			if err := estimator.Warm(warmCtx, generator.Model()); err != nil {
				logger.Warn().Err(err).Str("model", generator.Model()).Msg("token encoding unavailable, estimating by length")
			}
		}()
		processor := worker.NewChatJobProcessor(
			store,
			retriever,
			aiAdapters.NewLimitedAI(generator, cfg.AI.ConcurrentLimit),
			estimator,
			worker.ProcessorConfig{
				IdleBackoff:  cfg.Worker.IdleBackoff,
				ErrorBackoff: cfg.Worker.ErrorBackoff,
				JobTimeout:   cfg.Worker.JobTimeout,
			},
			logger,
		)
		pool = worker.NewPool(cfg.Worker.Concurrency, processor.Run, logger)
		pool.Start(ctx)
	}

	// ---- Queue depth sampling ----
	if cfg.Metrics.Enabled {
		monitor := sched.NewQueueMonitor(cfg.Metrics.QueueInterval, chat, logger)
		go func() {
			if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn().Err(err).Msg("queue monitor stopped")
			}
		}()
	}

	// ---- HTTP ----
	var srv *infrahttp.Server
	srvErr := make(chan error, 1)
	if runAPI {
		var limiter api.Limiter
		if redisClient != nil && cfg.RateLimit.Requests > 0 {
			limiter = red.NewRateLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		} else {
			logger.Warn().Msg("rate limiting disabled")
		}
		opts := api.Options{
			RequestTimeout: cfg.HTTP.RequestTimeout,
			RateLimitKey:   red.SubmitKey,
		}
		if cfg.Metrics.Enabled {
			opts.MetricsPath = cfg.Metrics.Path
			opts.MetricsHandler = promhttp.Handler()
		}
		auth := api.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
		if !auth.Enabled() {
			logger.Warn().Msg("admin endpoints disabled: admin.jwt_secret not set")
		}

		srv = infrahttp.NewServer(cfg.HTTP, api.NewServer(chat, limiter, auth, opts, logger).Routes(), logger)
		go func() { srvErr <- srv.Start() }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-srvErr:
		if runErr != nil {
			logger.Error().Err(runErr).Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http shutdown")
		}
	}
	if pool != nil {
		if err := pool.Stop(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("workers did not drain before timeout")
		}
	}
	return runErr
}

func buildGenerator(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.ResponseGenerator, error) {
	dev := cfg.Runtime.Dev
	switch cfg.AI.Provider {
	case "openai":
		logger.Info().Str("provider", "openai").Str("model", cfg.AI.Model).Str("key", logging.Redact(cfg.AI.OpenAIKey, dev)).Msg("response generator")
		g, err := aiAdapters.NewOpenAIAdapter(aiAdapters.OpenAIOptions{
			APIKey:      cfg.AI.OpenAIKey,
			BaseURL:     cfg.AI.OpenAIBaseURL,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Streaming:   cfg.AI.Streaming,
			MaxRetries:  2,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		return g, nil
	case "gemini":
		logger.Info().Str("provider", "gemini").Str("model", cfg.AI.Model).Str("key", logging.Redact(cfg.AI.GeminiKey, dev)).Msg("response generator")
		g, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.Model, cfg.AI.Temperature, logger)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return g, nil
	default:
		logger.Warn().Msg("using static response generator")
		return aiAdapters.NewStaticAdapter(), nil
	}
}

func buildRetriever(cfg *config.Config, logger *zerolog.Logger) (adapter.ContextRetriever, error) {
	switch cfg.Search.Provider {
	case "tavily":
		logger.Info().Str("provider", "tavily").Str("key", logging.Redact(cfg.Search.TavilyKey, cfg.Runtime.Dev)).Msg("context retriever")
		r, err := searchAdapters.NewTavilyRetriever(cfg.Search.TavilyKey, cfg.Search.TavilyURL, cfg.Search.MaxResults, cfg.Search.Timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("tavily: %w", err)
		}
		return r, nil
	default:
		logger.Warn().Msg("using static context retriever")
		return searchAdapters.NewStaticRetriever(), nil
	}
}

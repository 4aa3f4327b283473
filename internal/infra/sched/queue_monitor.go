package sched

import (
	"context"
	"time"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// QueueSource reports the number of queued chat jobs.
type QueueSource interface {
	QueueDepth(ctx context.Context) (int64, error)
	Backend() string
}

// QueueMonitor periodically samples the pending queue length into the
// queue depth gauge.
type QueueMonitor struct {
	interval time.Duration
	src      QueueSource
	log      *zerolog.Logger
}

func NewQueueMonitor(interval time.Duration, src QueueSource, logger *zerolog.Logger) *QueueMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	monLog := logger.With().Str("component", "QueueMonitor").Logger()
	return &QueueMonitor{
		interval: interval,
		src:      src,
		log:      &monLog,
	}
}

func (m *QueueMonitor) Run(ctx context.Context) error {
	m.log.Info().Dur("interval", m.interval).Msg("Starting queue monitor")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sample(ctx)
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("Stopping queue monitor")
			return ctx.Err()
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *QueueMonitor) sample(ctx context.Context) {
	n, err := m.src.QueueDepth(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Error().Err(err).Msg("queue monitor error")
		}
		return
	}
	metrics.SetQueueDepth(m.src.Backend(), n)
	if n > 0 {
		m.log.Debug().Int64("pending", n).Msg("queue sampled")
	}
}

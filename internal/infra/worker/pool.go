// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Loop is a long-running worker body. It must return once ctx is done.
type Loop func(ctx context.Context, worker int)

// Pool runs n copies of a Loop and stops them together.
type Pool struct {
	wg     sync.WaitGroup
	n      int
	loop   Loop
	cancel context.CancelFunc
	log    *zerolog.Logger
}

func NewPool(workers int, loop Loop, log *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{n: workers, loop: loop, log: log}
}

func (p *Pool) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.log.Info().Int("workers", p.n).Msg("worker pool started")
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.loop(ctx, id)
		}(i)
	}
}

// Stop cancels every loop and waits for them, or for ctx to end first.
func (p *Pool) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.log.Info().Msg("worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

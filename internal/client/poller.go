package client

import (
	"context"
	"errors"
	"time"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
)

type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeTimeout   OutcomeKind = "timeout"
)

// TimeoutMessage is reported when the job is still running at the deadline.
const TimeoutMessage = "Request timed out. Please try again."

const defaultFailure = "Failed to process message"

// Outcome is the result of waiting on one job. Text is set for completed
// jobs, Message for failed and timed out ones.
type Outcome struct {
	Kind    OutcomeKind
	Text    string
	Message string
}

// StatusFetcher is satisfied by *Client.
type StatusFetcher interface {
	Status(ctx context.Context, id string) (*model.ChatJob, error)
}

// Poller checks a job at a fixed interval until it is terminal or the
// timeout elapses. The timeout is local: the server keeps processing.
type Poller struct {
	api      StatusFetcher
	Interval time.Duration
	Timeout  time.Duration
}

func NewPoller(api StatusFetcher) *Poller {
	return &Poller{api: api, Interval: time.Second, Timeout: 30 * time.Second}
}

// Wait returns a non-nil error only when ctx is cancelled. Poll failures are
// reported as a failed Outcome.
func (p *Poller) Wait(ctx context.Context, id string) (Outcome, error) {
	deadline := time.Now().Add(p.Timeout)
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
			return Outcome{Kind: OutcomeTimeout, Message: TimeoutMessage}, nil
		case <-ticker.C:
		}

		job, err := p.api.Status(waitCtx, id)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) || waitCtx.Err() != nil {
				return Outcome{Kind: OutcomeTimeout, Message: TimeoutMessage}, nil
			}
			return Outcome{Kind: OutcomeFailed, Message: err.Error()}, nil
		}

		switch job.Status {
		case model.JobStatusCompleted:
			return Outcome{Kind: OutcomeCompleted, Text: job.Result}, nil
		case model.JobStatusFailed:
			msg := job.Error
			if msg == "" {
				msg = defaultFailure
			}
			return Outcome{Kind: OutcomeFailed, Message: msg}, nil
		}
	}
}

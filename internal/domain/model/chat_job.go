package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ChatJob is the persisted record of one chat turn being processed.
// It is always written as a whole; the store never sees partial updates.
type ChatJob struct {
	ID             string      `json:"id"`
	Messages       []Message   `json:"messages"`
	CompanyContext CompanyInfo `json:"companyContext"`
	Status         JobStatus   `json:"status"`
	Result         string      `json:"result,omitempty"`
	Error          string      `json:"error,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt,omitempty"`
}

// NewChatJob validates the submission and returns a pending job.
func NewChatJob(id string, messages []Message, info CompanyInfo, now time.Time) (*ChatJob, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: job id is required", domain.ErrInvalidArgument)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: messages are required", domain.ErrInvalidArgument)
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	history := make([]Message, len(messages))
	for i, m := range messages {
		r, err := ParseRole(string(m.Role))
		if err != nil {
			return nil, fmt.Errorf("%w: messages[%d]: %v", domain.ErrInvalidArgument, i, err)
		}
		m.Role = r
		history[i] = m
	}
	return &ChatJob{
		ID:             id,
		Messages:       history,
		CompanyContext: info,
		Status:         JobStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// MarkProcessing moves a pending job into processing.
func (j *ChatJob) MarkProcessing(now time.Time) error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, j.Status, JobStatusProcessing)
	}
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	return nil
}

// Complete records the validated reply. Only a processing job can complete.
func (j *ChatJob) Complete(result string, now time.Time) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, j.Status, JobStatusCompleted)
	}
	if strings.TrimSpace(result) == "" {
		return domain.ErrEmptyResult
	}
	j.Status = JobStatusCompleted
	j.Result = result
	j.Error = ""
	j.UpdatedAt = now
	return nil
}

// Fail records the failure message. Pending jobs may fail directly when the
// claim itself cannot be persisted.
func (j *ChatJob) Fail(msg string, now time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, j.Status, JobStatusFailed)
	}
	if strings.TrimSpace(msg) == "" {
		msg = "unknown error occurred"
	}
	j.Status = JobStatusFailed
	j.Error = msg
	j.Result = ""
	j.UpdatedAt = now
	return nil
}

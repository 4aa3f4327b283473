package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrQueueEmpty        = errors.New("queue empty")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrUnknownRole       = errors.New("unknown message role")
	ErrEmptyResult       = errors.New("empty generated response")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

package domain

import "errors"

var (
	// Common domain errors
	ErrJobNotFound     = errors.New("job not found")
	ErrJobTerminal     = errors.New("job already reached a terminal state")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrQueueFull       = errors.New("worker queue full")
)

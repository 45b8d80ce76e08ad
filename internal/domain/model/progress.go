package model

import (
	"fmt"
	"hash/fnv"
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one invocation of the generation pipeline.
type Job struct {
	ID        string
	CreatedAt time.Time
}

// ProgressState is the latest known progress of a job. It is a value object:
// the store overwrites whole states, nothing mutates one in place.
type ProgressState struct {
	Status       JobStatus
	Progress     float64 // percentage, 0..100
	Phase        string
	OutputRef    string // set only when Status == succeeded
	ErrorCode    string // set only when Status == failed
	ErrorMessage string
}

// Terminal reports whether the state can never be overwritten again.
func (s ProgressState) Terminal() bool {
	return s.Status == JobStatusSucceeded || s.Status == JobStatusFailed
}

// Fingerprint returns a deterministic digest over every field, used by the
// stream endpoint to detect "no change since last send".
func (s ProgressState) Fingerprint() string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%.4f|%s|%s|%s|%s",
		s.Status, s.Progress, s.Phase, s.OutputRef, s.ErrorCode, s.ErrorMessage)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Submission is the form payload a job is created from. The service never
// interprets the fields; they are handed to the pipeline as-is.
type Submission struct {
	JobID    string            `json:"jobId,omitempty"` // optional, server generates one when empty
	Template string            `json:"template"`
	Fields   map[string]string `json:"fields,omitempty"`
}

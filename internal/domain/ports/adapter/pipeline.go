package adapter

import (
	"context"

	"docgen-progress/internal/domain/model"
)

// RunError is a structured failure reported by the pipeline. Code is stable
// and machine-readable; Message is for humans.
type RunError struct {
	Code    string
	Message string
}

// RunStatus is one poll result for an in-flight pipeline run.
type RunStatus struct {
	Completed int
	Total     int
	Done      bool
	OutputRef string    // set when Done and the run succeeded
	Err       *RunError // set when Done and the run failed
}

// GenerationPipeline is the port for the external document-generation
// pipeline. The service starts a run and then polls it for discrete
// "K of N documents done" ticks until Done.
type GenerationPipeline interface {
	// Start kicks off generation for a submission and returns an opaque run
	// id plus the expected document count (0 when not yet known).
	Start(ctx context.Context, sub model.Submission) (runID string, total int, err error)

	// Poll reports the current run status. Polling a finished run keeps
	// returning the same terminal status.
	Poll(ctx context.Context, runID string) (RunStatus, error)
}

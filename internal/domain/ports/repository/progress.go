package repository

import (
	"time"

	"docgen-progress/internal/domain/model"
)

// ProgressStore holds the latest ProgressState per job. It is the only piece
// of state shared between the orchestrator (writer) and the stream endpoint
// (reader); implementations must be safe for concurrent use.
type ProgressStore interface {
	// Set overwrites the state for a job. Once a stored state is terminal,
	// later writes for that job are ignored.
	Set(jobID string, state model.ProgressState)
	Get(jobID string) (model.ProgressState, bool)
	Delete(jobID string)

	// SweepTerminal removes terminal entries that reached their terminal
	// state more than olderThan ago and returns how many were evicted.
	SweepTerminal(olderThan time.Duration) int
}

package docgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docgen-progress/internal/domain"
	"docgen-progress/internal/domain/model"
	"docgen-progress/internal/domain/ports/adapter"

	"github.com/google/uuid"
)

var _ adapter.GenerationPipeline = (*NoopPipeline)(nil)

// NoopPipeline implements adapter.GenerationPipeline for local/dev use.
// It fabricates a run that completes one document per tick instead of
// calling a real generation backend.
type NoopPipeline struct {
	TotalDocs int           // documents per run
	TickEvery time.Duration // wall time per document
	FailAfter int           // fail once this many documents are done; 0 = never

	mu   sync.Mutex
	runs map[string]noopRun
	now  func() time.Time
}

type noopRun struct {
	startedAt time.Time
	total     int
}

func NewNoopPipeline(totalDocs int, tickEvery time.Duration) *NoopPipeline {
	if totalDocs <= 0 {
		totalDocs = 18
	}
	if tickEvery <= 0 {
		tickEvery = 2 * time.Second
	}
	return &NoopPipeline{
		TotalDocs: totalDocs,
		TickEvery: tickEvery,
		runs:      make(map[string]noopRun),
		now:       time.Now,
	}
}

func (p *NoopPipeline) Start(ctx context.Context, sub model.Submission) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	runID := uuid.NewString()
	p.mu.Lock()
	p.runs[runID] = noopRun{startedAt: p.now(), total: p.TotalDocs}
	p.mu.Unlock()
	return runID, p.TotalDocs, nil
}

func (p *NoopPipeline) Poll(ctx context.Context, runID string) (adapter.RunStatus, error) {
	if err := ctx.Err(); err != nil {
		return adapter.RunStatus{}, err
	}
	p.mu.Lock()
	run, ok := p.runs[runID]
	p.mu.Unlock()
	if !ok {
		return adapter.RunStatus{}, domain.ErrJobNotFound
	}

	completed := int(p.now().Sub(run.startedAt) / p.TickEvery)
	if completed > run.total {
		completed = run.total
	}

	if p.FailAfter > 0 && completed >= p.FailAfter {
		return adapter.RunStatus{
			Completed: p.FailAfter,
			Total:     run.total,
			Done:      true,
			Err: &adapter.RunError{
				Code:    "generation_failed",
				Message: fmt.Sprintf("document %d of %d could not be generated", p.FailAfter+1, run.total),
			},
		}, nil
	}

	st := adapter.RunStatus{Completed: completed, Total: run.total}
	if completed >= run.total {
		st.Done = true
		st.OutputRef = fmt.Sprintf("artifacts/%s.zip", runID)
	}
	return st, nil
}

// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"runtime"
	"sync"

	"docgen-progress/internal/domain"

	"github.com/rs/zerolog"
)

// A small worker pool that runs submitted orchestration tasks. Generation
// runs here so job submission can return before generation completes.

type Task func(ctx context.Context) error

type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	n    int
	log  *zerolog.Logger
}

func NewPool(workers, queueSize int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	poolLog := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{
		jobs: make(chan Task, queueSize),
		quit: make(chan struct{}),
		n:    workers,
		log:  &poolLog,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task == nil {
						continue
					}
					if err := task(ctx); err != nil {
						p.log.Error().Err(err).Int("worker", id).Msg("task error")
					}
				}
			}
		}(i)
	}
}

func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return domain.ErrInvalidArgument
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		// drop when saturated rather than back-pressuring job submission
		return domain.ErrQueueFull
	}
}

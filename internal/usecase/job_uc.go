package usecase

import (
	"context"
	"fmt"
	"time"

	"docgen-progress/internal/domain"
	"docgen-progress/internal/domain/model"
	"docgen-progress/internal/domain/ports/adapter"
	"docgen-progress/internal/domain/ports/repository"
	"docgen-progress/internal/infra/logging"
	"docgen-progress/internal/infra/metrics"
	"docgen-progress/internal/infra/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

// Poll errors in a row tolerated before the job is failed. The pipeline can
// be slow to start, so a single bad poll is not terminal.
const maxPollFailures = 3

// JobUseCase accepts submissions and orchestrates generation runs, writing
// normalized progress states into the store as the pipeline advances.
type JobUseCase interface {
	// Submit accepts a job, writes its initial state and schedules the
	// orchestration. It returns before generation completes.
	Submit(ctx context.Context, sub model.Submission) (jobID string, streaming bool, err error)
}

type jobUC struct {
	store    repository.ProgressStore
	pipeline adapter.GenerationPipeline
	pool     *worker.Pool

	pollEvery time.Duration
	baseline  float64 // progress percentage reserved for pre-generation setup
	log       *zerolog.Logger
}

func NewJobUseCase(
	store repository.ProgressStore,
	pipeline adapter.GenerationPipeline,
	pool *worker.Pool,
	pollEvery time.Duration,
	baseline float64,
	logger *zerolog.Logger,
) *jobUC {
	ucLog := logger.With().Str("component", "JobUC").Logger()
	return &jobUC{
		store:     store,
		pipeline:  pipeline,
		pool:      pool,
		pollEvery: pollEvery,
		baseline:  baseline,
		log:       &ucLog,
	}
}

func (u *jobUC) Submit(ctx context.Context, sub model.Submission) (string, bool, error) {
	defer logging.TraceDuration(u.log, "JobUC.Submit")()

	jobID := sub.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	// A finished job id cannot be resubmitted; its frozen entry would drop
	// every write the new run makes.
	if existing, ok := u.store.Get(jobID); ok && existing.Terminal() {
		return "", false, fmt.Errorf("job %s: %w", jobID, domain.ErrJobTerminal)
	}

	// The store entry must exist before Submit returns, so a client that
	// connects shortly after never races an empty store.
	u.store.Set(jobID, model.ProgressState{
		Status:   model.JobStatusPending,
		Progress: 5,
		Phase:    "preparing documents",
	})

	if err := u.pool.Submit(func(ctx context.Context) error {
		u.run(ctx, jobID, sub)
		return nil
	}); err != nil {
		u.store.Delete(jobID)
		return "", false, fmt.Errorf("schedule job: %w", err)
	}

	u.log.Info().Str("job_id", jobID).Str("template", sub.Template).Msg("job accepted")
	return jobID, true, nil
}

// run drives one generation to a terminal state. It is the only writer for
// its job after submission.
func (u *jobUC) run(ctx context.Context, jobID string, sub model.Submission) {
	start := time.Now()
	ctx = logging.WithJobID(ctx, jobID)
	log := logging.With(ctx, u.log)

	runID, total, err := u.pipeline.Start(ctx, sub)
	if err != nil {
		u.fail(jobID, start, "pipeline_start_failed", "the generation pipeline could not be started")
		log.Error().Err(err).Msg("pipeline start failed")
		return
	}

	u.store.Set(jobID, model.ProgressState{
		Status:   model.JobStatusInProgress,
		Progress: u.baseline,
		Phase:    "generating documents",
	})

	last := u.baseline
	pollFailures := 0
	ticker := time.NewTicker(u.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.fail(jobID, start, "canceled", "the server shut down before generation finished")
			return
		case <-ticker.C:
		}

		st, err := u.pipeline.Poll(ctx, runID)
		if err != nil {
			pollFailures++
			if pollFailures >= maxPollFailures {
				u.fail(jobID, start, "pipeline_poll_failed", "the generation pipeline stopped responding")
				log.Error().Err(err).Msg("pipeline polling gave up")
				return
			}
			log.Warn().Err(err).Int("failures", pollFailures).Msg("pipeline poll failed")
			continue
		}
		pollFailures = 0

		if st.Done {
			if st.Err != nil {
				u.fail(jobID, start, st.Err.Code, st.Err.Message)
				return
			}
			u.store.Set(jobID, model.ProgressState{
				Status:    model.JobStatusSucceeded,
				Progress:  100,
				Phase:     "done",
				OutputRef: st.OutputRef,
			})
			metrics.IncJobProcessed(string(model.JobStatusSucceeded))
			metrics.ObserveJobDuration(time.Since(start).Seconds())
			log.Info().Dur("duration", time.Since(start)).Msg("job succeeded")
			return
		}

		if p := u.mapProgress(st.Completed, st.Total, total); p > last {
			last = p
			doc := st.Completed + 1
			if doc > st.Total {
				doc = st.Total
			}
			u.store.Set(jobID, model.ProgressState{
				Status:   model.JobStatusInProgress,
				Progress: p,
				Phase:    fmt.Sprintf("generating document %d of %d", doc, st.Total),
			})
		}
	}
}

// mapProgress turns a (completed, total) tick into a percentage. The baseline
// is reserved for setup, the rest is split across the documents, so progress
// is visibly non-zero right away and never jumps straight to 100.
func (u *jobUC) mapProgress(completed, total, fallbackTotal int) float64 {
	if total <= 0 {
		total = fallbackTotal
	}
	if total <= 0 {
		return u.baseline
	}
	frac := float64(completed) / float64(total)
	if frac > 1 {
		frac = 1
	}
	return u.baseline + frac*(100-u.baseline)
}

func (u *jobUC) fail(jobID string, start time.Time, code, msg string) {
	u.store.Set(jobID, model.ProgressState{
		Status:       model.JobStatusFailed,
		ErrorCode:    code,
		ErrorMessage: msg,
	})
	metrics.IncJobProcessed(string(model.JobStatusFailed))
	metrics.ObserveJobDuration(time.Since(start).Seconds())
}

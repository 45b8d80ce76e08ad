package sched

import (
	"time"

	"docgen-progress/internal/config"
	"docgen-progress/internal/domain/ports/repository"
	"docgen-progress/internal/infra/metrics"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// EvictionWorker periodically removes terminal progress entries older than
// the configured TTL. Entries linger for one TTL so a client reconnecting
// right after a terminal event still finds the job.
type EvictionWorker struct {
	store repository.ProgressStore
	ttl   time.Duration
	every time.Duration
	sched *gocron.Scheduler
	log   *zerolog.Logger
}

func NewEvictionWorker(store repository.ProgressStore, cfg config.EvictionConfig, logger *zerolog.Logger) *EvictionWorker {
	evLog := logger.With().Str("component", "EvictionWorker").Logger()
	return &EvictionWorker{
		store: store,
		ttl:   cfg.TTL,
		every: cfg.SweepEvery,
		log:   &evLog,
	}
}

func (w *EvictionWorker) Start() error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	_, err := s.Every(w.every).Do(func() {
		n := w.store.SweepTerminal(w.ttl)
		if n > 0 {
			metrics.AddJobsEvicted(n)
			w.log.Info().Int("count", n).Msg("evicted terminal job entries")
		}
	})
	if err != nil {
		return err
	}

	s.StartAsync()
	w.sched = s
	w.log.Info().Dur("ttl", w.ttl).Dur("every", w.every).Msg("eviction worker started")
	return nil
}

func (w *EvictionWorker) Stop() {
	if w.sched != nil {
		w.sched.Stop()
	}
}

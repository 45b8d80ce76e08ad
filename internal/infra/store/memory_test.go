package store

import (
	"testing"
	"time"

	"docgen-progress/internal/domain/model"
)

func TestMemoryStore(t *testing.T) {
	t.Run("set then get returns the same state", func(t *testing.T) {
		s := NewMemoryStore()
		want := model.ProgressState{Status: model.JobStatusInProgress, Progress: 42.5, Phase: "generating document 4 of 18"}
		s.Set("job-1", want)

		got, ok := s.Get("job-1")
		if !ok {
			t.Fatal("expected job-1 to be present")
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("get on unknown job reports absent", func(t *testing.T) {
		s := NewMemoryStore()
		if _, ok := s.Get("nope"); ok {
			t.Error("expected absent")
		}
	})

	t.Run("terminal state freezes the entry", func(t *testing.T) {
		s := NewMemoryStore()
		s.Set("job-1", model.ProgressState{Status: model.JobStatusSucceeded, Progress: 100, OutputRef: "bundle-7"})

		// A late pipeline callback must not win.
		s.Set("job-1", model.ProgressState{Status: model.JobStatusInProgress, Progress: 80})

		got, _ := s.Get("job-1")
		if got.Status != model.JobStatusSucceeded {
			t.Errorf("terminal state was overwritten: %+v", got)
		}
		if got.OutputRef != "bundle-7" {
			t.Errorf("output ref lost: %+v", got)
		}
	})

	t.Run("sweep evicts only old terminal entries", func(t *testing.T) {
		s := NewMemoryStore()
		now := time.Now()
		s.now = func() time.Time { return now }

		s.Set("done-old", model.ProgressState{Status: model.JobStatusSucceeded, Progress: 100})
		s.Set("running", model.ProgressState{Status: model.JobStatusInProgress, Progress: 50})

		s.now = func() time.Time { return now.Add(20 * time.Minute) }
		s.Set("done-new", model.ProgressState{Status: model.JobStatusFailed, ErrorCode: "generation_failed"})

		evicted := s.SweepTerminal(10 * time.Minute)
		if evicted != 1 {
			t.Fatalf("evicted = %d, want 1", evicted)
		}
		if _, ok := s.Get("done-old"); ok {
			t.Error("done-old should have been evicted")
		}
		if _, ok := s.Get("running"); !ok {
			t.Error("running job must survive sweeps")
		}
		if _, ok := s.Get("done-new"); !ok {
			t.Error("done-new is inside the TTL and must survive")
		}
	})

	t.Run("delete removes the entry", func(t *testing.T) {
		s := NewMemoryStore()
		s.Set("job-1", model.ProgressState{Status: model.JobStatusPending, Progress: 5})
		s.Delete("job-1")
		if _, ok := s.Get("job-1"); ok {
			t.Error("expected job-1 to be gone")
		}
	})
}

package store

import (
	"sync"
	"time"

	"docgen-progress/internal/domain/model"
	"docgen-progress/internal/domain/ports/repository"
)

var _ repository.ProgressStore = (*MemoryStore)(nil)

type entry struct {
	state      model.ProgressState
	terminalAt time.Time // zero until the state turns terminal
}

// MemoryStore is the process-wide progress map. States are stored by value,
// so readers can never observe a half-written update.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time // overridable in tests
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Set overwrites the state for jobID. Once an entry is terminal it is frozen:
// later writes are dropped so stray pipeline callbacks cannot resurrect a
// finished job.
func (s *MemoryStore) Set(jobID string, state model.ProgressState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[jobID]; ok && prev.state.Terminal() {
		return
	}
	e := entry{state: state}
	if state.Terminal() {
		e.terminalAt = s.now()
	}
	s.entries[jobID] = e
}

func (s *MemoryStore) Get(jobID string) (model.ProgressState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[jobID]
	return e.state, ok
}

func (s *MemoryStore) Delete(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, jobID)
}

// SweepTerminal evicts terminal entries older than olderThan. Non-terminal
// entries are never touched, however old they are.
func (s *MemoryStore) SweepTerminal(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	n := 0
	for id, e := range s.entries {
		if !e.terminalAt.IsZero() && e.terminalAt.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len reports the number of tracked jobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

package storage

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	controllers map[string]ControllerRecord
	order       []string // save order, oldest first
	history     map[string][]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.controllers = make(map[string]ControllerRecord)
	s.order = nil
	s.history = make(map[string][]float64)
	return nil
}

func (s *MemoryStore) SaveController(_ context.Context, record ControllerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if _, exists := s.controllers[record.ID]; exists {
		s.order = remove(s.order, record.ID)
	}
	s.controllers[record.ID] = cloneRecord(record)
	s.order = append(s.order, record.ID)
	return nil
}

func (s *MemoryStore) GetController(_ context.Context, id string) (ControllerRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return ControllerRecord{}, false, ErrNotInitialized
	}
	record, ok := s.controllers[id]
	if !ok {
		return ControllerRecord{}, false, nil
	}
	return cloneRecord(record), true, nil
}

func (s *MemoryStore) LatestController(_ context.Context) (ControllerRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return ControllerRecord{}, false, ErrNotInitialized
	}
	if len(s.order) == 0 {
		return ControllerRecord{}, false, nil
	}
	return cloneRecord(s.controllers[s.order[len(s.order)-1]]), true, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.history[runID] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}

func (s *MemoryStore) Close() error { return nil }

// snapshot returns the controllers in save order and a copy of the history.
func (s *MemoryStore) snapshot() ([]ControllerRecord, map[string][]float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]ControllerRecord, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, s.controllers[id])
	}
	history := make(map[string][]float64, len(s.history))
	for k, v := range s.history {
		history[k] = append([]float64(nil), v...)
	}
	return records, history
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

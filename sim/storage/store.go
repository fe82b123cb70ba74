package storage

import (
	"context"
	"fmt"
)

// Store persists trained controllers and per-run fitness history.
type Store interface {
	Init(ctx context.Context) error
	SaveController(ctx context.Context, record ControllerRecord) error
	GetController(ctx context.Context, id string) (ControllerRecord, bool, error)
	// LatestController returns the most recently saved controller.
	LatestController(ctx context.Context) (ControllerRecord, bool, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	Close() error
}

// Backend names accepted by NewStore.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// NewStore returns an uninitialized store of the given kind. path is the JSON
// file or SQLite database and is ignored by the memory backend.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	VersionedRecord
	Controllers    []json.RawMessage    `json:"controllers"`
	FitnessHistory map[string][]float64 `json:"fitness_history"`
}

// FileStore keeps every record in a single JSON document. Each save rewrites
// the document to a temporary file and renames it over the old one, so a
// crash leaves either the old or the new document.
type FileStore struct {
	path string

	mu  sync.Mutex // serializes writes to path
	mem *MemoryStore
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, mem: NewMemoryStore()}
}

// Init loads the document if it exists.
func (s *FileStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("file store path is required")
	}
	if err := s.mem.Init(ctx); err != nil {
		return err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	if err := checkVersion(doc.VersionedRecord); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	for i, raw := range doc.Controllers {
		record, err := DecodeController(raw)
		if err != nil {
			return fmt.Errorf("decode %s controller %d: %w", s.path, i, err)
		}
		if err := s.mem.SaveController(ctx, record); err != nil {
			return err
		}
	}
	for runID, history := range doc.FitnessHistory {
		if err := s.mem.SaveFitnessHistory(ctx, runID, history); err != nil {
			return err
		}
	}
	logrus.Debugf("loaded %d controllers from '%s'", len(doc.Controllers), s.path)
	return nil
}

func (s *FileStore) SaveController(ctx context.Context, record ControllerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.SaveController(ctx, record); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStore) GetController(ctx context.Context, id string) (ControllerRecord, bool, error) {
	return s.mem.GetController(ctx, id)
}

func (s *FileStore) LatestController(ctx context.Context) (ControllerRecord, bool, error) {
	return s.mem.LatestController(ctx)
}

func (s *FileStore) SaveFitnessHistory(ctx context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.SaveFitnessHistory(ctx, runID, history); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStore) GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error) {
	return s.mem.GetFitnessHistory(ctx, runID)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) flush() error {
	records, history := s.mem.snapshot()
	doc := fileDocument{
		VersionedRecord: VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Controllers:     make([]json.RawMessage, 0, len(records)),
		FitnessHistory:  history,
	}
	for _, r := range records {
		payload, err := EncodeController(r)
		if err != nil {
			return err
		}
		doc.Controllers = append(doc.Controllers, payload)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

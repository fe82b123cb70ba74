package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/racetrack-sim/racetrack-sim/sim/neuro"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrVersionMismatch = errors.New("record version mismatch")
	ErrNotInitialized  = errors.New("store is not initialized")
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ControllerRecord is a trained controller as written to disk.
type ControllerRecord struct {
	VersionedRecord
	ID         string        `json:"id"`
	RunID      string        `json:"run_id"`
	Generation int           `json:"generation"`
	Fitness    float64       `json:"fitness"`
	SavedAt    time.Time     `json:"saved_at"`
	Genome     *neuro.Genome `json:"genome"`
}

// NewControllerRecord stamps the current versions on a record. The genome is cloned.
func NewControllerRecord(id, runID string, generation int, fitness float64, genome *neuro.Genome) ControllerRecord {
	return ControllerRecord{
		VersionedRecord: VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              id,
		RunID:           runID,
		Generation:      generation,
		Fitness:         fitness,
		SavedAt:         time.Now().UTC(),
		Genome:          genome.Clone(),
	}
}

func EncodeController(r ControllerRecord) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeController rejects records of another schema or codec version and
// genomes whose layers do not chain.
func DecodeController(data []byte) (ControllerRecord, error) {
	var record ControllerRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return ControllerRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return ControllerRecord{}, err
	}
	if record.Genome == nil {
		return ControllerRecord{}, fmt.Errorf("controller %s has no genome", record.ID)
	}
	if err := record.Genome.Validate(); err != nil {
		return ControllerRecord{}, err
	}
	return record, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func checkVersion(v VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}

func cloneRecord(r ControllerRecord) ControllerRecord {
	if r.Genome != nil {
		r.Genome = r.Genome.Clone()
	}
	return r
}

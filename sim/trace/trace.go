package trace

import (
	"encoding/json"
	"io"
)

// Level controls the verbosity of generation tracing.
type Level string

const (
	// LevelNone disables tracing (zero overhead).
	LevelNone Level = "none"
	// LevelDeaths records one DeathRecord per collision.
	LevelDeaths Level = "deaths"
	// LevelFrames records deaths plus a FrameRecord every FrameStride ticks.
	LevelFrames Level = "frames"
)

// validLevels maps accepted level strings.
var validLevels = map[Level]bool{
	LevelNone:   true,
	LevelDeaths: true,
	LevelFrames: true,
	"":          true, // empty defaults to none
}

// IsValidLevel returns true if the given level string is a recognized trace level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// Config controls trace collection behavior.
type Config struct {
	Level       Level
	FrameStride int // record every Nth frame; <= 1 records all
}

// GenerationTrace collects records during one generation.
type GenerationTrace struct {
	Config Config        `json:"-"`
	Deaths []DeathRecord `json:"deaths"`
	Frames []FrameRecord `json:"frames,omitempty"`
}

// NewGenerationTrace creates a GenerationTrace ready for recording.
func NewGenerationTrace(config Config) *GenerationTrace {
	return &GenerationTrace{
		Config: config,
		Deaths: make([]DeathRecord, 0),
	}
}

// Enabled reports whether anything is recorded.
func (gt *GenerationTrace) Enabled() bool {
	return gt != nil && gt.Config.Level != LevelNone && gt.Config.Level != ""
}

// WantsFrame reports whether the frame should be recorded as a FrameRecord.
func (gt *GenerationTrace) WantsFrame(frame int) bool {
	if gt == nil || gt.Config.Level != LevelFrames {
		return false
	}
	return gt.Config.FrameStride <= 1 || frame%gt.Config.FrameStride == 0
}

// RecordDeath appends a death record.
func (gt *GenerationTrace) RecordDeath(record DeathRecord) {
	gt.Deaths = append(gt.Deaths, record)
}

// RecordFrame appends a frame record.
func (gt *GenerationTrace) RecordFrame(record FrameRecord) {
	gt.Frames = append(gt.Frames, record)
}

// WriteJSON encodes the trace as indented JSON.
func (gt *GenerationTrace) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(gt)
}

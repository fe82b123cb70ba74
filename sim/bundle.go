package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the layout of a racetrack YAML file. Sections other than the
// simulation core are opaque here and decoded by their owners (training, evolver).
type FileConfig struct {
	Simulation Config      `yaml:"simulation"`
	Track      TrackConfig `yaml:"track"`
	Training   yaml.Node   `yaml:"training"`
	Evolver    yaml.Node   `yaml:"evolver"`
}

// LoadConfigFile reads a YAML file on top of DefaultConfig. Unknown fields are
// errors so that typos never silently fall back to defaults. Relative track
// image paths are kept as written.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	fc := &FileConfig{Simulation: DefaultConfig(), Track: DefaultTrackConfig()}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := fc.Simulation.Validate(); err != nil {
		return nil, err
	}
	return fc, nil
}

// DecodeSection decodes an opaque section into out with strict field checking.
// An absent section leaves out untouched.
func DecodeSection(node yaml.Node, out any) error {
	if node.Kind == 0 {
		return nil
	}
	data, err := yaml.Marshal(&node)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("parsing section: %w", err)
	}
	return nil
}

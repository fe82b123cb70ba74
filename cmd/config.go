package cmd

import (
	"fmt"

	"github.com/racetrack-sim/racetrack-sim/sim"
	"github.com/racetrack-sim/racetrack-sim/sim/neuro"
	"github.com/racetrack-sim/racetrack-sim/sim/training"
)

// bundle is everything a command reads from the config file, with defaults
// filled in for absent sections.
type bundle struct {
	Simulation sim.Config
	Track      sim.TrackConfig
	Training   training.Config
	Evolver    neuro.EvolverConfig
}

// loadBundle reads path with strict field checking. An empty path yields the
// reference defaults. trackOverride replaces the track image when set.
func loadBundle(path, trackOverride string) (*bundle, error) {
	b := &bundle{
		Simulation: sim.DefaultConfig(),
		Track:      sim.DefaultTrackConfig(),
		Training:   training.DefaultConfig(),
		Evolver:    neuro.DefaultEvolverConfig(),
	}
	if path != "" {
		fc, err := sim.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		b.Simulation = fc.Simulation
		b.Track = fc.Track
		if err := sim.DecodeSection(fc.Training, &b.Training); err != nil {
			return nil, fmt.Errorf("training section: %w", err)
		}
		if err := sim.DecodeSection(fc.Evolver, &b.Evolver); err != nil {
			return nil, fmt.Errorf("evolver section: %w", err)
		}
	}
	if trackOverride != "" {
		b.Track.Image = trackOverride
	}
	return b, nil
}

// loadTrack loads the track at the world resolution.
func (b *bundle) loadTrack() (*sim.Track, error) {
	return sim.LoadTrack(b.Track, b.Simulation.World)
}

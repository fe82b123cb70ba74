package cmd

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/racetrack-sim/racetrack-sim/sim"
	"github.com/racetrack-sim/racetrack-sim/sim/neuro"
	"github.com/racetrack-sim/racetrack-sim/sim/training"
)

// writeCorridor writes a w x h PNG whose top and bottom wall rows are black.
func writeCorridor(t *testing.T, w, h, wall int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
			if y < wall || y >= h-wall {
				c = color.RGBA{A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "corridor.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

// corridorBundle is a small, fast configuration on a 300x60 corridor.
func corridorBundle(t *testing.T) *bundle {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.World = sim.NewWorldConfig(300, 60)
	cfg.Start = sim.Pose{X: 30, Y: 30, Heading: 0, Speed: 2}
	cfg.Footprint = sim.FootprintConfig{Length: 6, Width: 4}
	cfg.Sensors = sim.NewSensorConfig([]float64{-45, 0, 45}, 50, 2)
	cfg.Generation.MaxFrames = 30

	ev := neuro.DefaultEvolverConfig()
	ev.PopulationSize = 6
	ev.EliteCount = 2
	return &bundle{
		Simulation: cfg,
		Track:      sim.TrackConfig{Image: writeCorridor(t, 300, 60, 10)},
		Training:   training.Config{Generations: 2, RunID: "cmd-run"},
		Evolver:    ev,
	}
}

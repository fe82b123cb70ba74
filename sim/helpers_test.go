package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// openTrack returns a track without obstacles.
func openTrack(t *testing.T, width, height int) *Track {
	t.Helper()
	track, err := NewTrack(width, height, func(x, y int) bool { return false })
	require.NoError(t, err)
	return track
}

// wallTrack returns a track whose pixels with x >= wallX are obstacles.
func wallTrack(t *testing.T, width, height, wallX int) *Track {
	t.Helper()
	track, err := NewTrack(width, height, func(x, y int) bool { return x >= wallX })
	require.NoError(t, err)
	return track
}

// testConfig returns a small world with a 4x4 footprint starting at (x, height/2) facing +x.
func testConfig(width, height int, x float64) Config {
	return Config{
		World:      NewWorldConfig(width, height),
		Start:      Pose{X: x, Y: float64(height) / 2, Heading: 0, Speed: 2},
		Kinematics: NewKinematicsConfig(5, 2, 10, 0.5),
		Footprint:  FootprintConfig{Length: 4, Width: 4},
		Sensors:    NewSensorConfig([]float64{-60, -30, 0, 30, 60}, 200, 5),
		Generation: NewGenerationConfig(1000, 1),
	}
}

// scriptedController returns a fixed action, or the result of fn when set,
// and records every call.
type scriptedController struct {
	mu       sync.Mutex
	action   []float64
	fn       func(call int, sensors []float64) []float64
	acts     int
	reported []float64
}

func neutral() *scriptedController {
	return &scriptedController{action: []float64{0.5, 0.5}}
}

func (c *scriptedController) Act(sensors []float64) []float64 {
	c.mu.Lock()
	c.acts++
	call := c.acts
	c.mu.Unlock()
	if c.fn != nil {
		return c.fn(call, sensors)
	}
	return c.action
}

func (c *scriptedController) ReportFitness(fitness float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reported = append(c.reported, fitness)
}

func controllers(cs ...*scriptedController) []Controller {
	out := make([]Controller, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

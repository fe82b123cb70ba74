package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAgent(heading float64) *Agent {
	return NewAgent(Pose{X: 50, Y: 50, Heading: heading, Speed: 2},
		NewKinematicsConfig(5, 2, 10, 0.5), FootprintConfig{Length: 4, Width: 2})
}

func TestAgent_ApplyAction_SpeedStaysInBounds(t *testing.T) {
	deltas := []float64{0, 1, -1, 100, -100, 1e308, -1e308, math.Inf(1), math.Inf(-1), math.NaN()}
	for _, steer := range deltas {
		for _, throttle := range deltas {
			a := newTestAgent(0)
			for i := 0; i < 5; i++ {
				a.ApplyAction(steer, throttle)
				assert.GreaterOrEqual(t, a.Speed(), 2.0, "steer=%v throttle=%v", steer, throttle)
				assert.LessOrEqual(t, a.Speed(), 10.0, "steer=%v throttle=%v", steer, throttle)
				assert.False(t, math.IsNaN(a.Heading()), "steer=%v", steer)
			}
		}
	}
}

func TestAgent_ApplyAction_TurnsAndAccelerates(t *testing.T) {
	a := newTestAgent(0)

	a.ApplyAction(1, 1)
	assert.Equal(t, 5.0, a.Heading())
	assert.Equal(t, 2.5, a.Speed())

	a.ApplyAction(-2, -1)
	assert.Equal(t, 355.0, a.Heading())
	assert.Equal(t, 2.0, a.Speed())
}

func TestAgent_ApplyAction_FixedThrottleKeepsSpeed(t *testing.T) {
	kin := NewKinematicsConfig(5, 2, 10, 0.5)
	kin.ThrottleMode = ThrottleFixed
	a := NewAgent(Pose{X: 50, Y: 50, Speed: 4}, kin, FootprintConfig{Length: 4, Width: 2})

	a.ApplyAction(1, 1)

	assert.Equal(t, 4.0, a.Speed())
	assert.Equal(t, 5.0, a.Heading())
}

func TestAgent_Advance_UsesScreenCoordinates(t *testing.T) {
	tests := []struct {
		heading float64
		dx, dy  float64
	}{
		{0, 2, 0},
		{90, 0, -2},
		{180, -2, 0},
		{270, 0, 2},
	}
	for _, tc := range tests {
		a := newTestAgent(tc.heading)
		a.Advance()
		x, y := a.Position()
		assert.Equal(t, 50+tc.dx, x, "heading %v", tc.heading)
		assert.Equal(t, 50+tc.dy, y, "heading %v", tc.heading)
		assert.Equal(t, 2.0, a.Fitness())
	}
}

func TestAgent_Advance_AccumulatesSpeedAsFitness(t *testing.T) {
	a := newTestAgent(45)
	total := 0.0
	for i := 0; i < 10; i++ {
		a.ApplyAction(0, 1)
		a.Advance()
		total += a.Speed()
		assert.Equal(t, total, a.Fitness())
	}
}

func TestAgent_CheckCollision_DeadAgentIsFrozen(t *testing.T) {
	// GIVEN an agent whose footprint overlaps an obstacle
	track := wallTrack(t, 100, 100, 51)
	a := newTestAgent(0)
	a.Advance() // center at 52

	// WHEN collision is checked
	alive := a.CheckCollision(track)

	// THEN it dies and further updates are ignored
	require.False(t, alive)
	x, y := a.Position()
	fitness := a.Fitness()
	a.ApplyAction(1, 1)
	a.Advance()
	assert.False(t, a.CheckCollision(openTrack(t, 100, 100)))
	nx, ny := a.Position()
	assert.Equal(t, x, nx)
	assert.Equal(t, y, ny)
	assert.Equal(t, fitness, a.Fitness())
	assert.False(t, a.Alive())
}

func TestAgent_CheckCollision_OutsideWorldIsObstacle(t *testing.T) {
	a := NewAgent(Pose{X: 1, Y: 50, Heading: 180, Speed: 2},
		NewKinematicsConfig(5, 2, 10, 0.5), FootprintConfig{Length: 4, Width: 2})
	a.Advance() // center at -1

	assert.False(t, a.CheckCollision(openTrack(t, 100, 100)))
}

func TestAgent_CheckCollision_ClearTrackKeepsAgentAlive(t *testing.T) {
	a := newTestAgent(30)
	a.Advance()
	assert.True(t, a.CheckCollision(openTrack(t, 100, 100)))
}

func TestShape_CornersAndCovers(t *testing.T) {
	s := newShape(10, 10, 0, FootprintConfig{Length: 4, Width: 2})

	assert.Equal(t, [4][2]float64{{12, 9}, {12, 11}, {8, 11}, {8, 9}}, s.Corners())
	assert.True(t, s.Covers(10, 10))
	assert.True(t, s.Covers(12, 11))
	assert.False(t, s.Covers(12.5, 10))
	assert.False(t, s.Covers(10, 11.5))

	rotated := newShape(10, 10, 90, FootprintConfig{Length: 4, Width: 2})
	assert.True(t, rotated.Covers(10, 8))
	assert.False(t, rotated.Covers(12, 10))
}

func TestNormalizeHeading(t *testing.T) {
	assert.Equal(t, 0.0, normalizeHeading(360))
	assert.Equal(t, 350.0, normalizeHeading(-10))
	assert.Equal(t, 10.0, normalizeHeading(730))
}

package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSensors(t *testing.T, angles []float64, maxLen, step float64) *SensorArray {
	t.Helper()
	s, err := NewSensorArray(NewSensorConfig(angles, maxLen, step))
	require.NoError(t, err)
	return s
}

func agentAt(x, y, heading float64) *Agent {
	return NewAgent(Pose{X: x, Y: y, Heading: heading, Speed: 2},
		NewKinematicsConfig(5, 2, 10, 0.5), FootprintConfig{Length: 4, Width: 2})
}

func TestSensorArray_FreeRays_ReturnMaxLength(t *testing.T) {
	// GIVEN an agent in the middle of an obstacle-free area larger than the ray length
	s := newTestSensors(t, []float64{-60, -30, 0, 30, 60}, 200, 5)
	a := agentAt(250, 250, 37)

	// WHEN the sensors are read
	reading := s.Read(a, openTrack(t, 500, 500))

	// THEN every ray reports exactly MAX_RAY_LENGTH
	assert.Equal(t, []float64{200, 200, 200, 200, 200}, reading)
}

func TestSensorArray_ObstacleAtStepMultiple_ReturnsExactDistance(t *testing.T) {
	// GIVEN a wall 50 units ahead of the agent
	s := newTestSensors(t, []float64{0}, 200, 5)
	a := agentAt(10, 50, 0)

	// WHEN the sensors are read
	reading := s.Read(a, wallTrack(t, 300, 100, 60))

	// THEN the ray reports 50, not 45 or 55
	assert.Equal(t, []float64{50}, reading)
}

func TestSensorArray_VerticalRay_StaysOnColumn(t *testing.T) {
	// GIVEN obstacle rows y <= 30 and an agent at y=100 facing up the screen
	track, err := NewTrack(100, 200, func(x, y int) bool { return y <= 30 })
	require.NoError(t, err)
	s := newTestSensors(t, []float64{0}, 200, 5)

	rays := s.Cast(agentAt(50, 100, 90), track)

	require.Len(t, rays, 1)
	assert.Equal(t, 70.0, rays[0].Distance)
	assert.Equal(t, 50.0, rays[0].EndX)
	assert.Equal(t, 30.0, rays[0].EndY)
}

func TestSensorArray_CenterInsideObstacle_ReturnsZero(t *testing.T) {
	s := newTestSensors(t, []float64{-30, 0, 30}, 200, 5)
	reading := s.Read(agentAt(70, 50, 0), wallTrack(t, 100, 100, 60))
	assert.Equal(t, []float64{0, 0, 0}, reading)
}

func TestSensorArray_MaxNotMultipleOfStep_ClampsToMax(t *testing.T) {
	s := newTestSensors(t, []float64{0}, 12, 5)
	reading := s.Read(agentAt(50, 50, 0), openTrack(t, 100, 100))
	assert.Equal(t, []float64{12}, reading)
}

func TestSensorArray_RelativeAngles(t *testing.T) {
	// GIVEN a wall at x >= 60 and an agent facing away from it
	s := newTestSensors(t, []float64{0, 180}, 100, 5)

	// WHEN the agent looks backwards
	reading := s.Read(agentAt(10, 50, 180), wallTrack(t, 200, 100, 60))

	// THEN only the backward ray sees the wall; the forward ray leaves the world
	assert.Equal(t, []float64{15, 50}, reading)
}

func TestNewSensorArray_RejectsInvalidConfig(t *testing.T) {
	for _, cfg := range []SensorConfig{
		NewSensorConfig(nil, 200, 5),
		NewSensorConfig([]float64{0}, 0, 5),
		NewSensorConfig([]float64{0}, 200, 0),
		NewSensorConfig([]float64{0}, 200, -1),
		NewSensorConfig([]float64{0}, 200, 1e-300),
		NewSensorConfig([]float64{0}, 200, 1e-6),
	} {
		_, err := NewSensorArray(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}

func TestNewSensorArray_SampleLimitIsInclusive(t *testing.T) {
	// GIVEN a step giving exactly MaxRaySamples samples per ray
	s, err := NewSensorArray(NewSensorConfig([]float64{0}, MaxRaySamples, 1))
	require.NoError(t, err)

	// THEN a ray starting inside a wall still reads zero
	wall, err := NewTrack(100, 100, func(x, _ int) bool { return x >= 60 })
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, s.Read(agentAt(70, 50, 0), wall))
}

func TestSensorArray_CopiesAngles(t *testing.T) {
	angles := []float64{0, 30}
	s := newTestSensors(t, angles, 200, 5)
	angles[0] = 90
	assert.Equal(t, 2, s.Size())
	assert.Equal(t, 200.0, s.MaxRayLength())
	assert.Equal(t, 0.0, s.Cast(agentAt(50, 50, 0), openTrack(t, 400, 100))[0].Angle)
}

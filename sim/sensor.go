package sim

import (
	"fmt"
	"math"
)

// Ray is one cast sensor ray. EndX/EndY is the sampled point where the ray stopped.
type Ray struct {
	Angle    float64 // relative to the agent heading
	Distance float64
	EndX     float64
	EndY     float64
}

// SensorArray casts a fixed set of rays from an agent's center. It holds no
// per-agent state and is safe for concurrent use.
type SensorArray struct {
	angles []float64
	maxLen float64
	step   float64
}

// NewSensorArray validates cfg and copies its ray angles.
func NewSensorArray(cfg SensorConfig) (*SensorArray, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SensorArray{
		angles: append([]float64(nil), cfg.RayAngles...),
		maxLen: cfg.MaxRayLength,
		step:   cfg.Step,
	}, nil
}

// Size returns the length of every reading.
func (s *SensorArray) Size() int { return len(s.angles) }

// MaxRayLength returns the distance reported by a ray that hits nothing.
func (s *SensorArray) MaxRayLength() float64 { return s.maxLen }

// Read returns one distance per ray, each in [0, MaxRayLength].
func (s *SensorArray) Read(a *Agent, track *Track) []float64 {
	out := make([]float64, len(s.angles))
	for i, rel := range s.angles {
		out[i] = s.cast(a.x, a.y, a.heading, rel, track).Distance
	}
	return out
}

// Cast returns the full rays, including end points, for visualization.
func (s *SensorArray) Cast(a *Agent, track *Track) []Ray {
	out := make([]Ray, len(s.angles))
	for i, rel := range s.angles {
		out[i] = s.cast(a.x, a.y, a.heading, rel, track)
	}
	return out
}

// cast samples the ray at 0, step, 2*step, ... and stops at the first obstacle
// sample or at maxLen. The loop runs at most ceil(maxLen/step)+1 times.
func (s *SensorArray) cast(x, y, heading, rel float64, track *Track) Ray {
	c, sn := direction(heading + rel)
	steps := int(math.Ceil(s.maxLen / s.step))
	ray := Ray{Angle: rel, Distance: s.maxLen, EndX: x + c*s.maxLen, EndY: y - sn*s.maxLen}
	for n := 0; n <= steps; n++ {
		length := float64(n) * s.step
		if length >= s.maxLen {
			break
		}
		px, py := x+c*length, y-sn*length
		if track.IsObstacleAt(floorCoord(px), floorCoord(py)) {
			ray.Distance, ray.EndX, ray.EndY = length, px, py
			break
		}
	}
	return ray
}

func (s *SensorArray) String() string {
	return fmt.Sprintf("SensorArray(angles=%v, max=%g, step=%g)", s.angles, s.maxLen, s.step)
}

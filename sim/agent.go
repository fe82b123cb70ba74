package sim

import "math"

// positionLimit bounds the coordinates an agent may reach before it is treated
// as colliding, keeping pixel arithmetic inside int range.
const positionLimit = 1 << 24

// Agent is a simulated vehicle. The y axis points down (screen convention), so
// a heading of 90 degrees moves the agent towards smaller y.
//
// An agent that has died ignores every further update; its fitness is frozen.
type Agent struct {
	x, y      float64
	heading   float64 // degrees in [0, 360)
	speed     float64
	fitness   float64
	alive     bool
	kin       KinematicsConfig
	footprint FootprintConfig
	shape     Shape
}

// NewAgent places an agent at start. The start speed is clamped into the speed bounds.
func NewAgent(start Pose, kin KinematicsConfig, footprint FootprintConfig) *Agent {
	a := &Agent{
		x:         start.X,
		y:         start.Y,
		heading:   normalizeHeading(start.Heading),
		speed:     clampSpeed(start.Speed, kin),
		alive:     true,
		kin:       kin,
		footprint: footprint,
	}
	a.shape = newShape(a.x, a.y, a.heading, footprint)
	return a
}

// ApplyAction turns by steer*TurnRate degrees and changes speed by
// throttle*AccelRate, clamped to [MinSpeed, MaxSpeed]. Non-finite deltas count as zero.
func (a *Agent) ApplyAction(steer, throttle float64) {
	if !a.alive {
		return
	}
	if h := a.heading + steer*a.kin.TurnRate; finite(h) {
		a.heading = normalizeHeading(h)
	}
	if a.kin.ThrottleMode != ThrottleFixed {
		if v := a.speed + throttle*a.kin.AccelRate; !math.IsNaN(v) {
			a.speed = clampSpeed(v, a.kin)
		}
	}
	a.shape = newShape(a.x, a.y, a.heading, a.footprint)
}

// Advance moves the agent one tick along its heading and adds the distance to its fitness.
func (a *Agent) Advance() {
	if !a.alive {
		return
	}
	c, s := direction(a.heading)
	a.x += c * a.speed
	a.y -= s * a.speed
	a.fitness += a.speed
	a.shape = newShape(a.x, a.y, a.heading, a.footprint)
}

// CheckCollision kills the agent if any pixel covered by its footprint is an
// obstacle. It returns whether the agent is still alive.
func (a *Agent) CheckCollision(track *Track) bool {
	if !a.alive {
		return false
	}
	if a.shape.overlaps(track) {
		a.alive = false
	}
	return a.alive
}

// Alive reports whether the agent is still simulated.
func (a *Agent) Alive() bool { return a.alive }

// Fitness returns the accumulated distance.
func (a *Agent) Fitness() float64 { return a.fitness }

// Speed returns the current speed.
func (a *Agent) Speed() float64 { return a.speed }

// Heading returns the heading in degrees, normalized to [0, 360).
func (a *Agent) Heading() float64 { return a.heading }

// Position returns the center of the vehicle.
func (a *Agent) Position() (float64, float64) { return a.x, a.y }

// Pose returns the current pose including speed.
func (a *Agent) Pose() Pose {
	return Pose{X: a.x, Y: a.y, Heading: a.heading, Speed: a.speed}
}

// Shape returns the rotated footprint for the current pose.
func (a *Agent) Shape() Shape { return a.shape }

// Shape is a footprint rectangle rotated to a heading.
type Shape struct {
	CenterX, CenterY      float64
	HalfLength, HalfWidth float64
	cos, sin              float64
}

func newShape(x, y, heading float64, fp FootprintConfig) Shape {
	c, s := direction(heading)
	return Shape{CenterX: x, CenterY: y, HalfLength: fp.Length / 2, HalfWidth: fp.Width / 2, cos: c, sin: s}
}

// Covers reports whether the point lies inside the rectangle, edges included.
func (s Shape) Covers(px, py float64) bool {
	const eps = 1e-9
	dx, dy := px-s.CenterX, py-s.CenterY
	along := dx*s.cos - dy*s.sin
	across := dx*s.sin + dy*s.cos
	return math.Abs(along) <= s.HalfLength+eps && math.Abs(across) <= s.HalfWidth+eps
}

// Corners returns the four corners, front-left first, clockwise on screen.
func (s Shape) Corners() [4][2]float64 {
	fx, fy := s.cos*s.HalfLength, -s.sin*s.HalfLength
	lx, ly := -s.sin*s.HalfWidth, -s.cos*s.HalfWidth
	return [4][2]float64{
		{s.CenterX + fx + lx, s.CenterY + fy + ly},
		{s.CenterX + fx - lx, s.CenterY + fy - ly},
		{s.CenterX - fx - lx, s.CenterY - fy - ly},
		{s.CenterX - fx + lx, s.CenterY - fy + ly},
	}
}

// overlaps tests every pixel whose center lies inside the shape.
func (s Shape) overlaps(track *Track) bool {
	if !finite(s.CenterX, s.CenterY) || math.Abs(s.CenterX) > positionLimit || math.Abs(s.CenterY) > positionLimit {
		return true
	}
	ex := math.Abs(s.cos)*s.HalfLength + math.Abs(s.sin)*s.HalfWidth
	ey := math.Abs(s.sin)*s.HalfLength + math.Abs(s.cos)*s.HalfWidth
	minX, maxX := int(math.Ceil(s.CenterX-ex-0.5)), int(math.Floor(s.CenterX+ex-0.5))
	minY, maxY := int(math.Ceil(s.CenterY-ey-0.5)), int(math.Floor(s.CenterY+ey-0.5))
	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			if !s.Covers(float64(px)+0.5, float64(py)+0.5) {
				continue
			}
			if track.IsObstacleAt(px, py) {
				return true
			}
		}
	}
	return false
}

func clampSpeed(v float64, kin KinematicsConfig) float64 {
	return max(kin.MinSpeed, min(v, kin.MaxSpeed))
}

func normalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// direction returns cos and sin of an angle in degrees. Components within 1e-12
// of zero are snapped to zero so axis-aligned motion stays exact.
func direction(deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	if math.Abs(c) < 1e-12 {
		c = 0
	}
	if math.Abs(s) < 1e-12 {
		s = 0
	}
	return c, s
}

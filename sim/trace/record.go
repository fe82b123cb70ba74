// Package trace provides records of a generation for visualization and export.
// It does not import sim, so a renderer can consume snapshots without touching
// simulation state.
package trace

// DeathRecord captures the tick an agent collided.
type DeathRecord struct {
	Agent   int     `json:"agent"`
	Frame   int     `json:"frame"`
	Fitness float64 `json:"fitness"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// RayRecord captures one sensor ray.
type RayRecord struct {
	Angle    float64 `json:"angle"`
	Distance float64 `json:"distance"`
	EndX     float64 `json:"end_x"`
	EndY     float64 `json:"end_y"`
}

// AgentSnapshot is the read-only state of one agent at a frame.
type AgentSnapshot struct {
	Agent   int           `json:"agent"`
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	Heading float64       `json:"heading"`
	Speed   float64       `json:"speed"`
	Fitness float64       `json:"fitness"`
	Alive   bool          `json:"alive"`
	Corners [4][2]float64 `json:"corners"`
	Rays    []RayRecord   `json:"rays,omitempty"` // nil for dead agents
}

// FrameRecord captures every agent of a generation after a tick.
type FrameRecord struct {
	Frame  int             `json:"frame"`
	Live   int             `json:"live"`
	Agents []AgentSnapshot `json:"agents"`
}

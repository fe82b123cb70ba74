package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/racetrack-sim/racetrack-sim/sim/trace"
)

// ErrGenerationFinished is returned when a finished generation is run again.
var ErrGenerationFinished = errors.New("generation already finished")

// GenerationState is the state of the evaluation loop.
type GenerationState int

const (
	StateRunning GenerationState = iota
	StateDone
)

func (s GenerationState) String() string {
	if s == StateDone {
		return "DONE"
	}
	return "RUNNING"
}

// TerminationReason tells why a generation reached StateDone.
type TerminationReason string

const (
	ReasonExtinct  TerminationReason = "extinct"   // the live set became empty
	ReasonFrameCap TerminationReason = "frame-cap" // MaxFrames ticks were simulated
	ReasonStopped  TerminationReason = "stopped"   // ended early by a stop signal
)

// GenerationResult is the outcome of one generation. Slices are indexed like
// the controllers passed to NewGeneration.
type GenerationResult struct {
	Frames      int
	Reason      TerminationReason
	Fitness     []float64
	DeathFrames []int // tick of death, -1 for agents alive at the end
	Survivors   int
	Violations  int // controller actions that broke the action contract
	Trace       *trace.GenerationTrace
	WallTime    time.Duration
}

// entry pairs an agent with its controller.
type entry struct {
	index      int
	agent      *Agent
	controller Controller
	deathFrame int
	violations int
}

// Generation drives one population of agents tick by tick.
//
// Within a tick every live agent is sensed, acted, advanced and collision
// checked against the live set as it stood at the start of the tick. Dead
// agents are removed only once the whole tick has been processed.
type Generation struct {
	config  Config
	track   *Track
	sensors *SensorArray
	entries []*entry // every agent, controller order
	live    []*entry // replaced, never edited in place
	frame   int
	state   GenerationState
	reason  TerminationReason
	trace   *trace.GenerationTrace
	result  *GenerationResult
	started time.Time
}

// NewGeneration validates the setup and places one agent per controller at the start pose.
func NewGeneration(cfg Config, track *Track, controllers []Controller) (*Generation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if track == nil {
		return nil, fmt.Errorf("%w: track surface not provided", ErrInvalidConfig)
	}
	if track.Width() != cfg.World.Width || track.Height() != cfg.World.Height {
		return nil, fmt.Errorf("%w: track is %dx%d but world is %dx%d",
			ErrInvalidConfig, track.Width(), track.Height(), cfg.World.Width, cfg.World.Height)
	}
	sensors, err := NewSensorArray(cfg.Sensors)
	if err != nil {
		return nil, err
	}

	g := &Generation{
		config:  cfg,
		track:   track,
		sensors: sensors,
		entries: make([]*entry, len(controllers)),
		state:   StateRunning,
		started: time.Now(),
	}
	for i, c := range controllers {
		if c == nil {
			return nil, fmt.Errorf("%w: controller %d is nil", ErrInvalidConfig, i)
		}
		g.entries[i] = &entry{
			index:      i,
			agent:      NewAgent(cfg.Start, cfg.Kinematics, cfg.Footprint),
			controller: c,
			deathFrame: -1,
		}
	}
	g.live = append([]*entry(nil), g.entries...)
	if len(g.live) == 0 {
		g.done(ReasonExtinct)
	}
	return g, nil
}

// SetTrace enables trace recording. Call it before the first Step.
func (g *Generation) SetTrace(config trace.Config) {
	g.trace = trace.NewGenerationTrace(config)
}

// State returns the loop state.
func (g *Generation) State() GenerationState { return g.state }

// Frame returns the number of ticks simulated so far.
func (g *Generation) Frame() int { return g.frame }

// LiveCount returns the size of the live set.
func (g *Generation) LiveCount() int { return len(g.live) }

// Sensors returns the sensor array shared by every agent.
func (g *Generation) Sensors() *SensorArray { return g.sensors }

// Step simulates one tick and reports whether the generation is still running.
func (g *Generation) Step() bool {
	if g.state == StateDone {
		return false
	}
	snapshot := g.live

	if workers := g.config.Generation.Workers; workers > 1 && len(snapshot) > 1 {
		var eg errgroup.Group
		eg.SetLimit(workers)
		for _, e := range snapshot {
			e := e
			eg.Go(func() error {
				g.tick(e)
				return nil
			})
		}
		_ = eg.Wait()
	} else {
		for _, e := range snapshot {
			g.tick(e)
		}
	}
	g.frame++

	// Removal set is computed only after every agent finished this tick.
	next := make([]*entry, 0, len(snapshot))
	for _, e := range snapshot {
		if e.agent.Alive() {
			next = append(next, e)
			continue
		}
		e.deathFrame = g.frame
		if g.trace.Enabled() {
			x, y := e.agent.Position()
			g.trace.RecordDeath(trace.DeathRecord{
				Agent: e.index, Frame: g.frame, Fitness: e.agent.Fitness(),
				X: x, Y: y, Heading: e.agent.Heading(),
			})
		}
	}
	if removed := len(snapshot) - len(next); removed > 0 {
		logrus.Debugf("[frame %06d] %d agents collided, %d live", g.frame, removed, len(next))
	}
	g.live = next

	if g.trace.WantsFrame(g.frame) {
		g.trace.RecordFrame(g.Snapshot(true))
	}

	switch {
	case len(g.live) == 0:
		g.done(ReasonExtinct)
	case g.frame >= g.config.Generation.MaxFrames:
		g.done(ReasonFrameCap)
	}
	return g.state == StateRunning
}

// tick runs one agent through sense, act, move and collide. It touches only
// the entry's own state.
func (g *Generation) tick(e *entry) {
	reading := g.sensors.Read(e.agent, g.track)
	raw, err := safeAct(e.controller, reading)
	steer, throttle, violation := NormalizeAction(raw)
	if err != nil || violation {
		e.violations++
		if e.violations == 1 {
			logrus.Warnf("[frame %06d] agent %d: invalid action %v (err=%v); normalized to steer=%.2f throttle=%.2f",
				g.frame+1, e.index, raw, err, steer, throttle)
		}
	}
	e.agent.ApplyAction(steer, throttle)
	e.agent.Advance()
	e.agent.CheckCollision(g.track)
}

func (g *Generation) done(reason TerminationReason) {
	g.state = StateDone
	g.reason = reason
}

// Run steps until the generation is done or ctx is cancelled, then reports
// fitness to every controller. Cancellation takes effect at a tick boundary
// and scores agents exactly like the frame cap does.
func (g *Generation) Run(ctx context.Context) (*GenerationResult, error) {
	if g.result != nil {
		return nil, ErrGenerationFinished
	}
	for g.state == StateRunning {
		if err := ctx.Err(); err != nil {
			logrus.Infof("[frame %06d] generation stopped: %v", g.frame, err)
			break
		}
		g.Step()
	}
	return g.Finish(), nil
}

// Finish ends the generation at the current tick boundary and reports every
// agent's fitness to its controller exactly once. Later calls return the same result.
func (g *Generation) Finish() *GenerationResult {
	if g.result != nil {
		return g.result
	}
	if g.state == StateRunning {
		g.done(ReasonStopped)
	}

	res := &GenerationResult{
		Frames:      g.frame,
		Reason:      g.reason,
		Fitness:     make([]float64, len(g.entries)),
		DeathFrames: make([]int, len(g.entries)),
		Survivors:   len(g.live),
		Trace:       g.trace,
		WallTime:    time.Since(g.started),
	}
	for i, e := range g.entries {
		res.Fitness[i] = e.agent.Fitness()
		res.DeathFrames[i] = e.deathFrame
		res.Violations += e.violations
		reportFitness(e, res.Fitness[i])
	}
	g.result = res

	logrus.Infof("[frame %06d] generation done (%s): %d agents, %d survivors",
		g.frame, g.reason, len(g.entries), res.Survivors)
	return res
}

func reportFitness(e *entry, fitness float64) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Warnf("agent %d: ReportFitness panicked: %v", e.index, r)
		}
	}()
	e.controller.ReportFitness(fitness)
}

// Snapshot returns an immutable copy of every agent's state. With rays set,
// live agents include their sensor rays.
func (g *Generation) Snapshot(rays bool) trace.FrameRecord {
	rec := trace.FrameRecord{
		Frame:  g.frame,
		Live:   len(g.live),
		Agents: make([]trace.AgentSnapshot, len(g.entries)),
	}
	for i, e := range g.entries {
		a := e.agent
		snap := trace.AgentSnapshot{
			Agent:   e.index,
			X:       a.x,
			Y:       a.y,
			Heading: a.heading,
			Speed:   a.speed,
			Fitness: a.fitness,
			Alive:   a.alive,
			Corners: a.shape.Corners(),
		}
		if rays && a.alive {
			for _, r := range g.sensors.Cast(a, g.track) {
				snap.Rays = append(snap.Rays, trace.RayRecord{Angle: r.Angle, Distance: r.Distance, EndX: r.EndX, EndY: r.EndY})
			}
		}
		rec.Agents[i] = snap
	}
	return rec
}

// Evaluate runs one generation for the given population and returns its result.
func Evaluate(ctx context.Context, cfg Config, track *Track, controllers []Controller) (*GenerationResult, error) {
	g, err := NewGeneration(cfg, track, controllers)
	if err != nil {
		return nil, err
	}
	return g.Run(ctx)
}

package sim

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig wraps every setup error. A generation refuses to start when
// its configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Throttle modes.
const (
	// ThrottleClamped adds throttle*AccelRate to the speed and clamps it to [MinSpeed, MaxSpeed].
	ThrottleClamped = "clamped"
	// ThrottleFixed ignores throttle; the agent keeps its start speed and only steers.
	ThrottleFixed = "fixed"
)

// ValidThrottleModes is the set of recognized throttle mode names.
var ValidThrottleModes = map[string]bool{"": true, ThrottleClamped: true, ThrottleFixed: true}

// WorldConfig is the logical coordinate space. The track surface must have exactly this resolution.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Pose is a position plus heading in degrees (0 = +x, counter-clockwise).
type Pose struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Heading float64 `yaml:"heading"`
	Speed   float64 `yaml:"speed"` // initial speed; must lie in [MinSpeed, MaxSpeed]
}

// KinematicsConfig groups steering and speed parameters.
type KinematicsConfig struct {
	TurnRate     float64 `yaml:"turn_rate"`  // degrees per unit of steer
	MaxSpeed     float64 `yaml:"max_speed"`  // units per tick
	MinSpeed     float64 `yaml:"min_speed"`  // units per tick, must be >= 0
	AccelRate    float64 `yaml:"accel_rate"` // speed change per unit of throttle
	ThrottleMode string  `yaml:"throttle_mode"`
}

// FootprintConfig is the vehicle rectangle used for collision testing.
type FootprintConfig struct {
	Length float64 `yaml:"length"` // along the heading
	Width  float64 `yaml:"width"`  // across the heading
}

// SensorConfig groups ray-cast parameters shared by every agent of every generation.
type SensorConfig struct {
	RayAngles    []float64 `yaml:"ray_angles"` // degrees relative to heading
	MaxRayLength float64   `yaml:"max_ray_length"`
	Step         float64   `yaml:"step"`
}

// GenerationConfig groups evaluation loop parameters.
type GenerationConfig struct {
	MaxFrames int `yaml:"max_frames"`
	Workers   int `yaml:"workers"` // <= 1 processes the live set sequentially
}

// Config is the full constants surface of the simulation core.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Start      Pose             `yaml:"start"`
	Kinematics KinematicsConfig `yaml:"kinematics"`
	Footprint  FootprintConfig  `yaml:"footprint"`
	Sensors    SensorConfig     `yaml:"sensors"`
	Generation GenerationConfig `yaml:"generation"`
}

// NewWorldConfig creates a WorldConfig. No defaults are injected.
func NewWorldConfig(width, height int) WorldConfig {
	return WorldConfig{Width: width, Height: height}
}

// NewKinematicsConfig creates a KinematicsConfig in clamped throttle mode.
func NewKinematicsConfig(turnRate, minSpeed, maxSpeed, accelRate float64) KinematicsConfig {
	return KinematicsConfig{
		TurnRate:     turnRate,
		MinSpeed:     minSpeed,
		MaxSpeed:     maxSpeed,
		AccelRate:    accelRate,
		ThrottleMode: ThrottleClamped,
	}
}

// NewSensorConfig creates a SensorConfig. The angle slice is copied.
func NewSensorConfig(angles []float64, maxRayLength, step float64) SensorConfig {
	return SensorConfig{
		RayAngles:    append([]float64(nil), angles...),
		MaxRayLength: maxRayLength,
		Step:         step,
	}
}

// NewGenerationConfig creates a GenerationConfig.
func NewGenerationConfig(maxFrames, workers int) GenerationConfig {
	return GenerationConfig{MaxFrames: maxFrames, Workers: workers}
}

// DefaultConfig returns the constants of the reference track (track 1).
func DefaultConfig() Config {
	return Config{
		World: NewWorldConfig(1920, 1080),
		// sprite top-left (960, 835) plus half the 60x30 footprint
		Start:      Pose{X: 990, Y: 850, Heading: 180, Speed: 2},
		Kinematics: NewKinematicsConfig(5, 2, 10, 0.5),
		Footprint:  FootprintConfig{Length: 60, Width: 30},
		Sensors:    NewSensorConfig([]float64{-60, -30, 0, 30, 60}, 200, 5),
		Generation: NewGenerationConfig(1000, 1),
	}
}

// Validate checks the configuration for setup errors. Every returned error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("%w: world size must be positive, got %dx%d", ErrInvalidConfig, c.World.Width, c.World.Height)
	}
	if err := c.Kinematics.validate(); err != nil {
		return err
	}
	if !finite(c.Start.X, c.Start.Y, c.Start.Heading, c.Start.Speed) {
		return fmt.Errorf("%w: start pose must be finite", ErrInvalidConfig)
	}
	if c.Start.Speed < c.Kinematics.MinSpeed || c.Start.Speed > c.Kinematics.MaxSpeed {
		return fmt.Errorf("%w: start speed %g outside [%g, %g]",
			ErrInvalidConfig, c.Start.Speed, c.Kinematics.MinSpeed, c.Kinematics.MaxSpeed)
	}
	if !finite(c.Footprint.Length, c.Footprint.Width) || c.Footprint.Length <= 0 || c.Footprint.Width <= 0 {
		return fmt.Errorf("%w: footprint must be positive, got %gx%g", ErrInvalidConfig, c.Footprint.Length, c.Footprint.Width)
	}
	if limit := float64(max(c.World.Width, c.World.Height)); c.Footprint.Length > limit || c.Footprint.Width > limit {
		return fmt.Errorf("%w: footprint %gx%g exceeds the world (%g)",
			ErrInvalidConfig, c.Footprint.Length, c.Footprint.Width, limit)
	}
	if err := c.Sensors.validate(); err != nil {
		return err
	}
	if c.Generation.MaxFrames <= 0 {
		return fmt.Errorf("%w: max_frames must be positive, got %d", ErrInvalidConfig, c.Generation.MaxFrames)
	}
	if c.Generation.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Generation.Workers)
	}
	return nil
}

func (k KinematicsConfig) validate() error {
	if !finite(k.TurnRate, k.MinSpeed, k.MaxSpeed, k.AccelRate) {
		return fmt.Errorf("%w: kinematics must be finite", ErrInvalidConfig)
	}
	if k.MinSpeed < 0 {
		return fmt.Errorf("%w: min_speed must be non-negative, got %g", ErrInvalidConfig, k.MinSpeed)
	}
	if k.MinSpeed > k.MaxSpeed {
		return fmt.Errorf("%w: min_speed %g exceeds max_speed %g", ErrInvalidConfig, k.MinSpeed, k.MaxSpeed)
	}
	if !ValidThrottleModes[k.ThrottleMode] {
		return fmt.Errorf("%w: unknown throttle mode %q", ErrInvalidConfig, k.ThrottleMode)
	}
	return nil
}

// MaxRaySamples bounds the number of samples a single ray may take.
const MaxRaySamples = 1_000_000

func (s SensorConfig) validate() error {
	if len(s.RayAngles) == 0 {
		return fmt.Errorf("%w: ray angle set is empty", ErrInvalidConfig)
	}
	if !finite(s.RayAngles...) {
		return fmt.Errorf("%w: ray angles must be finite", ErrInvalidConfig)
	}
	if !finite(s.MaxRayLength, s.Step) || s.MaxRayLength <= 0 || s.Step <= 0 {
		return fmt.Errorf("%w: max_ray_length and step must be positive, got %g and %g",
			ErrInvalidConfig, s.MaxRayLength, s.Step)
	}
	if n := s.MaxRayLength / s.Step; n > MaxRaySamples {
		return fmt.Errorf("%w: max_ray_length/step is %g samples per ray, limit is %d",
			ErrInvalidConfig, n, MaxRaySamples)
	}
	return nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Package training runs the evolver through successive generations on one
// track, keeps the best controller seen and persists it.
package training

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/racetrack-sim/racetrack-sim/sim"
	"github.com/racetrack-sim/racetrack-sim/sim/neuro"
	"github.com/racetrack-sim/racetrack-sim/sim/storage"
)

// ErrInvalidTrainingConfig wraps every training setup error.
var ErrInvalidTrainingConfig = errors.New("invalid training configuration")

// Stop reasons reported in Result.
const (
	StopCompleted = "completed" // every generation ran
	StopThreshold = "threshold" // the champion reached FitnessThreshold
	StopCancelled = "cancelled" // the context was cancelled
)

// Config groups run-level parameters.
type Config struct {
	Generations      int     `yaml:"generations"`
	FitnessThreshold float64 `yaml:"fitness_threshold"` // <= 0 disables early stopping
	RunID            string  `yaml:"run_id"`            // generated when empty
}

// DefaultConfig returns the reference run length.
func DefaultConfig() Config {
	return Config{Generations: 500}
}

func (c Config) Validate() error {
	if c.Generations <= 0 {
		return fmt.Errorf("%w: generations must be > 0, got %d", ErrInvalidTrainingConfig, c.Generations)
	}
	return nil
}

// Result describes a finished run.
type Result struct {
	RunID              string
	StopReason         string
	Generations        int
	Champion           *neuro.Genome // nil only if no generation completed
	ChampionFitness    float64
	ChampionGeneration int
	RecordID           string // ID of the saved controller, empty without a store
	Metrics            *sim.RunMetrics
}

// Trainer owns one training run.
type Trainer struct {
	config  Config
	sim     sim.Config
	track   *sim.Track
	evolver *neuro.Evolver
	store   storage.Store // may be nil
}

// NewTrainer validates the configuration. store may be nil to skip persistence;
// a non-nil store must already be initialized.
func NewTrainer(cfg Config, simCfg sim.Config, track *sim.Track, evolver *neuro.Evolver, store storage.Store) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := simCfg.Validate(); err != nil {
		return nil, err
	}
	if track == nil {
		return nil, fmt.Errorf("%w: track is required", ErrInvalidTrainingConfig)
	}
	if evolver == nil {
		return nil, fmt.Errorf("%w: evolver is required", ErrInvalidTrainingConfig)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &Trainer{config: cfg, sim: simCfg, track: track, evolver: evolver, store: store}, nil
}

// RunID returns the identifier the run's records are saved under.
func (t *Trainer) RunID() string { return t.config.RunID }

// Run evaluates generations until the configured count is reached, the
// champion reaches the fitness threshold or ctx is cancelled. A cancelled
// generation still counts and its agents are scored at the tick it stopped.
// The champion and the fitness history are saved even after cancellation.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:              t.config.RunID,
		StopReason:         StopCompleted,
		ChampionGeneration: -1,
		Metrics:            sim.NewRunMetrics(t.config.RunID),
	}

	for gen := 0; gen < t.config.Generations; gen++ {
		if ctx.Err() != nil {
			res.StopReason = StopCancelled
			break
		}
		outcome, err := sim.Evaluate(ctx, t.sim, t.track, t.evolver.Controllers())
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen, err)
		}
		gm := sim.NewGenerationMetrics(gen, outcome)
		res.Metrics.Add(gm)
		res.Generations = gen + 1

		best := t.evolver.Best()
		if res.Champion == nil || best.Fitness > res.ChampionFitness {
			res.Champion = best.Genome.Clone()
			res.ChampionFitness = best.Fitness
			res.ChampionGeneration = gen
		}
		logrus.Infof("generation %d: best %.2f mean %.2f survivors %d/%d (%s), champion %.2f",
			gen, gm.Best, gm.Mean, gm.Survivors, gm.Population, gm.Reason, res.ChampionFitness)

		if outcome.Reason == sim.ReasonStopped {
			res.StopReason = StopCancelled
			break
		}
		if t.config.FitnessThreshold > 0 && res.ChampionFitness >= t.config.FitnessThreshold {
			res.StopReason = StopThreshold
			break
		}
		if gen < t.config.Generations-1 {
			t.evolver.Evolve()
		}
	}

	if err := t.save(context.WithoutCancel(ctx), res); err != nil {
		return res, err
	}
	return res, nil
}

func (t *Trainer) save(ctx context.Context, res *Result) error {
	if t.store == nil || res.Champion == nil {
		return nil
	}
	record := storage.NewControllerRecord(uuid.NewString(), res.RunID, res.ChampionGeneration, res.ChampionFitness, res.Champion)
	if err := t.store.SaveController(ctx, record); err != nil {
		return fmt.Errorf("saving champion: %w", err)
	}
	if err := t.store.SaveFitnessHistory(ctx, res.RunID, res.Metrics.FitnessHistory()); err != nil {
		return fmt.Errorf("saving fitness history: %w", err)
	}
	res.RecordID = record.ID
	logrus.Infof("saved champion %s (fitness %.2f, generation %d) as %s",
		res.Champion.ID, res.ChampionFitness, res.ChampionGeneration, record.ID)
	return nil
}

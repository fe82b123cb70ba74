package neuro

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/racetrack-sim/racetrack-sim/sim"
)

// ErrInvalidEvolverConfig wraps every evolver setup error.
var ErrInvalidEvolverConfig = errors.New("invalid evolver configuration")

// EvolverConfig groups population and mutation parameters.
type EvolverConfig struct {
	PopulationSize int     `yaml:"population_size"`
	EliteCount     int     `yaml:"elite_count"`   // genomes copied unchanged into the next generation
	HiddenLayers   []int   `yaml:"hidden_layers"` // neurons per hidden layer
	MutationRate   float64 `yaml:"mutation_rate"` // per-gene probability in [0, 1]
	MutationPower  float64 `yaml:"mutation_power"`
	WeightInit     float64 `yaml:"weight_init"` // initial weights are uniform in [-WeightInit, WeightInit]
}

// DefaultEvolverConfig returns the reference evolver settings.
func DefaultEvolverConfig() EvolverConfig {
	return EvolverConfig{
		PopulationSize: 30,
		EliteCount:     3,
		HiddenLayers:   []int{6},
		MutationRate:   0.8,
		MutationPower:  0.5,
		WeightInit:     1.0,
	}
}

func (c EvolverConfig) Validate() error {
	if c.PopulationSize <= 0 {
		return fmt.Errorf("%w: population_size must be > 0, got %d", ErrInvalidEvolverConfig, c.PopulationSize)
	}
	if c.EliteCount <= 0 || c.EliteCount > c.PopulationSize {
		return fmt.Errorf("%w: elite_count must be in [1, %d], got %d", ErrInvalidEvolverConfig, c.PopulationSize, c.EliteCount)
	}
	for i, n := range c.HiddenLayers {
		if n <= 0 {
			return fmt.Errorf("%w: hidden layer %d has %d neurons", ErrInvalidEvolverConfig, i, n)
		}
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: mutation_rate must be in [0, 1], got %g", ErrInvalidEvolverConfig, c.MutationRate)
	}
	if c.MutationPower <= 0 {
		return fmt.Errorf("%w: mutation_power must be > 0, got %g", ErrInvalidEvolverConfig, c.MutationPower)
	}
	if c.WeightInit <= 0 {
		return fmt.Errorf("%w: weight_init must be > 0, got %g", ErrInvalidEvolverConfig, c.WeightInit)
	}
	return nil
}

// ScoredGenome pairs a genome with the fitness it was ranked by.
type ScoredGenome struct {
	Genome  *Genome
	Fitness float64
}

// Evolver owns a population of genomes and breeds the next generation from
// the fitness each genome was reported. It is not safe for concurrent use.
type Evolver struct {
	config     EvolverConfig
	inputs     int
	outputs    int
	population []*Genome
	generation int
	mutation   *rand.Rand
	identity   *rand.Rand
}

// NewEvolver creates a seeded random population for networks with the given
// input and output sizes. inputScale multiplies every sensor reading.
func NewEvolver(cfg EvolverConfig, inputs, outputs int, inputScale float64, rngs *sim.PartitionedRNG) (*Evolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if inputs <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("%w: inputs and outputs must be positive, got %d/%d", ErrInvalidEvolverConfig, inputs, outputs)
	}
	e := &Evolver{
		config:   cfg,
		inputs:   inputs,
		outputs:  outputs,
		mutation: rngs.ForSubsystem(sim.SubsystemMutation),
		identity: rngs.ForSubsystem(sim.SubsystemIdentity),
	}
	initRNG := rngs.ForSubsystem(sim.SubsystemPopulation)
	e.population = make([]*Genome, cfg.PopulationSize)
	for i := range e.population {
		e.population[i] = NewRandomGenome(initRNG, NewGenomeID(e.identity), inputs, cfg.HiddenLayers, outputs, inputScale, cfg.WeightInit)
	}
	return e, nil
}

// Generation returns how many times Evolve has run.
func (e *Evolver) Generation() int { return e.generation }

// Population returns the current genomes.
func (e *Evolver) Population() []*Genome { return e.population }

// Controllers returns the current population as controllers, in population order.
func (e *Evolver) Controllers() []sim.Controller {
	out := make([]sim.Controller, len(e.population))
	for i, g := range e.population {
		out[i] = g
	}
	return out
}

// Ranked returns the population sorted by reported fitness, best first.
// Genomes without a reported fitness rank as zero; ties keep population order.
func (e *Evolver) Ranked() []ScoredGenome {
	ranked := make([]ScoredGenome, len(e.population))
	for i, g := range e.population {
		f, _ := g.Fitness()
		ranked[i] = ScoredGenome{Genome: g, Fitness: f}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Fitness > ranked[j].Fitness })
	return ranked
}

// Best returns the highest scoring genome of the current population.
func (e *Evolver) Best() ScoredGenome {
	return e.Ranked()[0]
}

// Evolve replaces the population: the EliteCount best genomes survive
// unchanged and the rest are mutated clones of uniformly chosen elites.
func (e *Evolver) Evolve() {
	ranked := e.Ranked()
	next := make([]*Genome, 0, len(e.population))
	for _, s := range ranked[:e.config.EliteCount] {
		elite := s.Genome.Clone()
		elite.resetFitness()
		next = append(next, elite)
	}
	mutated := 0
	for len(next) < len(e.population) {
		parent := ranked[e.mutation.Intn(e.config.EliteCount)].Genome
		child := parent.Clone()
		child.resetFitness()
		child.ParentID = parent.ID
		child.ID = NewGenomeID(e.identity)
		mutated += child.mutate(e.mutation, e.config.MutationRate, e.config.MutationPower)
		next = append(next, child)
	}
	logrus.Debugf("evolver generation %d: best %.2f, %d genes mutated", e.generation, ranked[0].Fitness, mutated)
	e.population = next
	e.generation++
}

package neuro

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racetrack-sim/racetrack-sim/sim"
)

func testEvolver(t *testing.T, seed int64) *Evolver {
	t.Helper()
	cfg := DefaultEvolverConfig()
	cfg.PopulationSize = 6
	cfg.EliteCount = 2
	e, err := NewEvolver(cfg, 5, sim.ActionSize, 1.0/200, sim.NewPartitionedRNG(sim.NewSimulationKey(seed)))
	require.NoError(t, err)
	return e
}

func TestEvolverConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultEvolverConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*EvolverConfig)
	}{
		{"empty population", func(c *EvolverConfig) { c.PopulationSize = 0 }},
		{"no elites", func(c *EvolverConfig) { c.EliteCount = 0 }},
		{"more elites than genomes", func(c *EvolverConfig) { c.EliteCount = c.PopulationSize + 1 }},
		{"empty hidden layer", func(c *EvolverConfig) { c.HiddenLayers = []int{0} }},
		{"rate above one", func(c *EvolverConfig) { c.MutationRate = 1.5 }},
		{"zero power", func(c *EvolverConfig) { c.MutationPower = 0 }},
		{"zero init", func(c *EvolverConfig) { c.WeightInit = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultEvolverConfig()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidEvolverConfig)
		})
	}
}

func TestNewEvolver_DeterministicForSeed(t *testing.T) {
	a, b := testEvolver(t, 11), testEvolver(t, 11)
	for i := range a.Population() {
		assert.Equal(t, a.Population()[i].ID, b.Population()[i].ID)
		assert.Equal(t, a.Population()[i].Layers, b.Population()[i].Layers)
	}

	c := testEvolver(t, 12)
	assert.NotEqual(t, a.Population()[0].Layers, c.Population()[0].Layers)
}

func TestEvolver_Evolve_KeepsElitesAndSize(t *testing.T) {
	// GIVEN a scored population where genomes 1 and 5 are best
	e := testEvolver(t, 5)
	for i, g := range e.Population() {
		g.ReportFitness(float64(i))
	}
	e.Population()[1].ReportFitness(100)
	best, second := e.Population()[1], e.Population()[5]

	// WHEN the next generation is bred
	e.Evolve()

	// THEN elites survive unchanged and unscored, children name an elite parent
	next := e.Population()
	require.Len(t, next, 6)
	assert.Equal(t, 1, e.Generation())
	assert.Equal(t, best.ID, next[0].ID)
	assert.Equal(t, best.Layers, next[0].Layers)
	assert.Equal(t, second.ID, next[1].ID)
	_, scored := next[0].Fitness()
	assert.False(t, scored)
	for _, child := range next[2:] {
		assert.Contains(t, []string{best.ID, second.ID}, child.ParentID)
		assert.NotEqual(t, child.ParentID, child.ID)
	}
}

func TestEvolver_Ranked_TiesKeepPopulationOrder(t *testing.T) {
	e := testEvolver(t, 1)
	ranked := e.Ranked()
	for i, s := range ranked {
		assert.Same(t, e.Population()[i], s.Genome)
		assert.Equal(t, 0.0, s.Fitness)
	}
}

func TestEvolver_DrivesGeneration(t *testing.T) {
	// GIVEN an open track and a seeded population
	cfg := sim.DefaultConfig()
	cfg.World = sim.NewWorldConfig(400, 200)
	cfg.Start = sim.Pose{X: 200, Y: 100, Heading: 0, Speed: 2}
	cfg.Footprint = sim.FootprintConfig{Length: 4, Width: 4}
	cfg.Generation.MaxFrames = 20
	track, err := sim.NewTrack(400, 200, func(x, y int) bool { return false })
	require.NoError(t, err)
	e := testEvolver(t, 3)

	// WHEN the population is evaluated
	res, err := sim.Evaluate(context.Background(), cfg, track, e.Controllers())
	require.NoError(t, err)

	// THEN every genome received exactly its agent's fitness
	require.Len(t, res.Fitness, 6)
	assert.Equal(t, 0, res.Violations)
	for i, g := range e.Population() {
		f, ok := g.Fitness()
		assert.True(t, ok)
		assert.Equal(t, res.Fitness[i], f)
		assert.GreaterOrEqual(t, f, 20*cfg.Kinematics.MinSpeed)
	}
}

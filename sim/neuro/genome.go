package neuro

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// Layer is a fully connected layer. Weights[o][i] connects input i to output o.
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Biases     []float64   `json:"biases"`
	Activation string      `json:"activation"`
}

// Genome is a feed-forward network that drives one agent. It implements
// sim.Controller: sensor distances are multiplied by InputScale, propagated
// through the layers, and the final layer's outputs are the raw action.
//
// Act does not mutate the genome, so different genomes may act concurrently.
type Genome struct {
	ID         string  `json:"id"`
	ParentID   string  `json:"parent_id,omitempty"`
	Inputs     int     `json:"inputs"`
	Outputs    int     `json:"outputs"`
	InputScale float64 `json:"input_scale"`
	Layers     []Layer `json:"layers"`

	mu      sync.Mutex
	fitness float64
	scored  bool
}

// NewRandomGenome builds a network with the given hidden layer sizes. Hidden
// layers use tanh and the output layer uses sigmoid so raw outputs land in
// [0, 1]. Weights and biases are drawn uniformly from [-weightInit, weightInit].
func NewRandomGenome(rng *rand.Rand, id string, inputs int, hidden []int, outputs int, inputScale, weightInit float64) *Genome {
	g := &Genome{ID: id, Inputs: inputs, Outputs: outputs, InputScale: inputScale}
	prev := inputs
	for i, size := range append(append([]int(nil), hidden...), outputs) {
		act := ActivationTanh
		if i == len(hidden) {
			act = ActivationSigmoid
		}
		layer := Layer{
			Weights:    make([][]float64, size),
			Biases:     make([]float64, size),
			Activation: act,
		}
		for o := range layer.Weights {
			layer.Weights[o] = make([]float64, prev)
			for in := range layer.Weights[o] {
				layer.Weights[o][in] = (rng.Float64()*2 - 1) * weightInit
			}
			layer.Biases[o] = (rng.Float64()*2 - 1) * weightInit
		}
		g.Layers = append(g.Layers, layer)
		prev = size
	}
	return g
}

// NewGenomeID returns a random UUID drawn from rng so that seeded runs name
// genomes identically.
func NewGenomeID(rng *rand.Rand) string {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Validate checks that the layer shapes chain from Inputs to Outputs and that
// every activation is registered.
func (g *Genome) Validate() error {
	if g.Inputs <= 0 || g.Outputs <= 0 {
		return fmt.Errorf("genome %s: inputs and outputs must be positive, got %d/%d", g.ID, g.Inputs, g.Outputs)
	}
	if len(g.Layers) == 0 {
		return fmt.Errorf("genome %s: no layers", g.ID)
	}
	prev := g.Inputs
	for i, layer := range g.Layers {
		if len(layer.Biases) != len(layer.Weights) {
			return fmt.Errorf("genome %s: layer %d has %d biases for %d neurons", g.ID, i, len(layer.Biases), len(layer.Weights))
		}
		for o, row := range layer.Weights {
			if len(row) != prev {
				return fmt.Errorf("genome %s: layer %d neuron %d has %d weights, want %d", g.ID, i, o, len(row), prev)
			}
		}
		if _, err := GetActivation(layer.Activation); err != nil {
			return fmt.Errorf("genome %s: layer %d: %w", g.ID, i, err)
		}
		prev = len(layer.Weights)
	}
	if prev != g.Outputs {
		return fmt.Errorf("genome %s: last layer has %d neurons, want %d outputs", g.ID, prev, g.Outputs)
	}
	return nil
}

// Act propagates a sensor reading. Readings shorter than Inputs are padded
// with zeros and longer ones are truncated. An invalid genome returns nil.
func (g *Genome) Act(sensors []float64) []float64 {
	values := make([]float64, g.Inputs)
	for i := range values {
		if i < len(sensors) {
			values[i] = sensors[i] * g.InputScale
		}
	}
	for _, layer := range g.Layers {
		fn, err := GetActivation(layer.Activation)
		if err != nil {
			return nil
		}
		next := make([]float64, len(layer.Weights))
		for o, row := range layer.Weights {
			if len(row) != len(values) {
				return nil
			}
			sum := layer.Biases[o]
			for i, w := range row {
				sum += w * values[i]
			}
			next[o] = fn(sum)
		}
		values = next
	}
	return values
}

// ReportFitness records the fitness of the generation the genome last took part in.
func (g *Genome) ReportFitness(fitness float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fitness = fitness
	g.scored = true
}

// Fitness returns the last reported fitness and whether one was reported.
func (g *Genome) Fitness() (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fitness, g.scored
}

func (g *Genome) resetFitness() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fitness, g.scored = 0, false
}

// Clone returns a deep copy carrying the same ID and fitness.
func (g *Genome) Clone() *Genome {
	fitness, scored := g.Fitness()
	out := &Genome{
		ID:         g.ID,
		ParentID:   g.ParentID,
		Inputs:     g.Inputs,
		Outputs:    g.Outputs,
		InputScale: g.InputScale,
		Layers:     make([]Layer, len(g.Layers)),
		fitness:    fitness,
		scored:     scored,
	}
	for i, layer := range g.Layers {
		cp := Layer{
			Weights:    make([][]float64, len(layer.Weights)),
			Biases:     append([]float64(nil), layer.Biases...),
			Activation: layer.Activation,
		}
		for o, row := range layer.Weights {
			cp.Weights[o] = append([]float64(nil), row...)
		}
		out.Layers[i] = cp
	}
	return out
}

// mutate perturbs each weight and bias with probability rate by a Gaussian
// delta scaled by power. It returns the number of genes changed.
func (g *Genome) mutate(rng *rand.Rand, rate, power float64) int {
	changed := 0
	perturb := func(v *float64) {
		if rng.Float64() >= rate {
			return
		}
		*v += rng.NormFloat64() * power
		changed++
	}
	for li := range g.Layers {
		layer := &g.Layers[li]
		for o := range layer.Weights {
			for i := range layer.Weights[o] {
				perturb(&layer.Weights[o][i])
			}
			perturb(&layer.Biases[o])
		}
	}
	if changed == 0 {
		layer := &g.Layers[rng.Intn(len(g.Layers))]
		o := rng.Intn(len(layer.Weights))
		i := rng.Intn(len(layer.Weights[o]))
		layer.Weights[o][i] += rng.NormFloat64() * power
		changed = 1
	}
	return changed
}

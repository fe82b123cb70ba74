// Tracks per-generation and per-run training statistics such as:
// best/mean fitness, survivors, ticks simulated and termination reasons.

package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// GenerationMetrics summarizes one generation.
type GenerationMetrics struct {
	Generation int     `json:"generation"`
	Population int     `json:"population"`
	Frames     int     `json:"frames"`
	Reason     string  `json:"reason"`
	Survivors  int     `json:"survivors"`
	BestAgent  int     `json:"best_agent"`
	Best       float64 `json:"best_fitness"`
	Mean       float64 `json:"mean_fitness"`
	Median     float64 `json:"median_fitness"`
	P90        float64 `json:"p90_fitness"`
	AgentTicks int64   `json:"agent_ticks"` // sum over agents of ticks simulated while alive
	Violations int     `json:"violations"`
	WallTimeMs float64 `json:"wall_time_ms"`
}

// NewGenerationMetrics computes the metrics of a finished generation.
func NewGenerationMetrics(generation int, res *GenerationResult) GenerationMetrics {
	m := GenerationMetrics{
		Generation: generation,
		Population: len(res.Fitness),
		Frames:     res.Frames,
		Reason:     string(res.Reason),
		Survivors:  res.Survivors,
		BestAgent:  argMax(res.Fitness),
		Mean:       CalculateMean(res.Fitness),
		Median:     CalculatePercentile(res.Fitness, 50),
		P90:        CalculatePercentile(res.Fitness, 90),
		Violations: res.Violations,
		WallTimeMs: float64(res.WallTime.Microseconds()) / 1000,
	}
	if m.BestAgent >= 0 {
		m.Best = res.Fitness[m.BestAgent]
	}
	for _, death := range res.DeathFrames {
		if death < 0 {
			m.AgentTicks += int64(res.Frames)
		} else {
			m.AgentTicks += int64(death)
		}
	}
	return m
}

// RunMetrics aggregates the generations of one training run.
type RunMetrics struct {
	RunID          string              `json:"run_id"`
	Generations    []GenerationMetrics `json:"generations"`
	BestFitness    float64             `json:"best_fitness"`
	BestGeneration int                 `json:"best_generation"`
	TotalTicks     int64               `json:"total_agent_ticks"`
}

// NewRunMetrics creates an empty RunMetrics.
func NewRunMetrics(runID string) *RunMetrics {
	return &RunMetrics{RunID: runID, Generations: make([]GenerationMetrics, 0), BestGeneration: -1}
}

// Add appends a generation and updates the run-level best.
func (m *RunMetrics) Add(gm GenerationMetrics) {
	if m.BestGeneration < 0 || gm.Best > m.BestFitness {
		m.BestFitness = gm.Best
		m.BestGeneration = gm.Generation
	}
	m.TotalTicks += gm.AgentTicks
	m.Generations = append(m.Generations, gm)
}

// FitnessHistory returns the best fitness of every generation in order.
func (m *RunMetrics) FitnessHistory() []float64 {
	out := make([]float64, len(m.Generations))
	for i, g := range m.Generations {
		out[i] = g.Best
	}
	return out
}

// Print writes a human-readable summary.
func (m *RunMetrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Training Metrics ===")
	fmt.Fprintf(w, "Run ID               : %s\n", m.RunID)
	fmt.Fprintf(w, "Generations          : %d\n", len(m.Generations))
	fmt.Fprintf(w, "Agent ticks simulated: %s\n", humanize.Comma(m.TotalTicks))
	if len(m.Generations) > 0 {
		last := m.Generations[len(m.Generations)-1]
		fmt.Fprintf(w, "Best fitness         : %.2f (generation %d)\n", m.BestFitness, m.BestGeneration)
		fmt.Fprintf(w, "Last generation      : best %.2f, mean %.2f, survivors %d/%d (%s)\n",
			last.Best, last.Mean, last.Survivors, last.Population, last.Reason)
	}
}

// SaveResults writes the metrics as indented JSON to path.
func (m *RunMetrics) SaveResults(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	logrus.Debugf("Successfully wrote metrics to '%s'", path)
	return nil
}

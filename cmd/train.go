package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/racetrack-sim/racetrack-sim/sim"
	"github.com/racetrack-sim/racetrack-sim/sim/neuro"
	"github.com/racetrack-sim/racetrack-sim/sim/storage"
	"github.com/racetrack-sim/racetrack-sim/sim/training"
)

var (
	// Flags shared by train and replay
	storeKind string // Controller store backend: memory, file or sqlite
	storePath string // JSON file or SQLite database of the store

	// CLI flags for training runs
	generations      int     // Number of generations to evolve
	population       int     // Genomes per generation
	seed             int64   // Seed for the initial population and mutations
	workers          int     // Parallel tick workers per generation
	metricsOut       string  // Path for the JSON run metrics
	fitnessThreshold float64 // Stop once the champion reaches this fitness
)

// trainCmd evolves controllers on the configured track
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Evolve controllers on a track and save the champion",
	Run: func(cmd *cobra.Command, args []string) {
		b, err := loadBundle(configPath, trackPath)
		if err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
		applyTrainFlags(cmd.Flags().Changed, b)

		// Ctrl-C stops the current generation at a tick boundary; the champion is still saved.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := runTrain(ctx, b, seed, storeKind, storePath, metricsOut, os.Stdout); err != nil {
			logrus.Fatalf("Training failed: %v", err)
		}
		logrus.Info("Training complete.")
	},
}

// applyTrainFlags copies explicitly set flags over the file values so that
// defaults never overwrite the config file.
func applyTrainFlags(changed func(name string) bool, b *bundle) {
	if changed("generations") {
		b.Training.Generations = generations
	}
	if changed("population") {
		b.Evolver.PopulationSize = population
	}
	if changed("workers") {
		b.Simulation.Generation.Workers = workers
	}
	if changed("fitness-threshold") {
		b.Training.FitnessThreshold = fitnessThreshold
	}
}

// runTrain builds the evolver, store and trainer from b and runs them. The
// metrics summary is printed to out.
func runTrain(ctx context.Context, b *bundle, seed int64, kind, path, metricsPath string, out io.Writer) (*training.Result, error) {
	if err := b.Simulation.Validate(); err != nil {
		return nil, err
	}
	track, err := b.loadTrack()
	if err != nil {
		return nil, err
	}
	sensors := b.Simulation.Sensors
	evolver, err := neuro.NewEvolver(b.Evolver, len(sensors.RayAngles), sim.ActionSize, 1/sensors.MaxRayLength,
		sim.NewPartitionedRNG(sim.NewSimulationKey(seed)))
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(kind, path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("opening %s store: %w", kind, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.Warnf("closing store: %v", err)
		}
	}()

	trainer, err := training.NewTrainer(b.Training, b.Simulation, track, evolver, store)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Starting run %s: %d generations of %d genomes on %s (%dx%d), seed %d",
		trainer.RunID(), b.Training.Generations, b.Evolver.PopulationSize, b.Track.Image,
		track.Width(), track.Height(), seed)

	res, err := trainer.Run(ctx)
	if err != nil {
		return nil, err
	}
	res.Metrics.Print(out)
	fmt.Fprintf(out, "Stopped              : %s\n", res.StopReason)
	if res.RecordID != "" {
		fmt.Fprintf(out, "Saved controller     : %s\n", res.RecordID)
	}
	if metricsPath != "" {
		if err := res.Metrics.SaveResults(metricsPath); err != nil {
			return res, err
		}
	}
	return res, nil
}

func init() {
	trainCmd.Flags().IntVar(&generations, "generations", 500, "Number of generations to evolve")
	trainCmd.Flags().IntVar(&population, "population", 30, "Genomes per generation")
	trainCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the initial population and mutations")
	trainCmd.Flags().IntVar(&workers, "workers", 1, "Parallel tick workers per generation")
	trainCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write run metrics as JSON to this file")
	trainCmd.Flags().Float64Var(&fitnessThreshold, "fitness-threshold", 0, "Stop once the champion reaches this fitness (0 disables)")
	trainCmd.Flags().StringVar(&storeKind, "store", storage.BackendFile, "Controller store backend (memory, file, sqlite)")
	trainCmd.Flags().StringVar(&storePath, "store-path", "controllers.json", "Controller store file or database")

	rootCmd.AddCommand(trainCmd)
}

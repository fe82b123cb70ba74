package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/racetrack-sim/racetrack-sim/sim"
	"github.com/racetrack-sim/racetrack-sim/sim/storage"
	"github.com/racetrack-sim/racetrack-sim/sim/trace"
)

var (
	// CLI flags for replays
	controllerID string  // Saved controller to replay; latest when empty
	maxFrames    int     // Overrides generation.max_frames
	fps          float64 // Ticks per second; 0 runs unpaced
	traceOut     string  // Path for the per-frame JSON trace
)

// replayOptions groups the replay flags.
type replayOptions struct {
	ID        string
	MaxFrames int
	FPS       float64
	TraceOut  string
}

// replayCmd drives a single saved controller around the track
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Drive a saved controller on the track and report the distance travelled",
	Run: func(cmd *cobra.Command, args []string) {
		b, err := loadBundle(configPath, trackPath)
		if err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := storage.NewStore(storeKind, storePath)
		if err != nil {
			logrus.Fatalf("Failed to open store: %v", err)
		}
		if err := store.Init(ctx); err != nil {
			logrus.Fatalf("Failed to open %s store: %v", storeKind, err)
		}
		defer store.Close()

		opts := replayOptions{ID: controllerID, MaxFrames: maxFrames, FPS: fps, TraceOut: traceOut}
		if _, err := runReplay(ctx, b, store, opts, os.Stdout); err != nil {
			logrus.Fatalf("Replay failed: %v", err)
		}
	},
}

// runReplay evaluates one saved controller alone on the track. With FPS > 0
// ticks are paced by a ticker; cancelling ctx ends the replay at a tick boundary.
func runReplay(ctx context.Context, b *bundle, store storage.Store, opts replayOptions, out io.Writer) (*sim.GenerationResult, error) {
	record, ok, err := lookupController(ctx, store, opts.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if opts.ID == "" {
			return nil, fmt.Errorf("store has no saved controller")
		}
		return nil, fmt.Errorf("controller %s not found", opts.ID)
	}

	cfg := b.Simulation
	if opts.MaxFrames > 0 {
		cfg.Generation.MaxFrames = opts.MaxFrames
	}
	if record.Genome.Inputs != len(cfg.Sensors.RayAngles) {
		logrus.Warnf("controller %s expects %d sensors, track config has %d rays",
			record.ID, record.Genome.Inputs, len(cfg.Sensors.RayAngles))
	}
	track, err := b.loadTrack()
	if err != nil {
		return nil, err
	}
	g, err := sim.NewGeneration(cfg, track, []sim.Controller{record.Genome})
	if err != nil {
		return nil, err
	}
	if opts.TraceOut != "" {
		g.SetTrace(trace.Config{Level: trace.LevelFrames})
	}
	logrus.Infof("Replaying controller %s (run %s, generation %d, trained fitness %.2f)",
		record.ID, record.RunID, record.Generation, record.Fitness)

	var tick <-chan time.Time
	if opts.FPS > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / opts.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}
	for running := ctx.Err() == nil; running; {
		running = g.Step()
		if !running {
			break
		}
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				running = false
			}
		} else if ctx.Err() != nil {
			running = false
		}
	}
	res := g.Finish()

	fmt.Fprintf(out, "Distance travelled: %.2f over %d frames (%s)\n", res.Fitness[0], res.Frames, res.Reason)
	if opts.TraceOut != "" {
		if err := writeTrace(opts.TraceOut, res.Trace); err != nil {
			return res, err
		}
		summary := trace.Summarize(res.Trace)
		logrus.Infof("Trace: %d frames recorded, %d deaths (last at frame %d)",
			summary.FramesRecorded, summary.Deaths, summary.LastDeathFrame)
	}
	return res, nil
}

func lookupController(ctx context.Context, store storage.Store, id string) (storage.ControllerRecord, bool, error) {
	if id == "" {
		return store.LatestController(ctx)
	}
	return store.GetController(ctx, id)
}

func writeTrace(path string, gt *trace.GenerationTrace) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	if err := gt.WriteJSON(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing trace: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	logrus.Debugf("Successfully wrote trace to '%s'", path)
	return nil
}

func init() {
	replayCmd.Flags().StringVar(&controllerID, "id", "", "Saved controller ID (latest when empty)")
	replayCmd.Flags().IntVar(&maxFrames, "max-frames", 0, "Frame cap for the replay (0 keeps the config value)")
	replayCmd.Flags().Float64Var(&fps, "fps", 60, "Ticks per second (0 runs unpaced)")
	replayCmd.Flags().StringVar(&traceOut, "trace-out", "", "Write every frame as JSON to this file")
	replayCmd.Flags().StringVar(&storeKind, "store", storage.BackendFile, "Controller store backend (memory, file, sqlite)")
	replayCmd.Flags().StringVar(&storePath, "store-path", "controllers.json", "Controller store file or database")

	rootCmd.AddCommand(replayCmd)
}

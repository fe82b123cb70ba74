package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/racetrack-sim/racetrack-sim/sim"
)

// inspectTrackCmd reports how the configured track is seen by the simulation
var inspectTrackCmd = &cobra.Command{
	Use:   "inspect-track",
	Short: "Load the track and report its size, obstacles and start pose readings",
	Run: func(cmd *cobra.Command, args []string) {
		b, err := loadBundle(configPath, trackPath)
		if err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
		if _, err := runInspectTrack(b, os.Stdout); err != nil {
			logrus.Fatalf("Inspection failed: %v", err)
		}
	},
}

// runInspectTrack prints the track summary and what an agent at the start
// pose would sense. It reports whether the start footprint is clear.
func runInspectTrack(b *bundle, out io.Writer) (bool, error) {
	cfg := b.Simulation
	if err := cfg.Validate(); err != nil {
		return false, err
	}
	track, err := b.loadTrack()
	if err != nil {
		return false, err
	}
	sensors, err := sim.NewSensorArray(cfg.Sensors)
	if err != nil {
		return false, err
	}
	agent := sim.NewAgent(cfg.Start, cfg.Kinematics, cfg.Footprint)
	reading := sensors.Read(agent, track)
	startClear := agent.CheckCollision(track)

	pixels := int64(track.Width()) * int64(track.Height())
	fmt.Fprintln(out, "=== Track ===")
	fmt.Fprintf(out, "Image          : %s\n", b.Track.Image)
	fmt.Fprintf(out, "Size           : %dx%d (%s pixels)\n", track.Width(), track.Height(), humanize.Comma(pixels))
	fmt.Fprintf(out, "Obstacle pixels: %s\n", humanize.Comma(int64(track.ObstacleCount())))
	fmt.Fprintf(out, "Drivable       : %.1f%%\n", track.DrivableFraction()*100)
	fmt.Fprintf(out, "Start pose     : (%.1f, %.1f) heading %.1f speed %.1f\n",
		cfg.Start.X, cfg.Start.Y, cfg.Start.Heading, cfg.Start.Speed)
	if startClear {
		fmt.Fprintln(out, "Start footprint: clear")
	} else {
		fmt.Fprintln(out, "Start footprint: BLOCKED (agents die on the first tick)")
	}
	for i, angle := range cfg.Sensors.RayAngles {
		fmt.Fprintf(out, "Ray %+6.1f deg : %.1f / %.1f\n", angle, reading[i], sensors.MaxRayLength())
	}
	return startClear, nil
}

func init() {
	rootCmd.AddCommand(inspectTrackCmd)
}

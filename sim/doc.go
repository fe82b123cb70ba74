// Package sim provides the core simulation engine for racetrack-sim: 2D
// vehicles driving over a track image, perceiving it through ray-cast sensors
// and evaluated in lockstep, one population per generation.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - track.go: the immutable collision field built from a track image
//   - agent.go: kinematics (ApplyAction, Advance) and footprint collision
//   - sensor.go: ray casting in fixed steps up to a maximum length
//   - generation.go: the evaluation loop (RUNNING → DONE), live-set removal at tick end
//
// # Architecture
//
// The sim package defines the Controller capability interface and knows
// nothing about how controllers learn. Collaborators live in sub-packages:
//   - sim/neuro/: feed-forward controllers and the evolver that breeds them
//   - sim/storage/: persistence of the champion controller (memory, file, sqlite)
//   - sim/training/: multi-generation runs driving the evolver through sim.Evaluate
//   - sim/trace/: death and frame records consumed by visualization
//
// # Coordinates
//
// Positions are in track pixels with the origin at the top-left corner and y
// pointing down. Headings are degrees, 0 = +x, counter-clockwise on screen.
package sim

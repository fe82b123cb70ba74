package sim

import (
	"fmt"
	"math"
)

// ActionSize is the number of components a controller action must have: steer and throttle.
const ActionSize = 2

// neutralOutput maps to a zero steer/throttle delta.
const neutralOutput = 0.5

// Controller is the capability the evaluation loop needs from an external
// controller provider. Act maps a sensor reading to a raw action whose
// components are nominally in [0, 1]. ReportFitness is called exactly once per
// generation the controller took part in.
//
// Act may be called concurrently for different controllers, never for the same one.
type Controller interface {
	Act(sensors []float64) []float64
	ReportFitness(fitness float64)
}

// NormalizeAction maps a raw controller output to steer and throttle deltas in
// [-1, 1]. Missing components and NaN count as neutral, extra components are
// dropped and values are clamped to [0, 1] before mapping with v*2-1.
// violation reports whether the raw action broke the contract.
func NormalizeAction(raw []float64) (steer, throttle float64, violation bool) {
	if len(raw) != ActionSize {
		violation = true
	}
	var vals [ActionSize]float64
	for i := range vals {
		v := neutralOutput
		if i < len(raw) {
			v = raw[i]
		}
		switch {
		case math.IsNaN(v):
			v = neutralOutput
			violation = true
		case v < 0:
			v = 0
		case v > 1:
			v = 1
		}
		vals[i] = v*2 - 1
	}
	return vals[0], vals[1], violation
}

// safeAct calls c.Act and turns a panic into a nil action.
func safeAct(c Controller, sensors []float64) (out []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("controller panicked: %v", r)
		}
	}()
	return c.Act(sensors), nil
}

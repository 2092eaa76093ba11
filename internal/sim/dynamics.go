// internal/sim/dynamics.go
package sim

import (
	"math"
	"math/rand"
	"time"
)

// Kind identifies one waveform variant. The set is closed; the
// evaluator switches over it exhaustively.
type Kind int

const (
	Static Kind = iota
	Clamp
	Sine
	Ramp
	Step
	RandomWalk
	Noise
	Script
)

// Dynamics describes how a point's value evolves over elapsed time.
// Only the fields for the given Kind are meaningful.
type Dynamics struct {
	Kind Kind

	// Clamp, Ramp, RandomWalk, Noise. For Script these are the
	// optional one-sided clamps, guarded by HasMin/HasMax.
	Min float64
	Max float64

	// Sine.
	Amplitude float64
	Offset    float64

	// Step.
	Low  float64
	High float64

	// Sine, Ramp, Step.
	Period time.Duration

	// RandomWalk.
	Step float64

	// Script.
	HasMin bool
	HasMax bool
	script *script
}

// evalNumeric computes the next raw value for a point.
// Pure with respect to engine state: inputs are the current value, the
// dynamics, and the elapsed seconds since engine start. Randomness comes
// from the caller's rng so tests can seed it.
func evalNumeric(current float64, d *Dynamics, elapsed float64, rng *rand.Rand) float64 {
	if d == nil {
		return current
	}

	switch d.Kind {
	case Static:
		return current

	case Clamp:
		return clampFloat(current, d.Min, d.Max)

	case Sine:
		period := d.Period.Seconds()
		if period <= 0 {
			return d.Offset
		}
		return d.Offset + d.Amplitude*math.Sin(elapsed*2*math.Pi/period)

	case Ramp:
		period := d.Period.Seconds()
		if period <= 0 {
			return d.Min
		}
		phase := math.Mod(elapsed, period) / period
		return d.Min + (d.Max-d.Min)*phase

	case Step:
		period := d.Period.Seconds()
		if period <= 0 {
			return d.Low
		}
		phase := math.Mod(elapsed, period) / period
		if phase < 0.5 {
			return d.Low
		}
		return d.High

	case RandomWalk:
		delta := (rng.Float64()*2 - 1) * d.Step
		return clampFloat(current+delta, d.Min, d.Max)

	case Noise:
		return d.Min + rng.Float64()*(d.Max-d.Min)

	case Script:
		value, ok := d.script.eval(elapsed)
		if !ok {
			// Malformed or non-numeric expression: the value
			// freezes rather than aborting the tick.
			return current
		}
		if d.HasMin && value < d.Min {
			value = d.Min
		}
		if d.HasMax && value > d.Max {
			value = d.Max
		}
		return value

	default:
		return current
	}
}

// evalBit evaluates a boolean point: the numeric result is
// thresholded at 0.5.
func evalBit(current bool, d *Dynamics, elapsed float64, rng *rand.Rand) bool {
	numeric := 0.0
	if current {
		numeric = 1.0
	}
	return evalNumeric(numeric, d, elapsed, rng) > 0.5
}

// evalWord evaluates a 16-bit register point: the numeric result is
// rounded to nearest and clamped into [0, 65535].
func evalWord(current uint16, d *Dynamics, elapsed float64, rng *rand.Rand) uint16 {
	numeric := evalNumeric(float64(current), d, elapsed, rng)
	if math.IsNaN(numeric) {
		return 0
	}
	rounded := math.Round(numeric)
	if rounded < 0 {
		return 0
	}
	if rounded > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(rounded)
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

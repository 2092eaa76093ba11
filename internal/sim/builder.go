// internal/sim/builder.go
package sim

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/modsim/internal/config"
)

// Build constructs the engine from normalized configuration. Script
// expressions are compiled here, once; a compile failure is reported
// as a warning and the point degrades to a frozen value, so a bad
// expression never takes the simulator down.
func Build(c *cfg.Config, logger zerolog.Logger) *Engine {
	opts := Options{
		DefaultInterval: time.Duration(c.Global.UpdateMs) * time.Millisecond,
		LogValueUpdates: c.Logging.LogValueUpdates,
		Logger:          logger,
	}

	for _, p := range c.Device.Coils {
		opts.Coils = append(opts.Coils, BitPoint{
			Address:  p.Address,
			Initial:  p.Initial,
			Interval: pointInterval(p.UpdateMs),
			Dynamics: buildDynamics(p.Dynamics, logger),
		})
	}
	for _, p := range c.Device.DiscreteInputs {
		opts.DiscreteInputs = append(opts.DiscreteInputs, BitPoint{
			Address:  p.Address,
			Initial:  p.Initial,
			Interval: pointInterval(p.UpdateMs),
			Dynamics: buildDynamics(p.Dynamics, logger),
		})
	}
	for _, p := range c.Device.HoldingRegisters {
		opts.HoldingRegisters = append(opts.HoldingRegisters, WordPoint{
			Address:  p.Address,
			Initial:  p.Initial,
			Interval: pointInterval(p.UpdateMs),
			Dynamics: buildDynamics(p.Dynamics, logger),
		})
	}
	for _, p := range c.Device.InputRegisters {
		opts.InputRegisters = append(opts.InputRegisters, WordPoint{
			Address:  p.Address,
			Initial:  p.Initial,
			Interval: pointInterval(p.UpdateMs),
			Dynamics: buildDynamics(p.Dynamics, logger),
		})
	}

	return NewEngine(opts)
}

func pointInterval(updateMs *uint64) time.Duration {
	if updateMs == nil {
		return 0 // engine default
	}
	return time.Duration(*updateMs) * time.Millisecond
}

// buildDynamics converts the config variant into the evaluator's
// closed sum. Normalize has lower-cased the kind already.
func buildDynamics(d *cfg.DynamicsConfig, logger zerolog.Logger) *Dynamics {
	if d == nil {
		return nil
	}

	switch d.Kind {
	case cfg.KindStatic:
		return &Dynamics{Kind: Static}

	case cfg.KindClamp:
		return &Dynamics{Kind: Clamp, Min: *d.Min, Max: *d.Max}

	case cfg.KindSine:
		return &Dynamics{
			Kind:      Sine,
			Amplitude: d.Amplitude,
			Offset:    d.Offset,
			Period:    time.Duration(d.PeriodMs) * time.Millisecond,
		}

	case cfg.KindRamp:
		return &Dynamics{
			Kind:   Ramp,
			Min:    *d.Min,
			Max:    *d.Max,
			Period: time.Duration(d.PeriodMs) * time.Millisecond,
		}

	case cfg.KindStep:
		return &Dynamics{
			Kind:   Step,
			Low:    d.Low,
			High:   d.High,
			Period: time.Duration(d.PeriodMs) * time.Millisecond,
		}

	case cfg.KindRandomWalk:
		return &Dynamics{Kind: RandomWalk, Min: *d.Min, Max: *d.Max, Step: d.Step}

	case cfg.KindNoise:
		return &Dynamics{Kind: Noise, Min: *d.Min, Max: *d.Max}

	case cfg.KindScript:
		compiled, err := compileScript(d.Expr)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("expr", d.Expr).
				Msg("script compile failed; point value will stay frozen")
		}
		out := &Dynamics{Kind: Script, script: compiled}
		if d.Min != nil {
			out.HasMin = true
			out.Min = *d.Min
		}
		if d.Max != nil {
			out.HasMax = true
			out.Max = *d.Max
		}
		return out

	default:
		// Validate rejects unknown kinds; keep the fallback inert.
		return &Dynamics{Kind: Static}
	}
}

// NewScript builds a script dynamics directly from source; tests use
// it to exercise the evaluator without a config document.
func NewScript(exprSrc string) (*Dynamics, error) {
	compiled, err := compileScript(exprSrc)
	d := &Dynamics{Kind: Script, script: compiled}
	if err != nil {
		return d, fmt.Errorf("compile %q: %w", exprSrc, err)
	}
	return d, nil
}

// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// maxScriptExprLen bounds script expression source so a config cannot
// smuggle in an arbitrarily large program.
const maxScriptExprLen = 512

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Zero-valued fields with documented defaults are filled later by
// Normalize and pass here.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// TRANSPORT PRESENCE
	// ------------------------------------------------------------

	// A simulator nobody can reach is an operator mistake; reject it
	// at startup instead of idling with only the ticker.
	if cfg.TCP == nil && cfg.RTU == nil {
		return fmt.Errorf("no transports configured: enable tcp or rtu")
	}

	if cfg.RTU != nil {
		if err := validateRTU(cfg.RTU); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------
	// DEVICE IDENTITY
	// ------------------------------------------------------------

	if cfg.Device.UnitID > 247 {
		return fmt.Errorf("device.unit_id %d out of range 1-247", cfg.Device.UnitID)
	}

	// ------------------------------------------------------------
	// ADDRESS SPACES
	// ------------------------------------------------------------

	if err := validateBoolSpace("coils", cfg.Device.Coils); err != nil {
		return err
	}
	if err := validateBoolSpace("discrete_inputs", cfg.Device.DiscreteInputs); err != nil {
		return err
	}
	if err := validateWordSpace("holding_registers", cfg.Device.HoldingRegisters); err != nil {
		return err
	}
	if err := validateWordSpace("input_registers", cfg.Device.InputRegisters); err != nil {
		return err
	}

	return nil
}

func validateRTU(rtu *RTUConfig) error {
	mode := strings.ToLower(rtu.Mode)
	switch mode {
	case "serial":
		if rtu.Device == "" {
			return fmt.Errorf("rtu.device is required for serial mode")
		}
	case "pseudo-pty":
	default:
		return fmt.Errorf("rtu.mode %q must be serial or pseudo-pty", rtu.Mode)
	}

	if rtu.DataBits != 0 && (rtu.DataBits < 5 || rtu.DataBits > 8) {
		return fmt.Errorf("rtu.data_bits %d out of range 5-8", rtu.DataBits)
	}
	if rtu.StopBits != 0 && rtu.StopBits != 1 && rtu.StopBits != 2 {
		return fmt.Errorf("rtu.stop_bits %d must be 1 or 2", rtu.StopBits)
	}

	switch strings.ToLower(rtu.Parity) {
	case "", "none", "even", "odd":
	default:
		return fmt.Errorf("rtu.parity %q must be none, even or odd", rtu.Parity)
	}

	return nil
}

func validateBoolSpace(space string, points []BoolPointConfig) error {
	seen := make(map[uint16]bool, len(points))
	for _, p := range points {
		if seen[p.Address] {
			return fmt.Errorf("device.%s: duplicate address %d", space, p.Address)
		}
		seen[p.Address] = true

		if p.Dynamics != nil {
			if err := validateDynamics(p.Dynamics); err != nil {
				return fmt.Errorf("device.%s address %d: %w", space, p.Address, err)
			}
		}
	}
	return nil
}

func validateWordSpace(space string, points []WordPointConfig) error {
	seen := make(map[uint16]bool, len(points))
	for _, p := range points {
		if seen[p.Address] {
			return fmt.Errorf("device.%s: duplicate address %d", space, p.Address)
		}
		seen[p.Address] = true

		if p.Dynamics != nil {
			if err := validateDynamics(p.Dynamics); err != nil {
				return fmt.Errorf("device.%s address %d: %w", space, p.Address, err)
			}
		}
	}
	return nil
}

func validateDynamics(d *DynamicsConfig) error {
	kind := strings.ToLower(d.Kind)
	switch kind {
	case KindStatic, KindSine, KindStep:
		// Degenerate periods are legal: they collapse to a constant.

	case KindClamp, KindRamp, KindNoise:
		if err := requireRange(kind, d); err != nil {
			return err
		}

	case KindRandomWalk:
		if err := requireRange(kind, d); err != nil {
			return err
		}
		if d.Step < 0 {
			return fmt.Errorf("dynamics %s: step must be >= 0", kind)
		}

	case KindScript:
		expr := strings.TrimSpace(d.Expr)
		if expr == "" {
			return fmt.Errorf("dynamics script: expr is required")
		}
		if len(expr) > maxScriptExprLen {
			return fmt.Errorf("dynamics script: expr exceeds %d bytes", maxScriptExprLen)
		}
		if d.Min != nil && d.Max != nil && *d.Min > *d.Max {
			return fmt.Errorf("dynamics script: min %g > max %g", *d.Min, *d.Max)
		}

	default:
		return fmt.Errorf("dynamics kind %q unknown", d.Kind)
	}

	return nil
}

func requireRange(kind string, d *DynamicsConfig) error {
	if d.Min == nil || d.Max == nil {
		return fmt.Errorf("dynamics %s: min and max are required", kind)
	}
	if *d.Min > *d.Max {
		return fmt.Errorf("dynamics %s: min %g > max %g", kind, *d.Min, *d.Max)
	}
	return nil
}

// internal/config/normalize.go
package config

import "strings"

// Documented defaults.
const (
	DefaultUpdateMs = 500
	DefaultTCPBind  = "0.0.0.0:5020"
	DefaultBaudRate = 9600
	DefaultDataBits = 8
	DefaultParity   = "none"
	DefaultStopBits = 1
	DefaultUnitID   = 1
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Global.UpdateMs == 0 {
		cfg.Global.UpdateMs = DefaultUpdateMs
	}

	if cfg.TCP != nil && cfg.TCP.Bind == "" {
		cfg.TCP.Bind = DefaultTCPBind
	}

	if cfg.RTU != nil {
		rtu := cfg.RTU
		rtu.Mode = strings.ToLower(rtu.Mode)
		if rtu.BaudRate == 0 {
			rtu.BaudRate = DefaultBaudRate
		}
		if rtu.DataBits == 0 {
			rtu.DataBits = DefaultDataBits
		}
		if rtu.Parity == "" {
			rtu.Parity = DefaultParity
		}
		rtu.Parity = strings.ToLower(rtu.Parity)
		if rtu.StopBits == 0 {
			rtu.StopBits = DefaultStopBits
		}
	}

	if cfg.Device.UnitID == 0 {
		cfg.Device.UnitID = DefaultUnitID
	}

	for i := range cfg.Device.Coils {
		normalizeDynamics(cfg.Device.Coils[i].Dynamics)
	}
	for i := range cfg.Device.DiscreteInputs {
		normalizeDynamics(cfg.Device.DiscreteInputs[i].Dynamics)
	}
	for i := range cfg.Device.HoldingRegisters {
		normalizeDynamics(cfg.Device.HoldingRegisters[i].Dynamics)
	}
	for i := range cfg.Device.InputRegisters {
		normalizeDynamics(cfg.Device.InputRegisters[i].Dynamics)
	}
}

func normalizeDynamics(d *DynamicsConfig) {
	if d == nil {
		return
	}
	d.Kind = strings.ToLower(d.Kind)
	d.Expr = strings.TrimSpace(d.Expr)
}

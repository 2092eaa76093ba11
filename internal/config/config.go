// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Global  GlobalConfig  `toml:"global" yaml:"global"`

	// Presence enables the transport.
	TCP *TCPConfig `toml:"tcp" yaml:"tcp"`
	RTU *RTUConfig `toml:"rtu" yaml:"rtu"`

	Device DeviceConfig `toml:"device" yaml:"device"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	LogValueUpdates bool `toml:"log_value_updates" yaml:"log_value_updates"`
}

// ---- GLOBAL ----

type GlobalConfig struct {
	UpdateMs uint64 `toml:"update_ms" yaml:"update_ms"`
}

// ---- TRANSPORTS ----

type TCPConfig struct {
	Bind string `toml:"bind" yaml:"bind"`
}

type RTUConfig struct {
	Mode     string `toml:"mode" yaml:"mode"` // serial | pseudo-pty
	Device   string `toml:"device" yaml:"device"`
	BaudRate int    `toml:"baud_rate" yaml:"baud_rate"`
	DataBits int    `toml:"data_bits" yaml:"data_bits"`
	Parity   string `toml:"parity" yaml:"parity"` // none | even | odd
	StopBits int    `toml:"stop_bits" yaml:"stop_bits"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	UnitID           uint8             `toml:"unit_id" yaml:"unit_id"`
	Coils            []BoolPointConfig `toml:"coils" yaml:"coils"`
	DiscreteInputs   []BoolPointConfig `toml:"discrete_inputs" yaml:"discrete_inputs"`
	HoldingRegisters []WordPointConfig `toml:"holding_registers" yaml:"holding_registers"`
	InputRegisters   []WordPointConfig `toml:"input_registers" yaml:"input_registers"`
}

type BoolPointConfig struct {
	Address  uint16          `toml:"address" yaml:"address"`
	Initial  bool            `toml:"initial" yaml:"initial"`
	UpdateMs *uint64         `toml:"update_ms" yaml:"update_ms"`
	Dynamics *DynamicsConfig `toml:"dynamics" yaml:"dynamics"`
}

type WordPointConfig struct {
	Address  uint16          `toml:"address" yaml:"address"`
	Initial  uint16          `toml:"initial" yaml:"initial"`
	UpdateMs *uint64         `toml:"update_ms" yaml:"update_ms"`
	Dynamics *DynamicsConfig `toml:"dynamics" yaml:"dynamics"`
}

// ---- DYNAMICS ----

// DynamicsConfig is the tagged waveform choice. Kind selects the
// variant; only that variant's parameters are read.
type DynamicsConfig struct {
	Kind string `toml:"kind" yaml:"kind"`

	// clamp, ramp, random-walk, noise; optional clamps for script
	Min *float64 `toml:"min" yaml:"min"`
	Max *float64 `toml:"max" yaml:"max"`

	// sine
	Amplitude float64 `toml:"amplitude" yaml:"amplitude"`
	Offset    float64 `toml:"offset" yaml:"offset"`

	// step
	Low  float64 `toml:"low" yaml:"low"`
	High float64 `toml:"high" yaml:"high"`

	// sine, ramp, step
	PeriodMs int64 `toml:"period_ms" yaml:"period_ms"`

	// random-walk
	Step float64 `toml:"step" yaml:"step"`

	// script
	Expr string `toml:"expr" yaml:"expr"`
}

// Waveform kind names, kebab-case in the document.
const (
	KindStatic     = "static"
	KindClamp      = "clamp"
	KindSine       = "sine"
	KindRamp       = "ramp"
	KindStep       = "step"
	KindRandomWalk = "random-walk"
	KindNoise      = "noise"
	KindScript     = "script"
)

// Load reads and parses the configuration document. The format
// follows the file extension: .yaml/.yml is YAML, everything else is
// TOML (the default file is config.toml).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse toml config %s: %w", path, err)
		}
	}

	return &cfg, nil
}

// Package config loads the audio processing core simulation daemon's
// YAML configuration, grounded on the teacher's coordinator package
// (Config/DefaultConfig/LoadConfig).
package config

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"github.com/opendsp/audiocore/pkg/logging"
)

// Config is the daemon's top-level configuration: the number of cores the
// single scheduler domain spans, a pipeline of module instances wired by
// ring buffers, and the trace sink's sizing.
type Config struct {
	// Cores is the number of DMA-tick-driven cores the scheduler domain
	// spans.
	Cores int `yaml:"cores"`
	// Pipeline is the ordered chain of module instances to construct
	// and bind.
	Pipeline []InstanceConfig `yaml:"pipeline"`
	// Trace holds the dictionary-trace ring's sizing.
	Trace TraceConfig `yaml:"trace"`
	// TickIntervalMillis is the simulated DMA-completion period driving
	// the scheduler domain's elected owner core.
	TickIntervalMillis int `yaml:"tick_interval_millis"`
	// Logging configures the daemon's console logger.
	Logging logging.Config `yaml:"logging"`
}

// InstanceConfig describes one module instance in the pipeline.
type InstanceConfig struct {
	// Name identifies this instance for logging and ring wiring.
	Name string `yaml:"name"`
	// Kind selects the concrete module implementation ("eqiir" or
	// "mixer").
	Kind string `yaml:"kind"`
	// RingMinAvailable/RingMinFreeSpace size this instance's output ring
	// buffer, per spec.md §4.1's sizing rationale. Expressed with
	// human-friendly units in YAML (e.g. "64KB"), the same convention the
	// teacher uses for its own memory/buffer sizing fields.
	RingMinAvailable datasize.ByteSize `yaml:"ring_min_available"`
	RingMinFreeSpace datasize.ByteSize `yaml:"ring_min_free_space"`
	// Config is the raw bytes handed to the instance's Init, decoded
	// per the concrete module's own wire format.
	Config []byte `yaml:"config"`
}

// TraceConfig sizes the dictionary-trace ring.
type TraceConfig struct {
	MinEntryBytes datasize.ByteSize `yaml:"min_entry_bytes"`
}

// DefaultConfig returns the default configuration: a single core and an
// empty pipeline, matching a no-op daemon that still starts cleanly.
func DefaultConfig() *Config {
	return &Config{
		Cores:    1,
		Pipeline: []InstanceConfig{},
		Trace: TraceConfig{
			MinEntryBytes: 4 * datasize.KB,
		},
		TickIntervalMillis: 10,
		Logging:            *logging.DefaultConfig(),
	}
}

// LoadConfig reads and parses a YAML configuration file at path, starting
// from DefaultConfig so that a partial file only overrides what it names.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	return cfg, nil
}

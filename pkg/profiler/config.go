package profiler

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/danpilch/fnprof/pkg/callstack"
	"github.com/danpilch/fnprof/pkg/samples"
)

const (
	// MaxFunctions is the capacity of the function table.
	MaxFunctions = 4096

	// DefaultOutput is the JSON report path used when none is configured.
	DefaultOutput = "fnprof_profile.json"
)

// Config controls table capacities and report outputs.
type Config struct {
	MaxFunctions    int    `yaml:"max_functions"`
	Output          string `yaml:"output"`
	MaxCallDepth    int    `yaml:"max_call_depth"`
	MaxStackSamples int    `yaml:"max_stack_samples"`
	PprofOutput     string `yaml:"pprof_output"`
	Summary         bool   `yaml:"summary"`
	HandleSignals   bool   `yaml:"handle_signals"`
	LogLevel        string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used by Initialize.
func DefaultConfig() Config {
	return Config{
		MaxFunctions:    MaxFunctions,
		Output:          DefaultOutput,
		MaxCallDepth:    callstack.DefaultMaxDepth,
		MaxStackSamples: samples.DefaultCapacity,
		Summary:         true,
		HandleSignals:   true,
		LogLevel:        "warn",
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	err := cfg.LoadFile(path)
	return cfg, err
}

// LoadFile overlays the keys present in a YAML config file; absent keys keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read profiler config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("cannot parse profiler config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from the FNPROF_* environment. FNPROF_CONFIG names
// a YAML file applied first; the single-field variables win over it.
func (c *Config) ApplyEnv() error {
	if path := os.Getenv("FNPROF_CONFIG"); path != "" {
		if err := c.LoadFile(path); err != nil {
			return err
		}
	}
	if v := os.Getenv("FNPROF_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("FNPROF_PPROF"); v != "" {
		c.PprofOutput = v
	}
	if v := os.Getenv("FNPROF_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	ints := []struct {
		env   string
		field string
		dst   *int
	}{
		{"FNPROF_MAX_FUNCTIONS", "MaxFunctions", &c.MaxFunctions},
		{"FNPROF_MAX_DEPTH", "MaxCallDepth", &c.MaxCallDepth},
		{"FNPROF_MAX_SAMPLES", "MaxStackSamples", &c.MaxStackSamples},
	}
	for _, i := range ints {
		v := os.Getenv(i.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer for %s (%s): %w", i.field, i.env, err)
		}
		*i.dst = n
	}

	bools := []struct {
		env   string
		field string
		dst   *bool
	}{
		{"FNPROF_SUMMARY", "Summary", &c.Summary},
		{"FNPROF_SIGNALS", "HandleSignals", &c.HandleSignals},
	}
	for _, b := range bools {
		v := os.Getenv(b.env)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s (%s): %w", b.field, b.env, err)
		}
		*b.dst = parsed
	}
	return nil
}

// normalize clamps capacities to their limits. A non-positive function count
// means the full table.
func (c Config) normalize() Config {
	if c.MaxFunctions <= 0 || c.MaxFunctions > MaxFunctions {
		c.MaxFunctions = MaxFunctions
	}
	if c.MaxCallDepth <= 0 || c.MaxCallDepth > callstack.DefaultMaxDepth {
		c.MaxCallDepth = callstack.DefaultMaxDepth
	}
	if c.MaxStackSamples <= 0 || c.MaxStackSamples > samples.DefaultCapacity {
		c.MaxStackSamples = samples.DefaultCapacity
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	return c
}

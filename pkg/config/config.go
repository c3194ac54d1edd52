// Package config holds the single immutable process-wide configuration
// bundle: the quantile list, the utilization
// color-scale minimum multiplier, and output paths. It is built once at
// startup from CLI flags and an optional YAML file and never mutated
// afterward; analyses read it only at Finalize, never per-event.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the immutable configuration bundle. Zero value is not valid;
// use Default() or Load().
type Config struct {
	// Quantiles is the list of quantiles (in [0,1]), e.g. [0.5, 0.9, 0.99];
	// the quantile-based utilization analysis trims durations above the
	// highest of them.
	Quantiles []float64 `yaml:"quantiles"`

	// UtilizationColorMinMultiplier scales the minimum of the utilization
	// color gradient used by the dependency_graph analysis's edge coloring.
	UtilizationColorMinMultiplier float64 `yaml:"utilization_color_min_multiplier"`

	// OutputDir is the directory analysis artifacts are written under.
	OutputDir string `yaml:"output_dir"`

	// BundlePath, if non-empty, routes every enabled analysis's structured
	// output into the binary bundle in addition to its file artifact.
	BundlePath string `yaml:"bundle_path"`

	// EnabledAnalyses lists non-default analyses to additionally run
	// (e.g. "publication-in-callback", "end-to-end"); the nine default
	// analyses always run unless explicitly excluded via Exclude.
	EnabledAnalyses []string `yaml:"enabled_analyses"`
	Exclude         []string `yaml:"exclude_analyses"`
}

// Default returns the configuration used when no YAML file is supplied:
// the nine standard analyses enabled, no bundle.
func Default() Config {
	return Config{
		Quantiles:                     []float64{0.5, 0.9, 0.99},
		UtilizationColorMinMultiplier: 1.0,
		OutputDir:                     ".",
	}
}

// Load builds a Config by layering an optional YAML file over Default().
// An empty path returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the bundle for internally-consistent values.
func (c Config) Validate() error {
	for _, q := range c.Quantiles {
		if q < 0 || q > 1 {
			return fmt.Errorf("config: quantile %v out of [0,1]", q)
		}
	}
	if c.UtilizationColorMinMultiplier <= 0 {
		return fmt.Errorf("config: utilization_color_min_multiplier must be positive")
	}
	return nil
}

// Package config provides configuration loading and management for mialab.
// It handles loading configuration from YAML files and environment variables
// and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers is how many subjects are preprocessed concurrently
		NumWorkers int `yaml:"numWorkers"`

		// Normalize enables z-score intensity normalization
		Normalize bool `yaml:"normalize"`

		// SkullStrip enables brain masking
		SkullStrip bool `yaml:"skullStrip"`

		// Register enables resampling into atlas space
		Register bool `yaml:"register"`
	} `yaml:"processing"`

	// Phantom parameters for the synthetic subjects
	Phantom struct {
		// Subjects is the number of phantoms to generate
		Subjects int `yaml:"subjects"`

		// Size is the atlas grid size in voxels
		Size []int `yaml:"size"`

		// Spacing is the atlas voxel size in mm
		Spacing []float64 `yaml:"spacing"`

		// MaxOffset bounds the random subject displacement in mm
		MaxOffset float64 `yaml:"maxOffset"`

		// MaxRotation bounds the random in-plane rotation in radians
		MaxRotation float64 `yaml:"maxRotation"`

		// MaskFactor makes the brain mask grid coarser than the image grid
		MaskFactor int `yaml:"maskFactor"`

		// NoiseSigma is the standard deviation of tissue noise
		NoiseSigma float64 `yaml:"noiseSigma"`

		// Seed makes generation reproducible
		Seed uint64 `yaml:"seed"`
	} `yaml:"phantom"`

	// Output parameters
	Output struct {
		// SaveSlices exports axial slices of every preprocessed subject
		SaveSlices bool `yaml:"saveSlices"`

		// SlicesDir is where exported slices are written
		SlicesDir string `yaml:"slicesDir"`
	} `yaml:"output"`

	// Log parameters
	Log struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`

		// Format is text or json
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumWorkers = runtime.NumCPU()
	cfg.Processing.Normalize = true
	cfg.Processing.SkullStrip = true
	cfg.Processing.Register = true

	cfg.Phantom.Subjects = 4
	cfg.Phantom.Size = []int{32, 32, 24}
	cfg.Phantom.Spacing = []float64{1, 1, 1.5}
	cfg.Phantom.MaxOffset = 3
	cfg.Phantom.MaxRotation = 0.1
	cfg.Phantom.MaskFactor = 2
	cfg.Phantom.NoiseSigma = 4
	cfg.Phantom.Seed = 1

	cfg.Output.SaveSlices = false
	cfg.Output.SlicesDir = "preprocessed_slices"

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	return cfg
}

// Validate checks all configuration values and returns aggregated errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Processing.NumWorkers < 1 {
		errs = append(errs, fmt.Errorf("processing.numWorkers must be positive, got %d", c.Processing.NumWorkers))
	}

	if c.Phantom.Subjects < 1 {
		errs = append(errs, fmt.Errorf("phantom.subjects must be positive, got %d", c.Phantom.Subjects))
	}
	if len(c.Phantom.Size) != 3 {
		errs = append(errs, fmt.Errorf("phantom.size needs 3 values, got %d", len(c.Phantom.Size)))
	} else {
		for _, n := range c.Phantom.Size {
			if n < 2 {
				errs = append(errs, fmt.Errorf("phantom.size values must be at least 2, got %v", c.Phantom.Size))
				break
			}
		}
	}
	if len(c.Phantom.Spacing) != 3 {
		errs = append(errs, fmt.Errorf("phantom.spacing needs 3 values, got %d", len(c.Phantom.Spacing)))
	} else {
		for _, s := range c.Phantom.Spacing {
			if !(s > 0) {
				errs = append(errs, fmt.Errorf("phantom.spacing values must be positive, got %v", c.Phantom.Spacing))
				break
			}
		}
	}
	if c.Phantom.MaxOffset < 0 || c.Phantom.MaxRotation < 0 {
		errs = append(errs, errors.New("phantom.maxOffset and phantom.maxRotation must not be negative"))
	}
	if c.Phantom.MaskFactor < 1 {
		errs = append(errs, fmt.Errorf("phantom.maskFactor must be at least 1, got %d", c.Phantom.MaskFactor))
	}
	if c.Phantom.NoiseSigma < 0 {
		errs = append(errs, fmt.Errorf("phantom.noiseSigma must not be negative, got %g", c.Phantom.NoiseSigma))
	}

	if c.Output.SaveSlices && c.Output.SlicesDir == "" {
		errs = append(errs, errors.New("output.slicesDir is required when output.saveSlices is set"))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

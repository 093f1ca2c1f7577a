// Package config provides configuration loading and management for fishdecode.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Decoding parameters
	Decoding struct {
		// Method selects the decoding strategy: "per_round_max" or "metric"
		Method string `yaml:"method"`

		// NormOrder is the vector norm used for magnitudes and, by default,
		// for nearest-codeword distances
		NormOrder float64 `yaml:"normOrder"`

		// DistanceThreshold is the largest nearest-codeword distance a
		// detection may have and still pass
		DistanceThreshold float64 `yaml:"distanceThreshold"`

		// MagnitudeThreshold is the smallest vector magnitude a detection
		// may have and still pass
		MagnitudeThreshold float64 `yaml:"magnitudeThreshold"`
	} `yaml:"decoding"`

	// Pixel clustering parameters
	Clustering struct {
		// MinArea is the smallest accepted cluster pixel count, inclusive
		MinArea int `yaml:"minArea"`

		// MaxArea is the largest accepted cluster pixel count, inclusive
		MaxArea int `yaml:"maxArea"`
	} `yaml:"clustering"`

	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many fields of view are decoded in parallel
		NumWorkers int `yaml:"numWorkers"`

		// OverlapPolicy selects how rows in overlapping fields of view are
		// reconciled when results are concatenated: "ignore" or "take_max"
		OverlapPolicy string `yaml:"overlapPolicy"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// SaveDecodedImage determines whether the decoded cluster label
		// image is written alongside the feature table
		SaveDecodedImage bool `yaml:"saveDecodedImage"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Decoding.Method = "metric"
	cfg.Decoding.NormOrder = 2
	cfg.Decoding.DistanceThreshold = 0.5176
	cfg.Decoding.MagnitudeThreshold = 0.0

	cfg.Clustering.MinArea = 2
	cfg.Clustering.MaxArea = 100

	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.OverlapPolicy = "take_max"

	cfg.Output.SaveDecodedImage = false
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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

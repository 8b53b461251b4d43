// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package atlas

// Config holds atlas configuration.
type Config struct {
	// LayerSize is the width and height of each layer texture.
	// Must be a power of 2. Default: 2048
	LayerSize int

	// Padding between packed images to prevent sampling bleed.
	// Default: 1
	Padding int

	// MaxLayers limits the number of layer textures.
	// Default: 4
	MaxLayers int

	// Label prefixes GPU debug labels.
	// Default: "atlas"
	Label string
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		LayerSize: 2048,
		Padding:   1,
		MaxLayers: 4,
		Label:     "atlas",
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.LayerSize < 64 {
		return &ConfigError{Field: "LayerSize", Reason: "must be at least 64"}
	}
	if c.LayerSize > 8192 {
		return &ConfigError{Field: "LayerSize", Reason: "must be at most 8192"}
	}
	if c.LayerSize&(c.LayerSize-1) != 0 {
		return &ConfigError{Field: "LayerSize", Reason: "must be power of 2"}
	}
	if c.Padding < 0 {
		return &ConfigError{Field: "Padding", Reason: "must be non-negative"}
	}
	if c.Padding >= c.LayerSize/4 {
		return &ConfigError{Field: "Padding", Reason: "must be less than a quarter of LayerSize"}
	}
	if c.MaxLayers < 1 {
		return &ConfigError{Field: "MaxLayers", Reason: "must be at least 1"}
	}
	if c.MaxLayers > 64 {
		return &ConfigError{Field: "MaxLayers", Reason: "must be at most 64"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config." + e.Field + ": " + e.Reason
}

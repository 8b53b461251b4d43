package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/imagecache/atlas"
)

// Config describes a demo run.
type Config struct {
	Atlas AtlasConfig `yaml:"atlas"`

	// Images lists image files to cycle through. When empty, Synthetic
	// generated images are used instead.
	Images    []string `yaml:"images"`
	Synthetic int      `yaml:"synthetic"`

	// Frames is the number of frames to run.
	Frames int `yaml:"frames"`

	// WorkingSet is how many images are drawn per frame. The window slides
	// by one image every frame so older images fall out and get reclaimed.
	WorkingSet int `yaml:"working_set"`

	MaxTextureDimension uint32 `yaml:"max_texture_dimension"`
	LoaderCapacity      int    `yaml:"loader_capacity"`
}

// AtlasConfig mirrors atlas.Config.
type AtlasConfig struct {
	LayerSize int `yaml:"layer_size"`
	Padding   int `yaml:"padding"`
	MaxLayers int `yaml:"max_layers"`
}

// DefaultConfig returns the configuration used without -config.
func DefaultConfig() Config {
	ac := atlas.DefaultConfig()
	return Config{
		Atlas:          AtlasConfig{LayerSize: ac.LayerSize, Padding: ac.Padding, MaxLayers: ac.MaxLayers},
		Synthetic:      64,
		Frames:         600,
		WorkingSet:     16,
		LoaderCapacity: 128,
	}
}

// LoadConfig reads a YAML config file. Unset fields keep their defaults and
// unknown fields are rejected. Relative image paths are resolved against
// the config file's directory.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, p := range cfg.Images {
		if !filepath.IsAbs(p) {
			cfg.Images[i] = filepath.Join(dir, p)
		}
	}
	return cfg, nil
}

// ParseConfig decodes YAML on top of DefaultConfig and validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Frames < 1 {
		return errors.New("config: frames must be at least 1")
	}
	if c.WorkingSet < 1 {
		return errors.New("config: working_set must be at least 1")
	}
	if len(c.Images) == 0 && c.Synthetic < 1 {
		return errors.New("config: either images or synthetic must be set")
	}
	if c.LoaderCapacity < 1 {
		return errors.New("config: loader_capacity must be at least 1")
	}
	if err := c.AtlasSettings().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// AtlasSettings converts the atlas section.
func (c Config) AtlasSettings() atlas.Config {
	return atlas.Config{
		LayerSize: c.Atlas.LayerSize,
		Padding:   c.Atlas.Padding,
		MaxLayers: c.Atlas.MaxLayers,
	}
}

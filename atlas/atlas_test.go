// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/imagecache/gpu"
	"github.com/gogpu/imagecache/image"
)

func newTestAtlas(t *testing.T, cfg Config) *Atlas {
	t.Helper()
	device, queue, cleanup, err := gpu.OpenNoop()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	p, err := gpu.NewPipeline(device, queue, gpu.PipelineConfig{})
	require.NoError(t, err)
	t.Cleanup(p.Destroy)

	a, err := New(device, queue, p, cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func pixels(t *testing.T, w, h int) *image.Buffer {
	t.Helper()
	buf, err := image.NewBuffer(w, h)
	require.NoError(t, err)
	return buf
}

func allocate(t *testing.T, a *Atlas, w, h int) Entry {
	t.Helper()
	e, err := a.Allocate(pixels(t, w, h))
	require.NoError(t, err)
	return e
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"default", func(*Config) {}, ""},
		{"small layer", func(c *Config) { c.LayerSize = 32 }, "LayerSize"},
		{"huge layer", func(c *Config) { c.LayerSize = 16384 }, "LayerSize"},
		{"not power of 2", func(c *Config) { c.LayerSize = 1000 }, "LayerSize"},
		{"negative padding", func(c *Config) { c.Padding = -1 }, "Padding"},
		{"padding too large", func(c *Config) { c.LayerSize = 64; c.Padding = 16 }, "Padding"},
		{"no layers", func(c *Config) { c.MaxLayers = 0 }, "MaxLayers"},
		{"too many layers", func(c *Config) { c.MaxLayers = 65 }, "MaxLayers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestAllocateAndUV(t *testing.T) {
	a := newTestAtlas(t, Config{LayerSize: 64, Padding: 0, MaxLayers: 1})

	e1 := allocate(t, a, 16, 32)
	e2 := allocate(t, a, 16, 16)

	require.True(t, e1.IsValid())
	require.True(t, e2.IsValid())
	assert.Equal(t, image.Size{Width: 16, Height: 32}, e1.Size())
	assert.Equal(t, uint32(16), e2.X)
	assert.Equal(t, uint32(0), e2.Y)
	assert.Equal(t, [4]float32{0.25, 0, 0.5, 0.25}, e2.UV())

	_, ok := a.Layer(0)
	assert.True(t, ok, "expected bind group for layer 0")
	_, ok = a.Layer(1)
	assert.False(t, ok, "unexpected bind group for layer 1")
	assert.Equal(t, 2, a.Len())
}

func TestAllocateGrowsLayersThenFails(t *testing.T) {
	a := newTestAtlas(t, Config{LayerSize: 64, Padding: 0, MaxLayers: 2})

	for i := range 2 {
		e := allocate(t, a, 64, 64)
		assert.Equal(t, i, e.Layer)
	}
	require.Equal(t, 2, a.LayerCount())

	_, err := a.Allocate(pixels(t, 8, 8))
	assert.ErrorIs(t, err, ErrAtlasFull)
}

func TestAllocateTooLarge(t *testing.T) {
	a := newTestAtlas(t, Config{LayerSize: 64, Padding: 1, MaxLayers: 1})

	_, err := a.Allocate(pixels(t, 64, 64))
	require.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, a.LayerCount())

	_, err = a.Allocate(nil)
	assert.ErrorIs(t, err, gpu.ErrNilPixels)
}

func TestRemoveFreesSpace(t *testing.T) {
	a := newTestAtlas(t, Config{LayerSize: 64, Padding: 0, MaxLayers: 1})

	e := allocate(t, a, 64, 64)
	_, err := a.Allocate(pixels(t, 1, 1))
	require.ErrorIs(t, err, ErrAtlasFull)

	a.Remove(e)
	assert.False(t, a.Contains(e), "entry still live after Remove")
	allocate(t, a, 64, 64)

	s := a.Stats()
	assert.Equal(t, uint64(2), s.Allocations)
	assert.Equal(t, uint64(1), s.Removals)
	assert.Equal(t, 1, s.Entries)
	assert.InDelta(t, 1.0, s.Utilization, 1e-9)
}

func TestRemoveTwiceIsIgnored(t *testing.T) {
	a := newTestAtlas(t, Config{LayerSize: 64, Padding: 0, MaxLayers: 1})

	e := allocate(t, a, 8, 8)
	a.Remove(e)
	a.Remove(e)
	a.Remove(Entry{})

	s := a.Stats()
	assert.Equal(t, uint64(1), s.Removals)
	assert.Equal(t, uint64(2), s.DoubleRemovals)
}

func TestClose(t *testing.T) {
	a := newTestAtlas(t, DefaultConfig())
	allocate(t, a, 4, 4)

	a.Close()
	a.Close()

	_, err := a.Allocate(pixels(t, 4, 4))
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, a.LayerCount())
	assert.Zero(t, a.Len())
	_, ok := a.Layer(0)
	assert.False(t, ok)
}

func TestNewRejectsInvalid(t *testing.T) {
	device, queue, cleanup, err := gpu.OpenNoop()
	require.NoError(t, err)
	defer cleanup()

	_, err = New(device, queue, nil, Config{})
	assert.Error(t, err, "expected error for zero config")

	_, err = New(nil, nil, nil, DefaultConfig())
	assert.ErrorIs(t, err, gpu.ErrNilDevice)
}

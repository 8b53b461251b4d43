// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package atlas

import (
	"fmt"
	"sync"

	"github.com/gogpu/imagecache/gpu"
	"github.com/gogpu/imagecache/image"
	"github.com/gogpu/wgpu/hal"
)

// Binder creates a bind group for a texture view.
// *gpu.Pipeline implements Binder.
type Binder interface {
	BindTexture(view hal.TextureView, label string) (hal.BindGroup, error)
}

// Entry identifies a packed region. The zero Entry is invalid.
type Entry struct {
	// Layer is the index of the layer texture holding the region.
	Layer int

	// X, Y, Width and Height locate the region in pixels.
	X, Y          uint32
	Width, Height uint32

	serial    uint64
	layerSize uint32
}

// IsValid reports whether e was returned by Allocate.
func (e Entry) IsValid() bool { return e.serial != 0 }

// Size returns the region size.
func (e Entry) Size() image.Size {
	return image.Size{Width: e.Width, Height: e.Height}
}

// UV returns normalized texture coordinates (u0, v0, u1, v1) of the region.
func (e Entry) UV() [4]float32 {
	if e.layerSize == 0 {
		return [4]float32{}
	}
	s := float32(e.layerSize)
	return [4]float32{
		float32(e.X) / s,
		float32(e.Y) / s,
		float32(e.X+e.Width) / s,
		float32(e.Y+e.Height) / s,
	}
}

// layer is one atlas texture with its allocator.
type layer struct {
	texture hal.Texture
	view    hal.TextureView
	group   hal.BindGroup
	alloc   *ShelfAllocator
	live    int
}

// Stats describes atlas occupancy.
type Stats struct {
	Layers         int
	Entries        int
	Allocations    uint64
	Removals       uint64
	DoubleRemovals uint64
	Utilization    float64 // live area over total layer area, 0.0 to 1.0
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("atlas: %d layers, %d entries, %.1f%% used, %d allocs, %d removes (%d invalid)",
		s.Layers, s.Entries, s.Utilization*100, s.Allocations, s.Removals, s.DoubleRemovals)
}

// Atlas is a multi-layer texture atlas. It is safe for concurrent use.
type Atlas struct {
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue
	binder Binder
	config Config

	layers []*layer
	live   map[uint64]Entry
	serial uint64
	closed bool

	allocations    uint64
	removals       uint64
	doubleRemovals uint64
}

// New creates an empty atlas. Layers are created lazily on first use.
func New(device hal.Device, queue hal.Queue, binder Binder, config Config) (*Atlas, error) {
	if device == nil || queue == nil {
		return nil, gpu.ErrNilDevice
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Label == "" {
		config.Label = DefaultConfig().Label
	}
	return &Atlas{
		device: device,
		queue:  queue,
		binder: binder,
		config: config,
		live:   make(map[uint64]Entry),
	}, nil
}

// Config returns the atlas configuration.
func (a *Atlas) Config() Config { return a.config }

// Allocate packs pixels into the first layer with room, creating a new
// layer when all existing ones are full, and uploads them.
//
// Returns ErrTooLarge if the image cannot fit in any layer and ErrAtlasFull
// if every permitted layer is full.
func (a *Atlas) Allocate(pixels *image.Buffer) (Entry, error) {
	if pixels == nil {
		return Entry{}, gpu.ErrNilPixels
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return Entry{}, ErrClosed
	}

	w, h := pixels.Width(), pixels.Height()
	fit := ShelfAllocator{width: a.config.LayerSize, height: a.config.LayerSize, padding: a.config.Padding}
	if !fit.CanFit(w, h) {
		return Entry{}, fmt.Errorf("%w: %dx%d in %d layer", ErrTooLarge, w, h, a.config.LayerSize)
	}

	idx, x, y, ok := a.place(w, h)
	if !ok {
		if len(a.layers) >= a.config.MaxLayers {
			return Entry{}, ErrAtlasFull
		}
		if err := a.grow(); err != nil {
			return Entry{}, err
		}
		idx = len(a.layers) - 1
		x, y, ok = a.layers[idx].alloc.Allocate(w, h)
		if !ok {
			return Entry{}, ErrAtlasFull
		}
	}

	l := a.layers[idx]
	//nolint:gosec // coordinates are bounded by LayerSize
	if err := gpu.WritePixels(a.queue, l.texture, uint32(x), uint32(y), pixels); err != nil {
		l.alloc.Deallocate(x, y, w, h)
		return Entry{}, err
	}

	a.serial++
	size := pixels.Dimensions()
	e := Entry{
		Layer:     idx,
		X:         uint32(x), //nolint:gosec // bounded by LayerSize
		Y:         uint32(y), //nolint:gosec // bounded by LayerSize
		Width:     size.Width,
		Height:    size.Height,
		serial:    a.serial,
		layerSize: uint32(a.config.LayerSize), //nolint:gosec // validated <= 8192
	}
	l.live++
	a.live[e.serial] = e
	a.allocations++

	slogger().Debug("atlas: allocated", "layer", idx, "x", x, "y", y, "size", size.String())
	return e, nil
}

// place tries every existing layer in order.
func (a *Atlas) place(w, h int) (idx, x, y int, ok bool) {
	for i, l := range a.layers {
		if x, y, ok = l.alloc.Allocate(w, h); ok {
			return i, x, y, true
		}
	}
	return -1, -1, -1, false
}

// grow appends a new layer texture.
func (a *Atlas) grow() error {
	idx := len(a.layers)
	label := fmt.Sprintf("%s_layer_%d", a.config.Label, idx)
	size := uint32(a.config.LayerSize) //nolint:gosec // validated <= 8192

	tex, view, err := gpu.CreateTexture(a.device, label, size, size)
	if err != nil {
		return err
	}
	l := &layer{
		texture: tex,
		view:    view,
		alloc:   NewShelfAllocator(a.config.LayerSize, a.config.LayerSize, a.config.Padding),
	}
	if a.binder != nil {
		group, err := a.binder.BindTexture(view, label+"_group")
		if err != nil {
			a.device.DestroyTextureView(view)
			a.device.DestroyTexture(tex)
			return err
		}
		l.group = group
	}
	a.layers = append(a.layers, l)

	slogger().Info("atlas: layer created", "layer", idx, "size", a.config.LayerSize)
	return nil
}

// Remove frees the region of e so it can be reused. Removing an entry that
// is not live is a caller bug; it is logged and otherwise ignored.
func (a *Atlas) Remove(e Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	stored, ok := a.live[e.serial]
	if !ok || stored != e {
		a.doubleRemovals++
		slogger().Warn("atlas: remove of unknown entry ignored",
			"layer", e.Layer, "x", e.X, "y", e.Y, "valid", e.IsValid())
		return
	}
	delete(a.live, e.serial)

	l := a.layers[e.Layer]
	l.alloc.Deallocate(int(e.X), int(e.Y), int(e.Width), int(e.Height))
	l.live--
	a.removals++

	slogger().Debug("atlas: removed", "layer", e.Layer, "x", e.X, "y", e.Y, "size", e.Size().String())
}

// Contains reports whether e is live.
func (a *Atlas) Contains(e Entry) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	stored, ok := a.live[e.serial]
	return ok && stored == e
}

// Layer returns the bind group of layer i.
func (a *Atlas) Layer(i int) (hal.BindGroup, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.layers) || a.layers[i].group == nil {
		return nil, false
	}
	return a.layers[i].group, true
}

// LayerCount returns the number of layer textures created so far.
func (a *Atlas) LayerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.layers)
}

// Len returns the number of live entries.
func (a *Atlas) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Stats returns a snapshot of atlas occupancy.
func (a *Atlas) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{
		Layers:         len(a.layers),
		Entries:        len(a.live),
		Allocations:    a.allocations,
		Removals:       a.removals,
		DoubleRemovals: a.doubleRemovals,
	}
	if len(a.layers) > 0 {
		var used int
		for _, l := range a.layers {
			used += l.alloc.UsedArea()
		}
		total := len(a.layers) * a.config.LayerSize * a.config.LayerSize
		s.Utilization = float64(used) / float64(total)
	}
	return s
}

// Close destroys every layer. Entries still live become invalid.
// Safe to call more than once.
func (a *Atlas) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	for _, l := range a.layers {
		if l.group != nil {
			a.device.DestroyBindGroup(l.group)
		}
		a.device.DestroyTextureView(l.view)
		a.device.DestroyTexture(l.texture)
	}
	a.layers = nil
	a.live = make(map[uint64]Entry)
	a.closed = true
	slogger().Info("atlas: closed")
}

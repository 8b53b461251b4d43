// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"sync/atomic"

	"github.com/gogpu/imagecache/image"
	"github.com/gogpu/wgpu/hal"
)

// Binding is a dedicated texture with its view and bind group, used for
// images that do not go into the atlas.
//
// A Binding is shared between the cache record that created it and every
// render pass that draws it. Each holder owns one reference; the GPU
// objects are destroyed by a [Releaser] once the count reaches zero and the
// last submission that used the binding has completed.
type Binding struct {
	label   string
	size    image.Size
	texture hal.Texture
	view    hal.TextureView
	group   hal.BindGroup

	refs    atomic.Int32
	lastUse atomic.Uint64
}

func newBinding(label string, size image.Size, tex hal.Texture, view hal.TextureView, group hal.BindGroup) *Binding {
	b := &Binding{label: label, size: size, texture: tex, view: view, group: group}
	b.refs.Store(1)
	return b
}

// Label returns the debug label.
func (b *Binding) Label() string { return b.label }

// Size returns the texture size.
func (b *Binding) Size() image.Size { return b.size }

// BindGroup returns the bind group to set before drawing the image.
func (b *Binding) BindGroup() hal.BindGroup { return b.group }

// Retain adds a reference for a new holder.
func (b *Binding) Retain() { b.refs.Add(1) }

// Release drops a reference and returns the remaining count.
func (b *Binding) Release() int32 {
	n := b.refs.Add(-1)
	if n < 0 {
		slogger().Warn("gpu: binding released too many times", "label", b.label)
		b.refs.Store(0)
		return 0
	}
	return n
}

// Refs returns the current reference count.
func (b *Binding) Refs() int32 { return b.refs.Load() }

// MarkUsed records that the submission with the given index reads the
// binding. Indices only move forward.
func (b *Binding) MarkUsed(submission uint64) {
	for {
		cur := b.lastUse.Load()
		if submission <= cur || b.lastUse.CompareAndSwap(cur, submission) {
			return
		}
	}
}

// LastUse returns the highest submission index recorded by MarkUsed.
func (b *Binding) LastUse() uint64 { return b.lastUse.Load() }

// destroy frees the GPU objects in reverse creation order.
func (b *Binding) destroy(device hal.Device) {
	if b.group != nil {
		device.DestroyBindGroup(b.group)
		b.group = nil
	}
	if b.view != nil {
		device.DestroyTextureView(b.view)
		b.view = nil
	}
	if b.texture != nil {
		device.DestroyTexture(b.texture)
		b.texture = nil
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"
)

// Releaser destroys dedicated bindings once nothing can read them anymore.
//
// A deferred binding is destroyed by Collect when both hold:
//   - its reference count is zero (no render pass still holds it)
//   - queue.PollCompleted() has reached the last submission that used it
//
// Releaser is safe for concurrent use, so a submit goroutine may call
// Collect while the render goroutine calls Defer.
type Releaser struct {
	mu        sync.Mutex
	device    hal.Device
	queue     hal.Queue
	pending   []*Binding
	destroyed uint64
}

// NewReleaser creates a releaser bound to device and queue.
func NewReleaser(device hal.Device, queue hal.Queue) *Releaser {
	return &Releaser{device: device, queue: queue}
}

// Defer gives up the caller's reference to b and schedules it for
// destruction. Its signature matches the cache's drop callback.
func (r *Releaser) Defer(b *Binding) {
	if b == nil {
		return
	}
	b.Release()

	r.mu.Lock()
	r.pending = append(r.pending, b)
	n := len(r.pending)
	r.mu.Unlock()

	slogger().Debug("gpu: binding deferred",
		"label", b.label, "refs", b.Refs(), "last_use", b.LastUse(), "pending", n)
}

// Collect destroys every pending binding that is safe to free and returns
// how many were destroyed.
func (r *Releaser) Collect() int {
	completed := r.queue.PollCompleted()

	r.mu.Lock()
	defer r.mu.Unlock()

	freed := 0
	n := 0
	for _, b := range r.pending {
		if b.Refs() == 0 && b.LastUse() <= completed {
			b.destroy(r.device)
			freed++
			continue
		}
		r.pending[n] = b
		n++
	}
	for i := n; i < len(r.pending); i++ {
		r.pending[i] = nil
	}
	r.pending = r.pending[:n]
	r.destroyed += uint64(freed) //nolint:gosec // freed is non-negative

	if freed > 0 {
		slogger().Debug("gpu: bindings destroyed", "count", freed, "completed", completed, "pending", n)
	}
	return freed
}

// Pending returns the number of bindings awaiting destruction.
func (r *Releaser) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Destroyed returns the total number of bindings destroyed so far.
func (r *Releaser) Destroyed() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

// Drain waits for the device to go idle and destroys every pending binding
// regardless of its reference count. Use it only at shutdown.
func (r *Releaser) Drain() error {
	if err := r.device.WaitIdle(); err != nil {
		return fmt.Errorf("gpu: wait idle: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.pending {
		if b.Refs() > 0 {
			slogger().Warn("gpu: destroying binding still referenced", "label", b.label, "refs", b.Refs())
		}
		b.destroy(r.device)
	}
	r.destroyed += uint64(len(r.pending))
	r.pending = nil
	return nil
}

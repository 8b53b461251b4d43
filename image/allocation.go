package image

import "sync/atomic"

// allocationState is shared between an Allocation and its Weak observers.
type allocationState struct {
	id   ID
	size Size
	refs atomic.Int64
}

// Allocation is externally owned metadata describing image data that lives
// on the device. Holders keep it alive with Retain and give it up with
// Release. The cache never holds an Allocation, only a Weak observation.
type Allocation struct {
	state *allocationState
}

// NewAllocation returns an allocation with one reference held by the caller.
func NewAllocation(id ID, size Size) *Allocation {
	s := &allocationState{id: id, size: size}
	s.refs.Store(1)
	return &Allocation{state: s}
}

// ID returns the image identity the allocation belongs to.
func (a *Allocation) ID() ID { return a.state.id }

// Size returns the allocated image size.
func (a *Allocation) Size() Size { return a.state.size }

// Retain adds a reference and reports whether it succeeded. A dead
// allocation stays dead: once the last reference is released, Retain
// returns false and Weak observers keep reporting it as gone.
func (a *Allocation) Retain() bool {
	for {
		n := a.state.refs.Load()
		if n <= 0 {
			return false
		}
		if a.state.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference and reports whether it was the last one.
// Releasing a dead allocation is a no-op.
func (a *Allocation) Release() bool {
	for {
		n := a.state.refs.Load()
		if n <= 0 {
			return false
		}
		if a.state.refs.CompareAndSwap(n, n-1) {
			return n == 1
		}
	}
}

// Refs returns the current reference count.
func (a *Allocation) Refs() int64 { return a.state.refs.Load() }

// Weak returns a non-owning observation of the allocation.
func (a *Allocation) Weak() Weak { return Weak{state: a.state} }

// Weak observes an Allocation without keeping it alive.
// The zero Weak observes nothing and is never alive.
type Weak struct {
	state *allocationState
}

// Alive reports whether the observed allocation still has holders.
func (w Weak) Alive() bool {
	return w.state != nil && w.state.refs.Load() > 0
}

// ID returns the observed identity, or 0 for the zero Weak.
func (w Weak) ID() ID {
	if w.state == nil {
		return 0
	}
	return w.state.id
}

// Upgrade returns a new strong reference if the allocation is still alive.
// The caller must Release it.
func (w Weak) Upgrade() (*Allocation, bool) {
	if w.state == nil {
		return nil, false
	}
	for {
		n := w.state.refs.Load()
		if n <= 0 {
			return nil, false
		}
		if w.state.refs.CompareAndSwap(n, n+1) {
			return &Allocation{state: w.state}, true
		}
	}
}

// IsZero reports whether w observes nothing.
func (w Weak) IsZero() bool { return w.state == nil }

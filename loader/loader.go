// Package loader memoizes decoded images so that file-backed images evicted
// from the GPU cache can be re-uploaded without decoding them again.
package loader

import (
	"errors"
	"fmt"
	"sync/atomic"

	arc "github.com/hashicorp/golang-lru/arc/v2"

	"github.com/gogpu/imagecache/image"
)

// ErrInvalidCapacity is returned by New for a non-positive capacity.
var ErrInvalidCapacity = errors.New("loader: invalid capacity")

// DecodeFunc decodes the pixels behind a handle.
type DecodeFunc func(h image.Handle) (*image.Buffer, error)

// Loader decodes images and keeps recently and frequently used results in
// an adaptive replacement cache. Only file-backed handles are memoized:
// in-memory handles already hold their data, and every call for one gets a
// fresh identity anyway. Failures are never memoized.
//
// Buffers returned by Load are shared between callers and must not be
// modified. Loader is safe for concurrent use.
type Loader struct {
	cache  *arc.ARCCache[image.ID, *image.Buffer]
	decode DecodeFunc

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a loader remembering up to capacity decoded images.
func New(capacity int) (*Loader, error) {
	return NewWithDecoder(capacity, image.Load)
}

// NewWithDecoder is New with a custom decoder.
func NewWithDecoder(capacity int, decode DecodeFunc) (*Loader, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: must be >0 but %d was requested", ErrInvalidCapacity, capacity)
	}
	cache, err := arc.NewARC[image.ID, *image.Buffer](capacity)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if decode == nil {
		decode = image.Load
	}
	return &Loader{cache: cache, decode: decode}, nil
}

// Load returns the decoded pixels of h.
func (l *Loader) Load(h image.Handle) (*image.Buffer, error) {
	if !h.IsPath() {
		return l.decode(h)
	}
	id := h.ID()
	if buf, ok := l.cache.Get(id); ok {
		l.hits.Add(1)
		return buf, nil
	}
	l.misses.Add(1)

	buf, err := l.decode(h)
	if err != nil {
		return nil, err
	}
	l.cache.Add(id, buf)
	return buf, nil
}

// Forget drops the memoized pixels of h, if any.
func (l *Loader) Forget(h image.Handle) { l.cache.Remove(h.ID()) }

// Len returns the number of memoized images.
func (l *Loader) Len() int { return l.cache.Len() }

// Purge drops every memoized image.
func (l *Loader) Purge() { l.cache.Purge() }

// Hits returns how many loads were served from memory.
func (l *Loader) Hits() uint64 { return l.hits.Load() }

// Misses returns how many file-backed loads had to decode.
func (l *Loader) Misses() uint64 { return l.misses.Load() }

package imagecache

import (
	"fmt"

	"github.com/gogpu/imagecache/atlas"
	"github.com/gogpu/imagecache/gpu"
	"github.com/gogpu/imagecache/image"
)

// Slot holds the record for one identity. Callers may replace Record in
// place, for example to swap a Host record for a Device record after an
// upload; the slot stays in the cache until a reclamation pass drops it.
type Slot struct {
	Record Record
}

// AtlasRemover frees atlas regions. *atlas.Atlas implements it.
type AtlasRemover interface {
	Remove(e atlas.Entry)
}

// Stats holds cache counters.
type Stats struct {
	Len       int
	Hits      uint64 // lookups that found a record
	Misses    uint64 // lookups or fetches that found nothing
	Inserts   uint64
	Evictions uint64
	Reclaims  uint64 // passes that swept the store
	Skipped   uint64 // passes skipped because nothing was inserted
}

// HitRate returns Hits / (Hits + Misses), or 0 with no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("cache: %d records, %.1f%% hit rate, %d inserts, %d evictions, %d/%d passes swept",
		s.Len, s.HitRate()*100, s.Inserts, s.Evictions, s.Reclaims, s.Reclaims+s.Skipped)
}

// Cache maps image identities to records and reclaims those that were not
// used since the previous pass.
//
// Cache is not safe for concurrent use. All methods run to completion in
// time proportional to the entries they touch and never block.
type Cache struct {
	slots map[image.ID]*Slot
	hits  map[image.ID]struct{}

	// shouldTrim is set by every insertion and cleared by Reclaim.
	shouldTrim bool

	stats Stats
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		slots: make(map[image.ID]*Slot),
		hits:  make(map[image.ID]struct{}),
	}
}

// Get returns the slot for h. A successful lookup marks the identity as hit
// for the current cycle; a miss records nothing.
func (c *Cache) Get(h image.Handle) (*Slot, bool) {
	id := h.ID()
	s, ok := c.slots[id]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.hits[id] = struct{}{}
	c.stats.Hits++
	return s, true
}

// Insert stores r for h, replacing any existing record, and marks it hit.
//
// A replaced record's GPU resource is not freed: only Reclaim frees
// resources. Prefer GetOrCreate, which never creates duplicates.
func (c *Cache) Insert(h image.Handle, r Record) *Slot {
	id := h.ID()
	s := &Slot{Record: r}
	if old, ok := c.slots[id]; ok {
		Logger().Debug("imagecache: record replaced", "id", id, "old", recordKind(old.Record))
	}
	c.slots[id] = s
	c.hits[id] = struct{}{}
	c.shouldTrim = true
	c.stats.Inserts++
	return s
}

// GetOrCreate returns the slot for h, calling create to build the record
// when none exists. create runs at most once per absence. The identity is
// marked hit either way.
func (c *Cache) GetOrCreate(h image.Handle, create func(image.Handle) Record) *Slot {
	id := h.ID()
	c.hits[id] = struct{}{}
	if s, ok := c.slots[id]; ok {
		c.stats.Hits++
		return s
	}
	c.stats.Misses++
	s := &Slot{Record: create(h)}
	c.slots[id] = s
	c.shouldTrim = true
	c.stats.Inserts++
	return s
}

// Reclaim drops every record that was neither hit nor externally referenced
// since the previous pass and returns how many were dropped. It does
// nothing if no record was inserted since the previous pass.
//
// A record survives when it is a *Device with a live Allocation, or when
// it was hit. A dropped record first releases its backing resource: its
// Binding is handed to drop, or else its atlas Entry is removed from a.
// A nil drop releases the cache's reference to the binding directly.
// With a nil a, records holding an atlas entry are kept, since their
// region could never be freed afterwards.
//
// Afterwards the hit set is empty and a new cycle begins.
func (c *Cache) Reclaim(a AtlasRemover, drop func(*gpu.Binding)) int {
	if !c.shouldTrim {
		c.stats.Skipped++
		return 0
	}
	if drop == nil {
		drop = func(b *gpu.Binding) { b.Release() }
	}

	evicted := 0
	for id, s := range c.slots {
		if c.retain(id, s.Record) {
			continue
		}
		d, isDevice := s.Record.(*Device)
		if isDevice && d.Binding == nil && d.Entry.IsValid() && a == nil {
			Logger().Warn("imagecache: no atlas to release entry, keeping image", "id", id, "layer", d.Entry.Layer)
			continue
		}
		Logger().Debug("imagecache: dropping image allocation", "id", id, "kind", recordKind(s.Record))
		if isDevice {
			switch {
			case d.Binding != nil:
				b := d.Binding
				d.Binding = nil
				drop(b)
			case d.Entry.IsValid():
				a.Remove(d.Entry)
			}
		}
		delete(c.slots, id)
		evicted++
	}

	clear(c.hits)
	c.shouldTrim = false
	c.stats.Reclaims++
	c.stats.Evictions += uint64(evicted) //nolint:gosec // evicted is non-negative
	return evicted
}

// retain applies the survival rules: a live external allocation wins over
// hit status.
func (c *Cache) retain(id image.ID, r Record) bool {
	if d, ok := r.(*Device); ok && d.Allocation.Alive() {
		return true
	}
	_, hit := c.hits[id]
	return hit
}

// Len returns the number of records.
func (c *Cache) Len() int { return len(c.slots) }

// Contains reports whether id has a record. It does not mark a hit.
func (c *Cache) Contains(id image.ID) bool {
	_, ok := c.slots[id]
	return ok
}

// Peek returns the record for id without marking a hit.
func (c *Cache) Peek(id image.ID) (Record, bool) {
	s, ok := c.slots[id]
	if !ok {
		return nil, false
	}
	return s.Record, true
}

// Hit reports whether id was hit in the current cycle.
func (c *Cache) Hit(id image.ID) bool {
	_, ok := c.hits[id]
	return ok
}

// HitCount returns the size of the current hit set.
func (c *Cache) HitCount() int { return len(c.hits) }

// Dirty reports whether the next Reclaim will sweep the store.
func (c *Cache) Dirty() bool { return c.shouldTrim }

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	s := c.stats
	s.Len = len(c.slots)
	return s
}

// reset forgets every record without releasing anything.
func (c *Cache) reset() {
	clear(c.slots)
	clear(c.hits)
	c.shouldTrim = false
}

func recordKind(r Record) string {
	switch r.(type) {
	case *Host:
		return "host"
	case *Device:
		return "device"
	case *Failed:
		return "failed"
	default:
		return "none"
	}
}

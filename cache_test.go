package imagecache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/imagecache/image"
)

func handle() image.Handle { return image.FromBytes([]byte{0}) }

func TestGetOrCreateRunsFactoryOnce(t *testing.T) {
	c := NewCache()
	h := handle()

	calls := 0
	create := func(image.Handle) Record {
		calls++
		return &Failed{Err: errors.New("boom")}
	}

	first := c.GetOrCreate(h, create)
	second := c.GetOrCreate(h, create)

	assert.Equal(t, 1, calls)
	assert.Same(t, first, second)
	assert.True(t, c.Hit(h.ID()))
	assert.True(t, c.Dirty())
}

func TestGetMarksHitOnlyOnSuccess(t *testing.T) {
	c := NewCache()
	h := handle()

	_, ok := c.Get(h)
	require.False(t, ok)
	assert.False(t, c.Hit(h.ID()), "miss must not mark a hit")

	c.Insert(h, hostRecord(t, 2, 2))
	c.Reclaim(nil, nil) // clears the hit set, keeps the record

	slot, ok := c.Get(h)
	require.True(t, ok)
	require.NotNil(t, slot)
	assert.True(t, c.Hit(h.ID()), "successful Get must mark a hit")

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, uint64(1), s.Inserts)
}

func TestInsertReplacesWithoutFreeing(t *testing.T) {
	f := newFixture(t)
	c := NewCache()
	h := handle()

	old := f.atlasRecord(t, 8, 8)
	c.Insert(h, old)
	c.Insert(h, hostRecord(t, 4, 4))

	assert.Equal(t, 1, c.Len())
	assert.True(t, f.atlas.Contains(old.Entry), "Insert must not free the replaced record's atlas entry")
	rec, _ := c.Peek(h.ID())
	assert.IsType(t, &Host{}, rec)
}

func TestSlotMutationInPlace(t *testing.T) {
	f := newFixture(t)
	c := NewCache()
	h := handle()

	slot := c.GetOrCreate(h, func(image.Handle) Record { return hostRecord(t, 8, 8) })
	slot.Record = f.atlasRecord(t, 8, 8)

	got, ok := c.Get(h)
	require.True(t, ok)
	assert.IsType(t, &Device{}, got.Record)
}

func TestReclaimKeepsHitRecords(t *testing.T) {
	f := newFixture(t)
	c := NewCache()

	handles := []image.Handle{handle(), handle(), handle()}
	c.Insert(handles[0], hostRecord(t, 2, 2))
	c.Insert(handles[1], f.atlasRecord(t, 4, 4))
	c.Insert(handles[2], f.bindingRecord(t, 4, 4))

	require.Zero(t, c.Reclaim(f.remover, f.drop))
	assert.Equal(t, 3, c.Len())
	assert.Empty(t, f.remover.removed)
	assert.Empty(t, f.dropped)
	assert.Zero(t, c.HitCount())
	assert.False(t, c.Dirty())
}

func TestReclaimEvictsUnusedOnce(t *testing.T) {
	f := newFixture(t)
	c := NewCache()

	host, inAtlas, bound, failed := handle(), handle(), handle(), handle()
	c.Insert(host, hostRecord(t, 2, 2))
	c.Insert(inAtlas, f.atlasRecord(t, 4, 4))
	c.Insert(bound, f.bindingRecord(t, 4, 4))
	c.Insert(failed, &Failed{Err: errors.New("bad")})
	c.Reclaim(f.remover, f.drop) // all hit, new cycle

	// Dirty the cache without touching the four records.
	keep := handle()
	c.Insert(keep, hostRecord(t, 1, 1))

	require.Equal(t, 4, c.Reclaim(f.remover, f.drop))
	for _, h := range []image.Handle{host, inAtlas, bound, failed} {
		assert.False(t, c.Contains(h.ID()), "record %v still cached", h.ID())
	}
	assert.True(t, c.Contains(keep.ID()))
	assert.Len(t, f.remover.removed, 1)
	assert.Len(t, f.dropped, 1)
	assert.Zero(t, f.atlas.Stats().DoubleRemovals)
}

func TestReclaimBindingWinsOverEntry(t *testing.T) {
	f := newFixture(t)
	c := NewCache()

	rec := f.bindingRecord(t, 4, 4)
	rec.Entry = f.atlasRecord(t, 4, 4).Entry
	c.Insert(handle(), rec)
	c.Reclaim(f.remover, f.drop)
	c.Insert(handle(), hostRecord(t, 1, 1))
	c.Reclaim(f.remover, f.drop)

	assert.Len(t, f.dropped, 1)
	assert.Empty(t, f.remover.removed)
}

func TestReclaimNoopWhenClean(t *testing.T) {
	f := newFixture(t)
	c := NewCache()

	c.Insert(handle(), f.atlasRecord(t, 4, 4))
	c.Insert(handle(), f.bindingRecord(t, 4, 4))
	c.Reclaim(f.remover, f.drop)

	// Nothing inserted since: both passes must be no-ops even though
	// neither record is hit anymore.
	require.Zero(t, c.Reclaim(f.remover, f.drop))
	require.Zero(t, c.Reclaim(f.remover, f.drop))
	assert.Empty(t, f.remover.removed)
	assert.Empty(t, f.dropped)
	assert.Equal(t, 2, c.Len())

	s := c.Stats()
	assert.Equal(t, uint64(2), s.Skipped)
	assert.Equal(t, uint64(1), s.Reclaims)
}

func TestReclaimExternalReferenceOverridesMiss(t *testing.T) {
	f := newFixture(t)
	c := NewCache()
	h := handle()

	rec := f.atlasRecord(t, 4, 4)
	alloc := image.NewAllocation(h.ID(), rec.Dimensions())
	rec.Allocation = alloc.Weak()
	c.Insert(h, rec)
	c.Reclaim(f.remover, f.drop)

	c.Insert(handle(), hostRecord(t, 1, 1))
	c.Reclaim(f.remover, f.drop)
	require.True(t, c.Contains(h.ID()), "record with live allocation evicted")
	require.Empty(t, f.remover.removed, "atlas entry removed while allocation alive")

	alloc.Release()
	c.Insert(handle(), hostRecord(t, 1, 1))
	c.Reclaim(f.remover, f.drop)
	assert.False(t, c.Contains(h.ID()), "record survived after allocation died")
	assert.Len(t, f.remover.removed, 1)
}

func TestReclaimNilDropReleases(t *testing.T) {
	f := newFixture(t)
	c := NewCache()

	rec := f.bindingRecord(t, 4, 4)
	b := rec.Binding
	c.Insert(handle(), rec)
	c.Reclaim(nil, nil)
	c.Insert(handle(), hostRecord(t, 1, 1))
	c.Reclaim(nil, nil)

	assert.Equal(t, int32(0), b.Refs())
}

func TestReclaimWithoutAtlasKeepsEntries(t *testing.T) {
	f := newFixture(t)
	c := NewCache()
	h, host := handle(), handle()

	rec := f.atlasRecord(t, 4, 4)
	c.Insert(h, rec)
	c.Insert(host, hostRecord(t, 1, 1))
	c.Reclaim(nil, nil)

	c.Insert(handle(), hostRecord(t, 1, 1))
	assert.Equal(t, 1, c.Reclaim(nil, nil), "only the host record can go")
	assert.True(t, c.Contains(h.ID()), "entry record dropped with nowhere to release it")
	assert.False(t, c.Contains(host.ID()))
	assert.True(t, f.atlas.Contains(rec.Entry))

	// Once an atlas is supplied the entry is released normally.
	c.Insert(handle(), hostRecord(t, 1, 1))
	c.Reclaim(f.remover, f.drop)
	assert.False(t, c.Contains(h.ID()))
	assert.False(t, f.atlas.Contains(rec.Entry))
	assert.Len(t, f.remover.removed, 1)
}

// TestReclaimScenario covers a mixed cycle: A is host-resident, B sits in
// the atlas and C has an externally referenced dedicated binding. Only A
// and C are hit.
func TestReclaimScenario(t *testing.T) {
	f := newFixture(t)
	c := NewCache()
	a, b, cc := handle(), handle(), handle()

	c.Insert(a, hostRecord(t, 2, 2))
	c.Insert(b, f.atlasRecord(t, 4, 4))
	crec := f.bindingRecord(t, 4, 4)
	alloc := image.NewAllocation(cc.ID(), crec.Dimensions())
	defer alloc.Release()
	crec.Allocation = alloc.Weak()
	c.Insert(cc, crec)
	c.Reclaim(f.remover, f.drop) // start a fresh cycle

	c.Insert(a, hostRecord(t, 2, 2))
	_, ok := c.Get(cc)
	require.True(t, ok)

	c.Reclaim(f.remover, f.drop)

	assert.True(t, c.Contains(a.ID()))
	assert.True(t, c.Contains(cc.ID()))
	assert.False(t, c.Contains(b.ID()))
	assert.Equal(t, 2, c.Len())
	assert.Len(t, f.remover.removed, 1)
	assert.Empty(t, f.dropped)
	assert.Zero(t, c.HitCount())
}

func TestStatsString(t *testing.T) {
	s := Stats{Len: 2, Hits: 3, Misses: 1, Inserts: 2, Evictions: 1, Reclaims: 1, Skipped: 1}
	assert.InDelta(t, 0.75, s.HitRate(), 1e-9)
	assert.NotEmpty(t, s.String())

	var zero Stats
	assert.Zero(t, zero.HitRate())
}

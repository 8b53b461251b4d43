// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBinding(t *testing.T, p *Pipeline) *Binding {
	t.Helper()
	b, err := p.CreateBinding(solidBuffer(t, 4, 4), "")
	require.NoError(t, err)
	return b
}

func setupReleaser(t *testing.T) (*Pipeline, *countingDevice, *laggingQueue, *Releaser) {
	t.Helper()
	base, baseQueue := createNoopDevice(t)
	device := &countingDevice{Device: base}
	queue := &laggingQueue{Queue: baseQueue}
	p, err := NewPipeline(device, queue, PipelineConfig{})
	require.NoError(t, err)
	t.Cleanup(p.Destroy)
	return p, device, queue, NewReleaser(device, queue)
}

func TestReleaserWaitsForSubmission(t *testing.T) {
	p, device, queue, r := setupReleaser(t)
	b := newTestBinding(t, p)
	b.MarkUsed(5)

	r.Defer(b)
	require.Equal(t, 1, r.Pending())

	queue.completed = 4
	require.Zero(t, r.Collect(), "destroyed before the submission completed")
	require.Zero(t, device.groups)

	queue.completed = 5
	require.Equal(t, 1, r.Collect())
	assert.Equal(t, [3]int{1, 1, 1}, [3]int{device.groups, device.views, device.textures})
	assert.Zero(t, r.Pending())
	assert.Equal(t, uint64(1), r.Destroyed())
}

func TestReleaserWaitsForReferences(t *testing.T) {
	p, device, queue, r := setupReleaser(t)
	b := newTestBinding(t, p)

	b.Retain() // an in-flight pass still holds it
	r.Defer(b)
	queue.completed = 100
	require.Zero(t, r.Collect(), "destroyed a binding with live references")

	b.Release()
	require.Equal(t, 1, r.Collect())
	assert.Equal(t, 1, device.groups)
}

func TestReleaserDrain(t *testing.T) {
	p, device, _, r := setupReleaser(t)
	a := newTestBinding(t, p)
	b := newTestBinding(t, p)
	a.MarkUsed(10)
	b.Retain()

	r.Defer(a)
	r.Defer(b)
	require.NoError(t, r.Drain())
	assert.Equal(t, 2, device.groups)
	assert.Zero(t, r.Pending())
	assert.Equal(t, uint64(2), r.Destroyed())
}

func TestReleaserDeferNil(t *testing.T) {
	_, _, _, r := setupReleaser(t)
	r.Defer(nil)
	assert.Zero(t, r.Pending())
}

func TestBindingMarkUsedMonotonic(t *testing.T) {
	b := newBinding("b", solidBuffer(t, 1, 1).Dimensions(), nil, nil, nil)
	b.MarkUsed(7)
	b.MarkUsed(3)
	assert.Equal(t, uint64(7), b.LastUse())
	b.MarkUsed(9)
	assert.Equal(t, uint64(9), b.LastUse())
}

func TestBindingOverRelease(t *testing.T) {
	b := newBinding("b", solidBuffer(t, 1, 1).Dimensions(), nil, nil, nil)
	require.Equal(t, int32(0), b.Release())
	assert.Equal(t, int32(0), b.Release(), "over-release must clamp at zero")
}

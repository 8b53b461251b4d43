package imagecache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/imagecache/atlas"
	"github.com/gogpu/imagecache/gpu"
	"github.com/gogpu/imagecache/image"
	"github.com/gogpu/wgpu/hal"
)

// fixture bundles a noop device with an atlas and pipeline so tests can
// build real Device records.
type fixture struct {
	device   hal.Device
	queue    hal.Queue
	pipeline *gpu.Pipeline
	atlas    *atlas.Atlas
	remover  *countingRemover
	dropped  []*gpu.Binding
}

// countingRemover records every atlas Remove before forwarding it.
type countingRemover struct {
	atlas   *atlas.Atlas
	removed []atlas.Entry
}

func (c *countingRemover) Remove(e atlas.Entry) {
	c.removed = append(c.removed, e)
	c.atlas.Remove(e)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	device, queue, cleanup, err := gpu.OpenNoop()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	p, err := gpu.NewPipeline(device, queue, gpu.PipelineConfig{})
	require.NoError(t, err)
	t.Cleanup(p.Destroy)

	a, err := atlas.New(device, queue, p, atlas.Config{LayerSize: 256, Padding: 1, MaxLayers: 1})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return &fixture{device: device, queue: queue, pipeline: p, atlas: a, remover: &countingRemover{atlas: a}}
}

// drop is a drop callback that records the bindings it receives.
func (f *fixture) drop(b *gpu.Binding) {
	f.dropped = append(f.dropped, b)
	b.Release()
}

func (f *fixture) atlasRecord(t *testing.T, w, h int) *Device {
	t.Helper()
	e, err := f.atlas.Allocate(newPixels(t, w, h))
	require.NoError(t, err)
	return &Device{Entry: e}
}

func (f *fixture) bindingRecord(t *testing.T, w, h int) *Device {
	t.Helper()
	b, err := f.pipeline.CreateBinding(newPixels(t, w, h), "test")
	require.NoError(t, err)
	return &Device{Binding: b}
}

func newPixels(t *testing.T, w, h int) *image.Buffer {
	t.Helper()
	buf, err := image.NewBuffer(w, h)
	require.NoError(t, err)
	return buf
}

func hostRecord(t *testing.T, w, h int) *Host {
	t.Helper()
	return &Host{Pixels: newPixels(t, w, h)}
}

// rgbaHandle returns a handle whose pixels decode to a w x h buffer.
func rgbaHandle(w, h int) image.Handle {
	return image.FromRGBA(w, h, make([]byte, w*h*4))
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/imagecache/image"
	"github.com/gogpu/wgpu/hal"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	device, queue, cleanup, err := OpenNoop()
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return device, queue
}

// countingDevice counts destroy calls on top of a real device.
type countingDevice struct {
	hal.Device
	groups   int
	views    int
	textures int
}

func (d *countingDevice) DestroyBindGroup(g hal.BindGroup) {
	d.groups++
	d.Device.DestroyBindGroup(g)
}

func (d *countingDevice) DestroyTextureView(v hal.TextureView) {
	d.views++
	d.Device.DestroyTextureView(v)
}

func (d *countingDevice) DestroyTexture(tex hal.Texture) {
	d.textures++
	d.Device.DestroyTexture(tex)
}

// laggingQueue reports a completion index set by the test instead of the
// noop queue's always-complete answer.
type laggingQueue struct {
	hal.Queue
	completed uint64
}

func (q *laggingQueue) PollCompleted() uint64 { return q.completed }

func solidBuffer(t *testing.T, w, h int) *image.Buffer {
	t.Helper()
	buf, err := image.NewBuffer(w, h)
	require.NoError(t, err)
	for i := range buf.Pix() {
		buf.Pix()[i] = 0xFF
	}
	return buf
}

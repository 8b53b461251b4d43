// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/imagecache/image"
	"github.com/gogpu/wgpu/hal"
)

// textureFormat is the format of every sampled image texture.
const textureFormat = gputypes.TextureFormatRGBA8Unorm

// CreateTexture creates a sampled RGBA8 texture that can be written with
// queue.WriteTexture, together with a view over its single mip level.
func CreateTexture(device hal.Device, label string, width, height uint32) (hal.Texture, hal.TextureView, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        textureFormat,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: create texture %q: %w", label, err)
	}

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        textureFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("gpu: create texture view %q: %w", label, err)
	}
	return tex, view, nil
}

// WritePixels uploads pixels into tex with the top-left corner at (x, y).
func WritePixels(queue hal.Queue, tex hal.Texture, x, y uint32, pixels *image.Buffer) error {
	if pixels == nil {
		return ErrNilPixels
	}
	size := pixels.Dimensions()
	err := queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: x, Y: y},
			Aspect:   gputypes.TextureAspectAll,
		},
		pixels.Pix(),
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(pixels.Stride()), //nolint:gosec // stride of a validated buffer
			RowsPerImage: size.Height,
		},
		&hal.Extent3D{Width: size.Width, Height: size.Height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("gpu: write texture: %w", err)
	}
	return nil
}

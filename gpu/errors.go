// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import "errors"

var (
	// ErrNilPixels is returned when a binding is requested without pixels.
	ErrNilPixels = errors.New("gpu: nil pixel buffer")

	// ErrTextureTooLarge is returned when an image exceeds the device's
	// maximum 2D texture dimension.
	ErrTextureTooLarge = errors.New("gpu: texture exceeds max dimension")

	// ErrNilDevice is returned when a nil device or queue is supplied.
	ErrNilDevice = errors.New("gpu: nil device or queue")

	// ErrProviderUnsupported is returned when a device provider does not
	// expose hal objects.
	ErrProviderUnsupported = errors.New("gpu: device provider does not expose hal device and queue")
)

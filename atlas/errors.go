// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package atlas

import "errors"

var (
	// ErrAtlasFull is returned when no layer has room and no more layers
	// may be created.
	ErrAtlasFull = errors.New("atlas: all layers are full")

	// ErrTooLarge is returned for images that cannot fit in a single layer.
	ErrTooLarge = errors.New("atlas: image larger than layer")

	// ErrClosed is returned by Allocate after Close.
	ErrClosed = errors.New("atlas: closed")
)

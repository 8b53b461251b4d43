// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpu holds the device-side resources of the image cache: the image
// render pipeline, dedicated per-image bindings and the deferred releaser
// that destroys bindings once the queue has finished with them.
//
// All types work against the hal interfaces of github.com/gogpu/wgpu, so any
// backend (Vulkan, Metal, DX12, GLES, software or noop) can drive them.
package gpu

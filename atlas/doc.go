// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package atlas packs many small images into a few shared GPU textures.
//
// An [Atlas] owns up to Config.MaxLayers square RGBA8 textures. Each layer
// is shelf-packed by a [ShelfAllocator]; Allocate uploads pixels into the
// first layer with room and returns an [Entry] that later identifies the
// region to Remove. Each layer carries a bind group created through a
// [Binder], so drawing an entry means binding [Atlas.Layer] and sampling
// [Entry.UV].
package atlas

// Package image defines image identity, decoded pixel buffers and the
// allocation handles the cache observes without owning.
//
// A [Handle] pairs a stable [ID] with a source able to reproduce pixels on
// demand: a file path, encoded bytes or raw RGBA. [Load] turns a handle into
// a [Buffer] of premultiplied RGBA8 pixels.
//
// Supported encodings are PNG, JPEG and GIF from the standard library plus
// BMP, TIFF and WebP from golang.org/x/image.
package image

package imagecache

import "errors"

var (
	// ErrAllocation is returned by Renderer.Prepare when an image could
	// be placed neither in the atlas nor in a dedicated binding. The
	// caller should drop the draw; the record stays host-resident.
	ErrAllocation = errors.New("imagecache: GPU allocation failed")

	// ErrStaleEntry is returned by Renderer.Prepare when a cached atlas
	// entry names a layer the atlas does not have.
	ErrStaleEntry = errors.New("imagecache: atlas entry has no layer")

	// ErrClosed is returned after Renderer.Close.
	ErrClosed = errors.New("imagecache: renderer closed")
)

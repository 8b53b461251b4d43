package imagecache

import (
	"github.com/gogpu/imagecache/atlas"
	"github.com/gogpu/imagecache/gpu"
	"github.com/gogpu/imagecache/image"
)

// Record describes where an image's pixel data currently lives.
// It is one of *Host, *Device or *Failed.
type Record interface {
	// Dimensions returns the image size. Failed records report 1x1 so
	// layout code never has to special-case errors.
	Dimensions() image.Size

	// HostPixels returns a copy of the decoded pixels of a Host record.
	// Device and Failed records return false; there is no GPU readback.
	HostPixels() (*image.Buffer, bool)

	isRecord()
}

// Host holds decoded pixels in ordinary memory. No GPU resource is held.
type Host struct {
	Pixels *image.Buffer
}

// Device is an image resident on the GPU.
//
// Exactly one of Entry and Binding is the removal path: when Binding is set
// the record owns one reference to it and Entry is ignored, otherwise Entry
// is a live atlas region.
type Device struct {
	Entry   atlas.Entry
	Binding *gpu.Binding

	// Allocation observes externally owned metadata the image depends on.
	// While it is alive the record survives reclamation even if not hit.
	Allocation image.Weak
}

// Failed is a terminal decode or upload error, cached so the failing work
// is not repeated every frame.
type Failed struct {
	Err error
}

// Dimensions implements Record.
func (r *Host) Dimensions() image.Size { return r.Pixels.Dimensions() }

// Dimensions implements Record.
func (r *Device) Dimensions() image.Size {
	if r.Binding != nil {
		return r.Binding.Size()
	}
	return r.Entry.Size()
}

// Dimensions implements Record.
func (*Failed) Dimensions() image.Size { return image.Size{Width: 1, Height: 1} }

// HostPixels implements Record.
func (r *Host) HostPixels() (*image.Buffer, bool) { return r.Pixels.Clone(), true }

// HostPixels implements Record.
func (*Device) HostPixels() (*image.Buffer, bool) { return nil, false }

// HostPixels implements Record.
func (*Failed) HostPixels() (*image.Buffer, bool) { return nil, false }

// Error implements error.
func (r *Failed) Error() string { return "imagecache: image failed: " + r.Err.Error() }

// Unwrap returns the underlying error.
func (r *Failed) Unwrap() error { return r.Err }

func (*Host) isRecord()   {}
func (*Device) isRecord() {}
func (*Failed) isRecord() {}

// Loader produces decoded pixels for a handle.
type Loader interface {
	Load(h image.Handle) (*image.Buffer, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(h image.Handle) (*image.Buffer, error)

// Load implements Loader.
func (f LoaderFunc) Load(h image.Handle) (*image.Buffer, error) { return f(h) }

// DefaultLoader decodes handles with image.Load.
var DefaultLoader Loader = LoaderFunc(image.Load)

// Load decodes h into a Host record, or a Failed record on error.
// It has no GPU side effects.
func Load(h image.Handle) Record {
	return LoadWith(DefaultLoader, h)
}

// LoadWith is Load through l.
func LoadWith(l Loader, h image.Handle) Record {
	pixels, err := l.Load(h)
	if err != nil {
		return &Failed{Err: err}
	}
	return &Host{Pixels: pixels}
}

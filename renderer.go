package imagecache

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/imagecache/atlas"
	"github.com/gogpu/imagecache/gpu"
	"github.com/gogpu/imagecache/image"
	"github.com/gogpu/wgpu/hal"
)

// Draw describes how to draw one prepared image.
type Draw struct {
	ID   image.ID
	Size image.Size

	// Layer is the atlas layer holding the image, or -1 when the image has
	// a dedicated binding or failed.
	Layer int

	// UV is (u0, v0, u1, v1) within the bound texture.
	UV [4]float32

	// BindGroup is the texture+sampler group to set before drawing. It is
	// nil for failed images.
	BindGroup hal.BindGroup

	// Failed marks a placeholder for an image that could not be decoded.
	// Err holds the cached failure.
	Failed bool
	Err    error
}

// RendererStats combines the counters of the renderer's parts.
type RendererStats struct {
	Cache             Stats
	Atlas             atlas.Stats
	PendingBindings   int
	DestroyedBindings uint64
}

// Renderer drives the cache for a rendering loop: it decodes on demand,
// uploads into the atlas or a dedicated binding, and reclaims unused
// images at the end of each frame without freeing anything the GPU may
// still read.
//
// Renderer is not safe for concurrent use.
type Renderer struct {
	device   hal.Device
	queue    hal.Queue
	opts     options
	cache    *Cache
	atlas    *atlas.Atlas
	pipeline *gpu.Pipeline
	releaser *gpu.Releaser

	// inFlight holds one reference per binding drawn this frame.
	inFlight []*gpu.Binding
	closed   bool
}

// New creates a renderer on device and queue.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	pipeline, err := gpu.NewPipeline(device, queue, gpu.PipelineConfig{
		Format:              o.format,
		MaxTextureDimension: o.maxTextureDimension,
		Label:               o.label,
	})
	if err != nil {
		return nil, fmt.Errorf("imagecache: %w", err)
	}

	ac := o.atlas
	if ac.Label == "" {
		ac.Label = o.label + "_atlas"
	}
	at, err := atlas.New(device, queue, pipeline, ac)
	if err != nil {
		pipeline.Destroy()
		return nil, fmt.Errorf("imagecache: %w", err)
	}

	Logger().Info("imagecache: renderer created",
		"layer_size", ac.LayerSize, "max_layers", ac.MaxLayers,
		"max_texture_dimension", pipeline.Config().MaxTextureDimension)

	return &Renderer{
		device:   device,
		queue:    queue,
		opts:     o,
		cache:    NewCache(),
		atlas:    at,
		pipeline: pipeline,
		releaser: gpu.NewReleaser(device, queue),
	}, nil
}

// NewFromProvider creates a renderer on the device shared by provider,
// such as a gogpu application. The provider's surface format is used as
// the color target unless WithSurfaceFormat overrides it.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Renderer, error) {
	device, queue, err := gpu.FromProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("imagecache: %w", err)
	}
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		opts = append([]Option{WithSurfaceFormat(f)}, opts...)
	}
	return New(device, queue, opts...)
}

// Prepare makes the image behind h ready to draw this frame.
//
// The image is decoded on first use and uploaded on the first Prepare
// after that: into the atlas when it fits, otherwise into a dedicated
// binding. If both fail the returned error wraps ErrAllocation and the
// record stays host-resident so a later frame can retry.
//
// Images that failed to decode yield a 1x1 placeholder Draw with Failed
// set and a nil error. A cached atlas entry whose layer is gone yields
// ErrStaleEntry.
func (r *Renderer) Prepare(h image.Handle) (Draw, error) {
	if r.closed {
		return Draw{}, ErrClosed
	}
	slot := r.cache.GetOrCreate(h, func(h image.Handle) Record {
		return LoadWith(r.opts.loader, h)
	})

	switch rec := slot.Record.(type) {
	case *Failed:
		return Draw{ID: h.ID(), Size: rec.Dimensions(), Layer: -1, Failed: true, Err: rec.Err}, nil
	case *Host:
		dev, err := r.upload(h, rec.Pixels)
		if err != nil {
			return Draw{}, err
		}
		slot.Record = dev
		return r.draw(h.ID(), dev)
	case *Device:
		return r.draw(h.ID(), rec)
	default:
		return Draw{}, fmt.Errorf("imagecache: unexpected record %T", rec)
	}
}

// upload moves pixels to the GPU, preferring the atlas.
func (r *Renderer) upload(h image.Handle, pixels *image.Buffer) (*Device, error) {
	entry, err := r.atlas.Allocate(pixels)
	if err == nil {
		return &Device{Entry: entry}, nil
	}
	if !errors.Is(err, atlas.ErrAtlasFull) && !errors.Is(err, atlas.ErrTooLarge) {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}

	Logger().Warn("imagecache: atlas cannot hold image, using dedicated binding",
		"id", h.ID(), "size", pixels.Dimensions().String(), "reason", err)

	label := fmt.Sprintf("%s_image_%x", r.opts.label, uint64(h.ID()))
	b, berr := r.pipeline.CreateBinding(pixels, label)
	if berr != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, errors.Join(err, berr))
	}
	return &Device{Binding: b}, nil
}

func (r *Renderer) draw(id image.ID, d *Device) (Draw, error) {
	if b := d.Binding; b != nil {
		b.Retain()
		r.inFlight = append(r.inFlight, b)
		return Draw{ID: id, Size: b.Size(), Layer: -1, UV: [4]float32{0, 0, 1, 1}, BindGroup: b.BindGroup()}, nil
	}
	group, ok := r.atlas.Layer(d.Entry.Layer)
	if !ok {
		return Draw{}, fmt.Errorf("%w: image %x, layer %d", ErrStaleEntry, uint64(id), d.Entry.Layer)
	}
	return Draw{ID: id, Size: d.Entry.Size(), Layer: d.Entry.Layer, UV: d.Entry.UV(), BindGroup: group}, nil
}

// Allocate makes h device-resident and returns an allocation owned by the
// caller. While any holder keeps it alive the image survives reclamation
// even in frames that do not draw it. Call Release when done.
func (r *Renderer) Allocate(h image.Handle) (*image.Allocation, error) {
	if r.closed {
		return nil, ErrClosed
	}
	slot := r.cache.GetOrCreate(h, func(h image.Handle) Record {
		return LoadWith(r.opts.loader, h)
	})

	var dev *Device
	switch rec := slot.Record.(type) {
	case *Failed:
		return nil, rec
	case *Host:
		d, err := r.upload(h, rec.Pixels)
		if err != nil {
			return nil, err
		}
		slot.Record = d
		dev = d
	case *Device:
		dev = rec
	default:
		return nil, fmt.Errorf("imagecache: unexpected record %T", rec)
	}

	if a, ok := dev.Allocation.Upgrade(); ok {
		return a, nil
	}
	a := image.NewAllocation(h.ID(), dev.Dimensions())
	dev.Allocation = a.Weak()
	return a, nil
}

// EndFrame finishes a frame whose commands were submitted with the given
// queue submission index. Bindings drawn this frame are tagged with it,
// unused records are reclaimed, and bindings whose submissions completed
// are destroyed. It returns the number of records reclaimed.
func (r *Renderer) EndFrame(submission uint64) int {
	for _, b := range r.inFlight {
		b.MarkUsed(submission)
		b.Release()
	}
	clear(r.inFlight)
	r.inFlight = r.inFlight[:0]

	evicted := r.cache.Reclaim(r.atlas, r.releaser.Defer)
	r.releaser.Collect()
	return evicted
}

// Cache returns the underlying cache.
func (r *Renderer) Cache() *Cache { return r.cache }

// Atlas returns the shared atlas.
func (r *Renderer) Atlas() *atlas.Atlas { return r.atlas }

// Pipeline returns the image pipeline to draw with.
func (r *Renderer) Pipeline() *gpu.Pipeline { return r.pipeline }

// Releaser returns the deferred binding releaser.
func (r *Renderer) Releaser() *gpu.Releaser { return r.releaser }

// Stats returns a snapshot of renderer counters.
func (r *Renderer) Stats() RendererStats {
	return RendererStats{
		Cache:             r.cache.Stats(),
		Atlas:             r.atlas.Stats(),
		PendingBindings:   r.releaser.Pending(),
		DestroyedBindings: r.releaser.Destroyed(),
	}
}

// Close waits for the device to go idle and destroys every GPU resource
// the renderer created. Safe to call more than once.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	for _, b := range r.inFlight {
		b.Release()
	}
	r.inFlight = nil
	for _, s := range r.cache.slots {
		if d, ok := s.Record.(*Device); ok && d.Binding != nil {
			r.releaser.Defer(d.Binding)
			d.Binding = nil
		}
	}

	err := r.releaser.Drain()
	r.cache.reset()
	r.atlas.Close()
	r.pipeline.Destroy()

	Logger().Info("imagecache: renderer closed")
	return err
}

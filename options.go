package imagecache

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/imagecache/atlas"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := imagecache.New(device, queue,
//	    imagecache.WithAtlasConfig(atlas.Config{LayerSize: 4096, Padding: 1, MaxLayers: 2}),
//	    imagecache.WithLoader(memo),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	atlas               atlas.Config
	maxTextureDimension uint32
	loader              Loader
	format              gputypes.TextureFormat
	label               string
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		atlas:  atlas.DefaultConfig(),
		loader: DefaultLoader,
		label:  "imagecache",
	}
}

// WithAtlasConfig sets the atlas layer size, padding and layer limit.
func WithAtlasConfig(c atlas.Config) Option {
	return func(o *options) {
		o.atlas = c
	}
}

// WithMaxTextureDimension bounds the size of dedicated bindings. Images
// larger than this in either direction fail with ErrAllocation.
// Defaults to the WebGPU default limit (8192).
func WithMaxTextureDimension(n uint32) Option {
	return func(o *options) {
		o.maxTextureDimension = n
	}
}

// WithLoader replaces image.Load as the decoder used on cache misses.
// Pass a *loader.Loader to memoize decodes of file-backed images.
func WithLoader(l Loader) Option {
	return func(o *options) {
		if l != nil {
			o.loader = l
		}
	}
}

// WithSurfaceFormat sets the color target format of the image pipeline.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithLabel sets the prefix of GPU debug labels.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}

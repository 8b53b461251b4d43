// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/imagecache/image"
	"github.com/gogpu/wgpu/hal"
)

// vertexStride is the size of one image vertex: position.xy + uv.xy.
const vertexStride = 16

// PipelineConfig configures the image pipeline.
type PipelineConfig struct {
	// Format is the color target format.
	// Default: BGRA8Unorm
	Format gputypes.TextureFormat

	// MaxTextureDimension bounds dedicated binding sizes.
	// Default: gputypes.DefaultLimits().MaxTextureDimension2D
	MaxTextureDimension uint32

	// Label prefixes all GPU debug labels.
	// Default: "imagecache"
	Label string
}

// DefaultPipelineConfig returns the default configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Format:              gputypes.TextureFormatBGRA8Unorm,
		MaxTextureDimension: gputypes.DefaultLimits().MaxTextureDimension2D,
		Label:               "imagecache",
	}
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	d := DefaultPipelineConfig()
	if c.Format == gputypes.TextureFormatUndefined {
		c.Format = d.Format
	}
	if c.MaxTextureDimension == 0 {
		c.MaxTextureDimension = d.MaxTextureDimension
	}
	if c.Label == "" {
		c.Label = d.Label
	}
	return c
}

// Pipeline owns the GPU state shared by every cached image: the compiled
// shader, the texture+sampler bind group layout, a linear clamp sampler and
// the render pipeline.
//
// Bind group layout:
//
//	Binding 0: image texture (texture_2d<f32>, fragment)
//	Binding 1: sampler (fragment)
type Pipeline struct {
	device hal.Device
	queue  hal.Queue
	config PipelineConfig

	shader     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler
	pipeline   hal.RenderPipeline
}

// NewPipeline compiles the image shader and creates all shared GPU objects.
// On error, everything created so far is destroyed.
func NewPipeline(device hal.Device, queue hal.Queue, config PipelineConfig) (*Pipeline, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	p := &Pipeline{device: device, queue: queue, config: config.withDefaults()}
	if err := p.create(); err != nil {
		p.Destroy()
		return nil, err
	}
	slogger().Debug("gpu: image pipeline created",
		"format", p.config.Format, "max_texture_dimension", p.config.MaxTextureDimension)
	return p, nil
}

func (p *Pipeline) create() error {
	label := p.config.Label

	spirv, err := CompileShader(imageShaderSource)
	if err != nil {
		return err
	}
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label + "_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("gpu: create image shader: %w", err)
	}
	p.shader = shader

	layout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: label + "_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create image bind group layout: %w", err)
	}
	p.layout = layout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.layout},
	})
	if err != nil {
		return fmt.Errorf("gpu: create image pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label + "_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("gpu: create image sampler: %w", err)
	}
	p.sampler = sampler

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label + "_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    vertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.config.Format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create image pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

// vertexLayout matches the vertex inputs of image.wgsl:
//
//	location 0: position (vec2<f32>)
//	location 1: uv (vec2<f32>)
func vertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: vertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
			},
		},
	}
}

// Config returns the effective configuration.
func (p *Pipeline) Config() PipelineConfig { return p.config }

// Device returns the device the pipeline was created on.
func (p *Pipeline) Device() hal.Device { return p.device }

// Queue returns the queue used for uploads.
func (p *Pipeline) Queue() hal.Queue { return p.queue }

// Layout returns the texture+sampler bind group layout.
func (p *Pipeline) Layout() hal.BindGroupLayout { return p.layout }

// Sampler returns the shared sampler.
func (p *Pipeline) Sampler() hal.Sampler { return p.sampler }

// RenderPipeline returns the render pipeline to set before drawing images.
func (p *Pipeline) RenderPipeline() hal.RenderPipeline { return p.pipeline }

// BindTexture creates a bind group pairing view with the shared sampler.
func (p *Pipeline) BindTexture(view hal.TextureView, label string) (hal.BindGroup, error) {
	group, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: p.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group %q: %w", label, err)
	}
	return group, nil
}

// CreateBinding uploads pixels into a dedicated texture and returns a
// Binding holding one reference for the caller.
func (p *Pipeline) CreateBinding(pixels *image.Buffer, label string) (*Binding, error) {
	if pixels == nil {
		return nil, ErrNilPixels
	}
	size := pixels.Dimensions()
	if limit := p.config.MaxTextureDimension; size.Width > limit || size.Height > limit {
		return nil, fmt.Errorf("%w: %s > %d", ErrTextureTooLarge, size, limit)
	}
	if label == "" {
		label = p.config.Label + "_binding"
	}

	tex, view, err := CreateTexture(p.device, label, size.Width, size.Height)
	if err != nil {
		return nil, err
	}
	if err := WritePixels(p.queue, tex, 0, 0, pixels); err != nil {
		p.device.DestroyTextureView(view)
		p.device.DestroyTexture(tex)
		return nil, err
	}
	group, err := p.BindTexture(view, label+"_group")
	if err != nil {
		p.device.DestroyTextureView(view)
		p.device.DestroyTexture(tex)
		return nil, err
	}

	slogger().Debug("gpu: binding created", "label", label, "size", size.String())
	return newBinding(label, size, tex, view, group), nil
}

// Destroy releases all GPU objects owned by the pipeline. Safe to call
// more than once.
func (p *Pipeline) Destroy() {
	if p.device == nil {
		return
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.layout != nil {
		p.device.DestroyBindGroupLayout(p.layout)
		p.layout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

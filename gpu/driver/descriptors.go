// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

// AdapterOptions are the options for [Driver.RequestAdapter].
type AdapterOptions struct {
	PowerPreference PowerPreference
}

// AdapterInfo describes an adapter.
type AdapterInfo struct {
	Name    string
	Vendor  string
	Backend string
	Type    string
	Driver  string
}

// DeviceDescriptor describes a device to open.
type DeviceDescriptor struct {
	Label string
}

// BufferDescriptor describes a buffer. If Contents is non-nil the buffer
// is created with those contents and Size is taken from it.
type BufferDescriptor struct {
	Label    string
	Size     uint64
	Usage    BufferUsage
	Contents []byte
}

// TextureDescriptor describes a 2D (or layered 2D) texture.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Depth  uint32
	Format TextureFormat
	Usage  TextureUsage
}

// SamplerDescriptor describes a sampler.
type SamplerDescriptor struct {
	Label         string
	AddressMode   AddressMode
	MagFilter     FilterMode
	MinFilter     FilterMode
	MaxAnisotropy uint16
}

// ShaderModuleDescriptor holds shader source code.
// The language is defined by the driver (WGSL for WebGPU drivers).
type ShaderModuleDescriptor struct {
	Label string
	Code  string
}

// BindGroupLayoutEntry is one slot in a bind group layout.
type BindGroupLayoutEntry struct {
	Binding    uint32
	Visibility ShaderStage
	Type       BindingType
}

// BindGroupLayoutDescriptor describes a bind group layout.
// Entries may be empty, for unused group indexes.
type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

// WholeSize as a [BindGroupEntry] size binds from the offset to the end.
const WholeSize = ^uint64(0)

// BindGroupEntry attaches one resource to a binding slot.
// Exactly one of Buffer, TextureView and Sampler is set.
type BindGroupEntry struct {
	Binding     uint32
	Buffer      Buffer
	Offset      uint64
	Size        uint64
	TextureView TextureView
	Sampler     Sampler
}

// BindGroupDescriptor describes a bind group.
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// PipelineLayoutDescriptor lists bind group layouts by group index.
type PipelineLayoutDescriptor struct {
	Label            string
	BindGroupLayouts []BindGroupLayout
}

// ComputePipelineDescriptor describes a compute pipeline.
type ComputePipelineDescriptor struct {
	Label      string
	Layout     PipelineLayout
	Module     ShaderModule
	EntryPoint string
}

// RenderPipelineDescriptor describes a render pipeline with a single
// color target.
type RenderPipelineDescriptor struct {
	Label         string
	Layout        PipelineLayout
	Module        ShaderModule
	VertexEntry   string
	FragmentEntry string
	Topology      PrimitiveTopology
	TargetFormat  TextureFormat
}

// RenderPassColorAttachment is the color target of a render pass.
type RenderPassColorAttachment struct {
	View       TextureView
	LoadOp     LoadOp
	ClearValue Color
}

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []RenderPassColorAttachment
}

// SurfaceConfiguration configures a [Surface].
type SurfaceConfiguration struct {
	Format TextureFormat
	Width  uint32
	Height uint32
}

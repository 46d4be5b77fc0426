// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package driver defines the capability surface that package gpu
// consumes from a GPU backend: adapters, devices, queues, buffers,
// pipelines, command encoding and presentation surfaces.
//
// Implementations live in sub-packages: wgpudrv runs on a real GPU
// through WebGPU (wgpu-native) and softdrv is a software device that
// executes Go kernel functions, used for tests and headless hosts.
package driver

import "context"

// Driver is the entry point of a backend.
type Driver interface {
	// RequestAdapter returns an adapter matching the options,
	// or an error if none is available.
	RequestAdapter(ctx context.Context, opts *AdapterOptions) (Adapter, error)
}

// Adapter is a physical GPU (or software emulation of one).
type Adapter interface {
	Info() AdapterInfo

	// RequestDevice opens a logical device on the adapter.
	RequestDevice(ctx context.Context, desc *DeviceDescriptor) (Device, error)

	Release()
}

// Device is a logical device: the factory for all GPU objects.
type Device interface {
	Queue() Queue

	CreateBuffer(desc *BufferDescriptor) (Buffer, error)
	CreateTexture(desc *TextureDescriptor) (Texture, error)
	CreateSampler(desc *SamplerDescriptor) (Sampler, error)
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error)
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayout, error)
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error)
	CreatePipelineLayout(desc *PipelineLayoutDescriptor) (PipelineLayout, error)
	CreateComputePipeline(desc *ComputePipelineDescriptor) (ComputePipeline, error)
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Poll processes completed work and fires pending map callbacks.
	// If wait is true it blocks until all submitted work is done.
	Poll(wait bool)

	Release()
}

// Queue executes command buffers and buffer writes in submission order.
type Queue interface {
	// WriteBuffer schedules a write of data into buf at offset.
	// The write is ordered with respect to Submit calls.
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	Submit(cmds ...CommandBuffer)
}

// Releaser is implemented by every GPU object.
type Releaser interface {
	Release()
}

// Buffer is a device memory region.
type Buffer interface {
	Releaser

	Size() uint64
	Usage() BufferUsage

	// MapAsync requests host access to the given range. The callback
	// is called from [Device.Poll] once all previously submitted work
	// is complete. A buffer cannot be mapped twice.
	MapAsync(mode MapMode, offset, size uint64, callback func(MapStatus)) error

	// MappedRange returns the mapped memory, valid until Unmap.
	MappedRange(offset, size uint64) []byte

	Unmap()
}

// Texture is a device image.
type Texture interface {
	Releaser
	CreateView() (TextureView, error)
}

type (
	TextureView     interface{ Releaser }
	Sampler         interface{ Releaser }
	ShaderModule    interface{ Releaser }
	BindGroupLayout interface{ Releaser }
	BindGroup       interface{ Releaser }
	PipelineLayout  interface{ Releaser }
	ComputePipeline interface{ Releaser }
	RenderPipeline  interface{ Releaser }
	CommandBuffer   interface{ Releaser }
)

// CommandEncoder records passes and copies into a CommandBuffer.
type CommandEncoder interface {
	Releaser

	BeginComputePass(label string) ComputePass
	BeginRenderPass(desc *RenderPassDescriptor) RenderPass
	CopyBufferToBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset, size uint64) error

	Finish() (CommandBuffer, error)
}

// ComputePass records compute dispatches.
type ComputePass interface {
	Releaser

	SetPipeline(pl ComputePipeline)
	SetBindGroup(index uint32, bg BindGroup)
	DispatchWorkgroups(x, y, z uint32)
	End() error
}

// RenderPass records draw calls.
type RenderPass interface {
	Releaser

	SetPipeline(pl RenderPipeline)
	SetBindGroup(index uint32, bg BindGroup)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End() error
}

// Surface is a presentable target, such as a window or canvas.
type Surface interface {
	Releaser

	// Configure sets up the surface for rendering with the given device,
	// returning the texture format actually used. A config Format of
	// [TextureFormatUndefined] selects the surface's preferred format.
	Configure(dev Device, cfg *SurfaceConfiguration) (TextureFormat, error)

	// CurrentView returns a view of the texture for the next frame.
	CurrentView() (TextureView, error)

	// Present shows the current frame.
	Present()
}

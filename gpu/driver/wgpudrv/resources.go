// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wgpudrv

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// Buffer is a WebGPU buffer.
type Buffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  driver.BufferUsage
}

func (bf *Buffer) Size() uint64              { return bf.size }
func (bf *Buffer) Usage() driver.BufferUsage { return bf.usage }

func (bf *Buffer) MapAsync(mode driver.MapMode, offset, size uint64, callback func(driver.MapStatus)) error {
	mm := wgpu.MapModeRead
	if mode == driver.MapModeWrite {
		mm = wgpu.MapModeWrite
	}
	return bf.buffer.MapAsync(mm, offset, size, func(s wgpu.BufferMapAsyncStatus) {
		callback(mapStatus(s))
	})
}

func (bf *Buffer) MappedRange(offset, size uint64) []byte {
	return bf.buffer.GetMappedRange(uint(offset), uint(size))
}

func (bf *Buffer) Unmap() {
	bf.buffer.Unmap()
}

func (bf *Buffer) Release() {
	bf.buffer.Release()
}

func mapStatus(s wgpu.BufferMapAsyncStatus) driver.MapStatus {
	switch s {
	case wgpu.BufferMapAsyncStatusSuccess:
		return driver.MapStatusSuccess
	case wgpu.BufferMapAsyncStatusValidationError:
		return driver.MapStatusValidationError
	case wgpu.BufferMapAsyncStatusUnmappedBeforeCallback:
		return driver.MapStatusUnmappedBeforeCallback
	case wgpu.BufferMapAsyncStatusDestroyedBeforeCallback:
		return driver.MapStatusDestroyedBeforeCallback
	case wgpu.BufferMapAsyncStatusDeviceLost:
		return driver.MapStatusDeviceLost
	}
	return driver.MapStatusUnknown
}

// Texture is a WebGPU texture.
type Texture struct {
	texture *wgpu.Texture
}

func (tx *Texture) CreateView() (driver.TextureView, error) {
	vw, err := tx.texture.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &TextureView{view: vw}, nil
}

func (tx *Texture) Release() { tx.texture.Release() }

// TextureView is a WebGPU texture view.
type TextureView struct {
	view *wgpu.TextureView
}

func (tv *TextureView) Release() { tv.view.Release() }

// Sampler is a WebGPU sampler.
type Sampler struct {
	sampler *wgpu.Sampler
}

func (sm *Sampler) Release() { sm.sampler.Release() }

// ShaderModule is a compiled WebGPU shader module.
type ShaderModule struct {
	module *wgpu.ShaderModule
}

func (sm *ShaderModule) Release() { sm.module.Release() }

type BindGroupLayout struct {
	layout *wgpu.BindGroupLayout
}

func (bl *BindGroupLayout) Release() { bl.layout.Release() }

type BindGroup struct {
	group *wgpu.BindGroup
}

func (bg *BindGroup) Release() { bg.group.Release() }

type PipelineLayout struct {
	layout *wgpu.PipelineLayout
}

func (pl *PipelineLayout) Release() { pl.layout.Release() }

type ComputePipeline struct {
	pipeline *wgpu.ComputePipeline
}

func (pl *ComputePipeline) Release() { pl.pipeline.Release() }

type RenderPipeline struct {
	pipeline *wgpu.RenderPipeline
}

func (pl *RenderPipeline) Release() { pl.pipeline.Release() }

var textureFormats = map[driver.TextureFormat]wgpu.TextureFormat{
	driver.TextureFormatUndefined:      wgpu.TextureFormatUndefined,
	driver.TextureFormatRGBA8Unorm:     wgpu.TextureFormatRGBA8Unorm,
	driver.TextureFormatRGBA8UnormSrgb: wgpu.TextureFormatRGBA8UnormSrgb,
	driver.TextureFormatBGRA8Unorm:     wgpu.TextureFormatBGRA8Unorm,
	driver.TextureFormatBGRA8UnormSrgb: wgpu.TextureFormatBGRA8UnormSrgb,
	driver.TextureFormatR32Float:       wgpu.TextureFormatR32Float,
	driver.TextureFormatRGBA32Float:    wgpu.TextureFormatRGBA32Float,
}

func textureFormat(tf driver.TextureFormat) wgpu.TextureFormat {
	return textureFormats[tf]
}

// driverFormat returns the driver format for a WebGPU format,
// and false if it has none.
func driverFormat(wf wgpu.TextureFormat) (driver.TextureFormat, bool) {
	for tf, f := range textureFormats {
		if f == wf && tf != driver.TextureFormatUndefined {
			return tf, true
		}
	}
	return driver.TextureFormatUndefined, false
}

func addressMode(am driver.AddressMode) wgpu.AddressMode {
	switch am {
	case driver.AddressModeClampToEdge:
		return wgpu.AddressModeClampToEdge
	case driver.AddressModeMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	}
	return wgpu.AddressModeRepeat
}

func filterMode(fm driver.FilterMode) wgpu.FilterMode {
	if fm == driver.FilterModeNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

var primitiveTopologies = map[driver.PrimitiveTopology]wgpu.PrimitiveTopology{
	driver.PrimitiveTopologyPointList:     wgpu.PrimitiveTopologyPointList,
	driver.PrimitiveTopologyLineList:      wgpu.PrimitiveTopologyLineList,
	driver.PrimitiveTopologyLineStrip:     wgpu.PrimitiveTopologyLineStrip,
	driver.PrimitiveTopologyTriangleList:  wgpu.PrimitiveTopologyTriangleList,
	driver.PrimitiveTopologyTriangleStrip: wgpu.PrimitiveTopologyTriangleStrip,
}

func primitiveTopology(pt driver.PrimitiveTopology) wgpu.PrimitiveTopology {
	if t, ok := primitiveTopologies[pt]; ok {
		return t
	}
	return wgpu.PrimitiveTopologyTriangleList
}

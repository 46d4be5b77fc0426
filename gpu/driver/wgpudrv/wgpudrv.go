// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wgpudrv implements the gpu driver interfaces on WebGPU,
// using the wgpu-native bindings.
package wgpudrv

import (
	"context"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// Driver is the WebGPU driver. It owns the WebGPU instance,
// which is created on first use.
type Driver struct {
	mu       sync.Mutex
	instance *wgpu.Instance
}

// New returns a new WebGPU [Driver].
func New() *Driver {
	return &Driver{}
}

// Instance returns the WebGPU instance, creating it if needed.
func (d *Driver) Instance() *wgpu.Instance {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.instance == nil {
		d.instance = wgpu.CreateInstance(nil)
	}
	return d.instance
}

// Release releases the instance. Adapters and devices
// must be released first.
func (d *Driver) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func (d *Driver) RequestAdapter(ctx context.Context, opts *driver.AdapterOptions) (driver.Adapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ro := &wgpu.RequestAdapterOptions{PowerPreference: wgpu.PowerPreferenceHighPerformance}
	if opts != nil {
		ro.PowerPreference = powerPreference(opts.PowerPreference)
	}
	a, err := d.Instance().RequestAdapter(ro)
	if err != nil {
		return nil, fmt.Errorf("wgpudrv RequestAdapter: %w", err)
	}
	return &Adapter{adapter: a}, nil
}

func powerPreference(pp driver.PowerPreference) wgpu.PowerPreference {
	switch pp {
	case driver.PowerPreferenceLowPower:
		return wgpu.PowerPreferenceLowPower
	case driver.PowerPreferenceHighPerformance:
		return wgpu.PowerPreferenceHighPerformance
	}
	return wgpu.PowerPreferenceUndefined
}

// Adapter is a WebGPU adapter.
type Adapter struct {
	adapter *wgpu.Adapter
}

func (ad *Adapter) Info() driver.AdapterInfo {
	info := ad.adapter.GetInfo()
	return driver.AdapterInfo{
		Name:    info.Name,
		Vendor:  info.VendorName,
		Backend: info.BackendType.String(),
		Type:    info.AdapterType.String(),
		Driver:  info.DriverDescription,
	}
}

func (ad *Adapter) RequestDevice(ctx context.Context, desc *driver.DeviceDescriptor) (driver.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dd := &wgpu.DeviceDescriptor{}
	if desc != nil {
		dd.Label = desc.Label
	}
	dev, err := ad.adapter.RequestDevice(dd)
	if err != nil {
		return nil, fmt.Errorf("wgpudrv RequestDevice: %w", err)
	}
	return &Device{adapter: ad.adapter, device: dev, queue: &Queue{queue: dev.GetQueue()}}, nil
}

func (ad *Adapter) Release() {
	ad.adapter.Release()
}

// Device is a WebGPU device.
type Device struct {
	adapter *wgpu.Adapter
	device  *wgpu.Device
	queue   *Queue
}

// WGPU returns the underlying WebGPU device.
func (dv *Device) WGPU() *wgpu.Device { return dv.device }

func (dv *Device) Queue() driver.Queue { return dv.queue }

func (dv *Device) CreateBuffer(desc *driver.BufferDescriptor) (driver.Buffer, error) {
	usage := wgpu.BufferUsage(desc.Usage)
	if desc.Contents != nil {
		buf, err := dv.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    desc.Label,
			Contents: desc.Contents,
			Usage:    usage,
		})
		if err != nil {
			return nil, err
		}
		return &Buffer{buffer: buf, size: uint64(len(desc.Contents)), usage: desc.Usage}, nil
	}
	buf, err := dv.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	return &Buffer{buffer: buf, size: desc.Size, usage: desc.Usage}, nil
}

func (dv *Device) CreateTexture(desc *driver.TextureDescriptor) (driver.Texture, error) {
	tex, err := dv.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: max(desc.Depth, 1),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        textureFormat(desc.Format),
		Usage:         wgpu.TextureUsage(desc.Usage),
	})
	if err != nil {
		return nil, err
	}
	return &Texture{texture: tex}, nil
}

func (dv *Device) CreateSampler(desc *driver.SamplerDescriptor) (driver.Sampler, error) {
	am := addressMode(desc.AddressMode)
	sm, err := dv.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  am,
		AddressModeV:  am,
		AddressModeW:  am,
		MagFilter:     filterMode(desc.MagFilter),
		MinFilter:     filterMode(desc.MinFilter),
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: max(desc.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, err
	}
	return &Sampler{sampler: sm}, nil
}

func (dv *Device) CreateShaderModule(desc *driver.ShaderModuleDescriptor) (driver.ShaderModule, error) {
	sm, err := dv.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Code},
	})
	if err != nil {
		return nil, err
	}
	return &ShaderModule{module: sm}, nil
}

func (dv *Device) CreateBindGroupLayout(desc *driver.BindGroupLayoutDescriptor) (driver.BindGroupLayout, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		le := wgpu.BindGroupLayoutEntry{
			Binding:    e.Binding,
			Visibility: wgpu.ShaderStage(e.Visibility),
		}
		switch e.Type {
		case driver.BindingUniformBuffer:
			le.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
		case driver.BindingStorageBuffer:
			le.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}
		case driver.BindingReadOnlyStorageBuffer:
			le.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}
		case driver.BindingTexture:
			le.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			}
		case driver.BindingSampler:
			le.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
		default:
			return nil, fmt.Errorf("wgpudrv: bind group layout %q: binding %d has no type", desc.Label, e.Binding)
		}
		entries[i] = le
	}
	bgl, err := dv.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &BindGroupLayout{layout: bgl}, nil
}

func (dv *Device) CreateBindGroup(desc *driver.BindGroupDescriptor) (driver.BindGroup, error) {
	lay, ok := desc.Layout.(*BindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("wgpudrv: bind group %q: invalid layout", desc.Label)
	}
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		ge := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			buf, ok := e.Buffer.(*Buffer)
			if !ok {
				return nil, fmt.Errorf("wgpudrv: bind group %q: binding %d: invalid buffer", desc.Label, e.Binding)
			}
			ge.Buffer = buf.buffer
			ge.Offset = e.Offset
			ge.Size = e.Size
			if ge.Size == 0 {
				ge.Size = wgpu.WholeSize
			}
		case e.TextureView != nil:
			tv, ok := e.TextureView.(*TextureView)
			if !ok {
				return nil, fmt.Errorf("wgpudrv: bind group %q: binding %d: invalid texture view", desc.Label, e.Binding)
			}
			ge.TextureView = tv.view
		case e.Sampler != nil:
			sm, ok := e.Sampler.(*Sampler)
			if !ok {
				return nil, fmt.Errorf("wgpudrv: bind group %q: binding %d: invalid sampler", desc.Label, e.Binding)
			}
			ge.Sampler = sm.sampler
		}
		entries[i] = ge
	}
	bg, err := dv.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  lay.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &BindGroup{group: bg}, nil
}

func (dv *Device) CreatePipelineLayout(desc *driver.PipelineLayoutDescriptor) (driver.PipelineLayout, error) {
	lays := make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		bgl, ok := l.(*BindGroupLayout)
		if !ok {
			return nil, fmt.Errorf("wgpudrv: pipeline layout %q: invalid bind group layout %d", desc.Label, i)
		}
		lays[i] = bgl.layout
	}
	pl, err := dv.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: lays,
	})
	if err != nil {
		return nil, err
	}
	return &PipelineLayout{layout: pl}, nil
}

func (dv *Device) CreateComputePipeline(desc *driver.ComputePipelineDescriptor) (driver.ComputePipeline, error) {
	pl, sm, err := pipelineParts(desc.Label, desc.Layout, desc.Module)
	if err != nil {
		return nil, err
	}
	cp, err := dv.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: pl,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     sm,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return nil, err
	}
	return &ComputePipeline{pipeline: cp}, nil
}

func (dv *Device) CreateRenderPipeline(desc *driver.RenderPipelineDescriptor) (driver.RenderPipeline, error) {
	pl, sm, err := pipelineParts(desc.Label, desc.Layout, desc.Module)
	if err != nil {
		return nil, err
	}
	rp, err := dv.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pl,
		Vertex: wgpu.VertexState{
			Module:     sm,
			EntryPoint: desc.VertexEntry,
		},
		Fragment: &wgpu.FragmentState{
			Module:     sm,
			EntryPoint: desc.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    textureFormat(desc.TargetFormat),
				Blend:     &wgpu.BlendStateReplace,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  primitiveTopology(desc.Topology),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}
	return &RenderPipeline{pipeline: rp}, nil
}

func pipelineParts(label string, layout driver.PipelineLayout, module driver.ShaderModule) (*wgpu.PipelineLayout, *wgpu.ShaderModule, error) {
	pl, ok := layout.(*PipelineLayout)
	if !ok {
		return nil, nil, fmt.Errorf("wgpudrv: pipeline %q: invalid pipeline layout", label)
	}
	sm, ok := module.(*ShaderModule)
	if !ok {
		return nil, nil, fmt.Errorf("wgpudrv: pipeline %q: invalid shader module", label)
	}
	return pl.layout, sm.module, nil
}

func (dv *Device) CreateCommandEncoder(label string) (driver.CommandEncoder, error) {
	enc, err := dv.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &CommandEncoder{encoder: enc}, nil
}

// Poll processes device callbacks, including buffer map callbacks.
// If wait is true it blocks until submitted work is done.
func (dv *Device) Poll(wait bool) {
	dv.device.Poll(wait, nil)
}

func (dv *Device) Release() {
	dv.queue.queue.Release()
	dv.device.Release()
}

// Queue is a WebGPU queue.
type Queue struct {
	queue *wgpu.Queue
}

func (q *Queue) WriteBuffer(buf driver.Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*Buffer)
	if !ok {
		return errors.New("wgpudrv WriteBuffer: invalid buffer")
	}
	return q.queue.WriteBuffer(b.buffer, offset, data)
}

func (q *Queue) Submit(cmds ...driver.CommandBuffer) {
	wc := make([]*wgpu.CommandBuffer, 0, len(cmds))
	for _, c := range cmds {
		if cb, ok := c.(*CommandBuffer); ok {
			wc = append(wc, cb.buffer)
		}
	}
	q.queue.Submit(wc...)
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package softdrv

import (
	"context"
	"image/color"
	"testing"

	"github.com/moderngpu/mgpu/gpu/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T, cfg *Config) (*Driver, *Device) {
	drv := New(cfg)
	ad, err := drv.RequestAdapter(context.Background(), &driver.AdapterOptions{PowerPreference: driver.PowerPreferenceHighPerformance})
	require.NoError(t, err)
	dev, err := ad.RequestDevice(context.Background(), &driver.DeviceDescriptor{Label: t.Name()})
	require.NoError(t, err)
	t.Cleanup(dev.Release)
	return drv, dev.(*Device)
}

func readBack(t *testing.T, dev *Device, bf driver.Buffer) []byte {
	var status driver.MapStatus = -1
	require.NoError(t, bf.MapAsync(driver.MapModeRead, 0, bf.Size(), func(s driver.MapStatus) { status = s }))
	dev.Poll(true)
	require.Equal(t, driver.MapStatusSuccess, status)
	b := append([]byte(nil), bf.MappedRange(0, bf.Size())...)
	bf.Unmap()
	return b
}

func TestAdapterErrors(t *testing.T) {
	_, err := New(&Config{NoAdapter: true}).RequestAdapter(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoAdapter)

	ad, err := New(&Config{RefuseDevice: true}).RequestAdapter(context.Background(), nil)
	require.NoError(t, err)
	_, err = ad.RequestDevice(context.Background(), nil)
	assert.ErrorIs(t, err, ErrDeviceRefused)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(nil).RequestAdapter(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)

	ad, err = New(nil).RequestAdapter(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "softdrv", ad.Info().Name)
}

func TestWriteCopyOrder(t *testing.T) {
	_, dev := newTestDevice(t, nil)
	src, err := dev.CreateBuffer(&driver.BufferDescriptor{Label: "src", Contents: []byte{1, 2, 3, 4, 5, 6, 7, 8}, Usage: driver.BufferUsageCopySrc | driver.BufferUsageCopyDst})
	require.NoError(t, err)
	dst, err := dev.CreateBuffer(&driver.BufferDescriptor{Label: "dst", Size: 8, Usage: driver.BufferUsageMapRead | driver.BufferUsageCopyDst})
	require.NoError(t, err)

	require.NoError(t, dev.Queue().WriteBuffer(src, 0, []byte{9, 8, 7, 6}))
	enc, err := dev.CreateCommandEncoder("copy")
	require.NoError(t, err)
	require.NoError(t, enc.CopyBufferToBuffer(src, 0, dst, 0, 8))
	cmd, err := enc.Finish()
	require.NoError(t, err)
	dev.Queue().Submit(cmd)

	assert.Equal(t, []byte{9, 8, 7, 6, 5, 6, 7, 8}, readBack(t, dev, dst))
	assert.NoError(t, dev.Err())
}

func TestMapRules(t *testing.T) {
	_, dev := newTestDevice(t, nil)
	st, err := dev.CreateBuffer(&driver.BufferDescriptor{Label: "staging", Size: 8, Usage: driver.BufferUsageMapRead | driver.BufferUsageCopyDst})
	require.NoError(t, err)
	sb, err := dev.CreateBuffer(&driver.BufferDescriptor{Label: "storage", Size: 8, Usage: driver.BufferUsageStorage | driver.BufferUsageCopySrc})
	require.NoError(t, err)

	assert.Error(t, sb.MapAsync(driver.MapModeRead, 0, 8, nil))
	assert.Error(t, st.MapAsync(driver.MapModeRead, 0, 16, nil))

	require.NoError(t, st.MapAsync(driver.MapModeRead, 0, 8, nil))
	assert.Error(t, st.MapAsync(driver.MapModeRead, 0, 8, nil))
	assert.Equal(t, 1, st.(*Buffer).MapCount())

	enc, _ := dev.CreateCommandEncoder("copy")
	require.NoError(t, enc.CopyBufferToBuffer(sb, 0, st, 0, 8))
	cmd, _ := enc.Finish()
	n := len(dev.ValidationErrors())
	dev.Queue().Submit(cmd)
	assert.Len(t, dev.ValidationErrors(), n+1)

	var status driver.MapStatus = -1
	st.Unmap()
	require.NoError(t, st.MapAsync(driver.MapModeRead, 0, 8, func(s driver.MapStatus) { status = s }))
	st.Unmap()
	dev.Poll(true)
	assert.Equal(t, driver.MapStatusUnmappedBeforeCallback, status)

	assert.Error(t, st.MapAsync(driver.MapModeRead, 0, 6, nil), "size not a multiple of 4")
	assert.Error(t, st.MapAsync(driver.MapModeRead, 4, 4, nil), "offset not a multiple of 8")
	assert.Error(t, dev.Queue().WriteBuffer(st, 0, []byte{1, 2}), "write not a multiple of 4")
	enc, _ = dev.CreateCommandEncoder("unaligned")
	assert.Error(t, enc.CopyBufferToBuffer(sb, 0, st, 0, 6))
	assert.Error(t, enc.CopyBufferToBuffer(sb, 2, st, 0, 4))

	_, err = dev.CreateBuffer(&driver.BufferDescriptor{Label: "bad", Size: 4, Usage: driver.BufferUsageMapRead | driver.BufferUsageStorage})
	assert.Error(t, err)
	_, err = dev.CreateBuffer(&driver.BufferDescriptor{Label: "empty", Usage: driver.BufferUsageStorage})
	assert.Error(t, err)
}

func TestDispatch(t *testing.T) {
	drv, dev := newTestDevice(t, nil)
	var got [3]uint32
	drv.RegisterCompute("main", func(inv *Invocation) {
		got = inv.Workgroups
		buf := inv.Bindings[0]
		for i := range buf {
			buf[i] *= 2
		}
	})
	bf, err := dev.CreateBuffer(&driver.BufferDescriptor{Label: "data", Contents: []byte{1, 2, 3, 4}, Usage: driver.BufferUsageStorage | driver.BufferUsageCopySrc})
	require.NoError(t, err)
	st, err := dev.CreateBuffer(&driver.BufferDescriptor{Label: "staging", Size: 4, Usage: driver.BufferUsageMapRead | driver.BufferUsageCopyDst})
	require.NoError(t, err)

	bgl, err := dev.CreateBindGroupLayout(&driver.BindGroupLayoutDescriptor{Entries: []driver.BindGroupLayoutEntry{{Binding: 0, Visibility: driver.ShaderStageCompute, Type: driver.BindingStorageBuffer}}})
	require.NoError(t, err)
	_, err = dev.CreateBindGroup(&driver.BindGroupDescriptor{Layout: bgl, Entries: []driver.BindGroupEntry{{Binding: 0, Buffer: st, Size: driver.WholeSize}}})
	assert.Error(t, err, "staging buffer lacks storage usage")
	nerr := len(dev.ValidationErrors())
	bg, err := dev.CreateBindGroup(&driver.BindGroupDescriptor{Layout: bgl, Entries: []driver.BindGroupEntry{{Binding: 0, Buffer: bf, Size: driver.WholeSize}}})
	require.NoError(t, err)
	pll, err := dev.CreatePipelineLayout(&driver.PipelineLayoutDescriptor{BindGroupLayouts: []driver.BindGroupLayout{bgl}})
	require.NoError(t, err)
	sm, err := dev.CreateShaderModule(&driver.ShaderModuleDescriptor{Label: "double", Code: "// double"})
	require.NoError(t, err)
	_, err = dev.CreateComputePipeline(&driver.ComputePipelineDescriptor{Layout: pll, Module: sm, EntryPoint: "other"})
	assert.Error(t, err)
	pl, err := dev.CreateComputePipeline(&driver.ComputePipelineDescriptor{Layout: pll, Module: sm, EntryPoint: "main"})
	require.NoError(t, err)

	enc, _ := dev.CreateCommandEncoder("dispatch")
	cp := enc.BeginComputePass("")
	cp.SetPipeline(pl)
	cp.SetBindGroup(0, bg)
	cp.DispatchWorkgroups(2, 1, 1)
	require.NoError(t, cp.End())
	require.NoError(t, enc.CopyBufferToBuffer(bf, 0, st, 0, 4))
	cmd, err := enc.Finish()
	require.NoError(t, err)
	dev.Queue().Submit(cmd)

	assert.Equal(t, []byte{2, 4, 6, 8}, readBack(t, dev, st))
	assert.Equal(t, [3]uint32{2, 1, 1}, got)
	assert.Len(t, dev.ValidationErrors(), nerr)
}

func TestShaderValidation(t *testing.T) {
	drv, dev := newTestDevice(t, &Config{ValidateWGSL: true})
	drv.RegisterCompute("main", func(inv *Invocation) {})

	_, err := dev.CreateShaderModule(&driver.ShaderModuleDescriptor{Label: "bad", Code: "this is not wgsl {"})
	assert.Error(t, err)
	_, err = dev.CreateShaderModule(&driver.ShaderModuleDescriptor{Label: "blank", Code: "  "})
	assert.Error(t, err)

	src := `
@group(0) @binding(0) var<storage, read_write> data: array<f32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * 2.0;
}
`
	sm, err := dev.CreateShaderModule(&driver.ShaderModuleDescriptor{Label: "double", Code: src})
	require.NoError(t, err)
	assert.Contains(t, sm.(*ShaderModule).EntryPoints(), "main")

	pll, err := dev.CreatePipelineLayout(&driver.PipelineLayoutDescriptor{})
	require.NoError(t, err)
	drv.RegisterCompute("missing", func(inv *Invocation) {})
	_, err = dev.CreateComputePipeline(&driver.ComputePipelineDescriptor{Layout: pll, Module: sm, EntryPoint: "missing"})
	assert.ErrorContains(t, err, "not found in shader")
}

func TestCanvas(t *testing.T) {
	drv, dev := newTestDevice(t, nil)
	var verts uint32
	drv.RegisterDraw("vs_main", "fs_main", func(d *Draw) {
		verts = d.VertexCount
		d.Target.Set(0, 0, color.RGBA{255, 0, 0, 255})
	})
	cv := NewCanvas(4, 2)
	_, err := cv.CurrentView()
	assert.Error(t, err)
	format, err := cv.Configure(dev, nil)
	require.NoError(t, err)
	assert.Equal(t, driver.TextureFormatRGBA8Unorm, format)

	sm, _ := dev.CreateShaderModule(&driver.ShaderModuleDescriptor{Code: "// draw"})
	pll, _ := dev.CreatePipelineLayout(&driver.PipelineLayoutDescriptor{})
	pl, err := dev.CreateRenderPipeline(&driver.RenderPipelineDescriptor{Layout: pll, Module: sm, VertexEntry: "vs_main", FragmentEntry: "fs_main", TargetFormat: format})
	require.NoError(t, err)

	view, err := cv.CurrentView()
	require.NoError(t, err)
	enc, _ := dev.CreateCommandEncoder("draw")
	rp := enc.BeginRenderPass(&driver.RenderPassDescriptor{ColorAttachments: []driver.RenderPassColorAttachment{{View: view, LoadOp: driver.LoadOpClear, ClearValue: driver.Color{A: 1}}}})
	rp.SetPipeline(pl)
	rp.Draw(3, 1, 0, 0)
	require.NoError(t, rp.End())
	cmd, _ := enc.Finish()
	dev.Queue().Submit(cmd)
	cv.Present()

	frames := cv.Presented()
	require.Len(t, frames, 1)
	assert.Equal(t, uint32(3), verts)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, frames[0].RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, frames[0].RGBAAt(3, 1))
}

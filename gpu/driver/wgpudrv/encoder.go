// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wgpudrv

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// CommandEncoder records commands into a command buffer.
type CommandEncoder struct {
	encoder *wgpu.CommandEncoder
}

func (ce *CommandEncoder) BeginComputePass(label string) driver.ComputePass {
	return &ComputePass{pass: ce.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})}
}

func (ce *CommandEncoder) BeginRenderPass(desc *driver.RenderPassDescriptor) driver.RenderPass {
	rpd := &wgpu.RenderPassDescriptor{Label: desc.Label}
	for _, ca := range desc.ColorAttachments {
		at := wgpu.RenderPassColorAttachment{
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
		if tv, ok := ca.View.(*TextureView); ok {
			at.View = tv.view
		}
		if ca.LoadOp == driver.LoadOpClear {
			at.LoadOp = wgpu.LoadOpClear
			at.ClearValue = wgpu.Color{R: ca.ClearValue.R, G: ca.ClearValue.G, B: ca.ClearValue.B, A: ca.ClearValue.A}
		}
		rpd.ColorAttachments = append(rpd.ColorAttachments, at)
	}
	return &RenderPass{pass: ce.encoder.BeginRenderPass(rpd)}
}

func (ce *CommandEncoder) CopyBufferToBuffer(src driver.Buffer, srcOffset uint64, dst driver.Buffer, dstOffset, size uint64) error {
	sb, ok := src.(*Buffer)
	db, ok2 := dst.(*Buffer)
	if !ok || !ok2 {
		return fmt.Errorf("wgpudrv CopyBufferToBuffer: invalid buffer")
	}
	ce.encoder.CopyBufferToBuffer(sb.buffer, srcOffset, db.buffer, dstOffset, size)
	return nil
}

func (ce *CommandEncoder) Finish() (driver.CommandBuffer, error) {
	cb, err := ce.encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	return &CommandBuffer{buffer: cb}, nil
}

func (ce *CommandEncoder) Release() { ce.encoder.Release() }

// ComputePass records compute commands.
type ComputePass struct {
	pass *wgpu.ComputePassEncoder
}

func (cp *ComputePass) SetPipeline(pl driver.ComputePipeline) {
	if p, ok := pl.(*ComputePipeline); ok {
		cp.pass.SetPipeline(p.pipeline)
	}
}

func (cp *ComputePass) SetBindGroup(index uint32, bg driver.BindGroup) {
	if g, ok := bg.(*BindGroup); ok {
		cp.pass.SetBindGroup(index, g.group, nil)
	}
}

func (cp *ComputePass) DispatchWorkgroups(x, y, z uint32) {
	cp.pass.DispatchWorkgroups(x, y, z)
}

func (cp *ComputePass) End() error {
	cp.pass.End()
	return nil
}

func (cp *ComputePass) Release() { cp.pass.Release() }

// RenderPass records draw commands.
type RenderPass struct {
	pass *wgpu.RenderPassEncoder
}

func (rp *RenderPass) SetPipeline(pl driver.RenderPipeline) {
	if p, ok := pl.(*RenderPipeline); ok {
		rp.pass.SetPipeline(p.pipeline)
	}
}

func (rp *RenderPass) SetBindGroup(index uint32, bg driver.BindGroup) {
	if g, ok := bg.(*BindGroup); ok {
		rp.pass.SetBindGroup(index, g.group, nil)
	}
}

func (rp *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	rp.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (rp *RenderPass) End() error {
	rp.pass.End()
	return nil
}

func (rp *RenderPass) Release() { rp.pass.Release() }

// CommandBuffer is a finished command buffer.
type CommandBuffer struct {
	buffer *wgpu.CommandBuffer
}

func (cb *CommandBuffer) Release() { cb.buffer.Release() }

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package softdrv

import (
	"fmt"
	"image/color"
	"maps"
	"slices"

	"github.com/moderngpu/mgpu/gpu/driver"
)

type commandKind int32

const (
	cmdDispatch commandKind = iota
	cmdCopy
	cmdClear
	cmdDraw
)

// command is one recorded GPU command.
type command struct {
	kind commandKind

	compute *ComputePipeline
	render  *RenderPipeline
	groups  map[uint32]*BindGroup
	wg      [3]uint32

	src, dst       *Buffer
	srcOff, dstOff uint64
	size           uint64

	view          *TextureView
	clear         driver.Color
	vertexCount   uint32
	instanceCount uint32
	firstVertex   uint32
}

// buffers returns all buffers used by the command.
func (c *command) buffers() []*Buffer {
	var bfs []*Buffer
	if c.src != nil {
		bfs = append(bfs, c.src, c.dst)
	}
	for _, bg := range c.groups {
		bfs = append(bfs, bg.buffers()...)
	}
	return bfs
}

// CommandEncoder records commands.
type CommandEncoder struct {
	dev      *Device
	label    string
	cmds     []command
	finished bool
}

func (ce *CommandEncoder) BeginComputePass(label string) driver.ComputePass {
	return &ComputePass{enc: ce, groups: map[uint32]*BindGroup{}}
}

func (ce *CommandEncoder) BeginRenderPass(desc *driver.RenderPassDescriptor) driver.RenderPass {
	rp := &RenderPass{enc: ce, groups: map[uint32]*BindGroup{}}
	if len(desc.ColorAttachments) > 0 {
		ca := desc.ColorAttachments[0]
		rp.view, _ = ca.View.(*TextureView)
		if rp.view != nil && ca.LoadOp == driver.LoadOpClear {
			ce.cmds = append(ce.cmds, command{kind: cmdClear, view: rp.view, clear: ca.ClearValue})
		}
	}
	return rp
}

func (ce *CommandEncoder) CopyBufferToBuffer(src driver.Buffer, srcOffset uint64, dst driver.Buffer, dstOffset, size uint64) error {
	sb, ok1 := src.(*Buffer)
	db, ok2 := dst.(*Buffer)
	if !ok1 || !ok2 {
		return ce.dev.validationError("CopyBufferToBuffer: not softdrv buffers")
	}
	switch {
	case sb == db:
		return ce.dev.validationError("CopyBufferToBuffer: source and destination are the same buffer %q", sb.label)
	case !aligned(driver.CopyBufferAlignment, srcOffset, dstOffset, size):
		return ce.dev.validationError("CopyBufferToBuffer: size %d and offsets %d, %d must be multiples of %d", size, srcOffset, dstOffset, driver.CopyBufferAlignment)
	case !sb.usage.Has(driver.BufferUsageCopySrc):
		return ce.dev.validationError("CopyBufferToBuffer: source %q lacks CopySrc usage", sb.label)
	case !db.usage.Has(driver.BufferUsageCopyDst):
		return ce.dev.validationError("CopyBufferToBuffer: destination %q lacks CopyDst usage", db.label)
	case srcOffset+size > sb.Size():
		return ce.dev.validationError("CopyBufferToBuffer: %d bytes at %d exceeds source %q size %d", size, srcOffset, sb.label, sb.Size())
	case dstOffset+size > db.Size():
		return ce.dev.validationError("CopyBufferToBuffer: %d bytes at %d exceeds destination %q size %d", size, dstOffset, db.label, db.Size())
	}
	ce.cmds = append(ce.cmds, command{kind: cmdCopy, src: sb, dst: db, srcOff: srcOffset, dstOff: dstOffset, size: size})
	return nil
}

func (ce *CommandEncoder) Finish() (driver.CommandBuffer, error) {
	if ce.finished {
		return nil, fmt.Errorf("softdrv: command encoder %q already finished", ce.label)
	}
	ce.finished = true
	return &CommandBuffer{dev: ce.dev, label: ce.label, cmds: ce.cmds}, nil
}

func (ce *CommandEncoder) Release() {}

// ComputePass records dispatches.
type ComputePass struct {
	enc      *CommandEncoder
	pipeline *ComputePipeline
	groups   map[uint32]*BindGroup
}

func (cp *ComputePass) SetPipeline(pl driver.ComputePipeline) {
	cp.pipeline, _ = pl.(*ComputePipeline)
}

func (cp *ComputePass) SetBindGroup(index uint32, bg driver.BindGroup) {
	if g, ok := bg.(*BindGroup); ok {
		cp.groups[index] = g
	}
}

func (cp *ComputePass) DispatchWorkgroups(x, y, z uint32) {
	if cp.pipeline == nil {
		cp.enc.dev.validationError("DispatchWorkgroups without a pipeline")
		return
	}
	cp.enc.cmds = append(cp.enc.cmds, command{kind: cmdDispatch, compute: cp.pipeline, groups: maps.Clone(cp.groups), wg: [3]uint32{x, y, z}})
}

func (cp *ComputePass) End() error { return nil }
func (cp *ComputePass) Release()   {}

// RenderPass records draws into one color attachment.
type RenderPass struct {
	enc      *CommandEncoder
	view     *TextureView
	pipeline *RenderPipeline
	groups   map[uint32]*BindGroup
}

func (rp *RenderPass) SetPipeline(pl driver.RenderPipeline) {
	rp.pipeline, _ = pl.(*RenderPipeline)
}

func (rp *RenderPass) SetBindGroup(index uint32, bg driver.BindGroup) {
	if g, ok := bg.(*BindGroup); ok {
		rp.groups[index] = g
	}
}

func (rp *RenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if rp.pipeline == nil || rp.view == nil {
		rp.enc.dev.validationError("Draw without a pipeline or color attachment")
		return
	}
	rp.enc.cmds = append(rp.enc.cmds, command{kind: cmdDraw, render: rp.pipeline, view: rp.view, groups: maps.Clone(rp.groups), vertexCount: vertexCount, instanceCount: instanceCount, firstVertex: firstVertex})
}

func (rp *RenderPass) End() error { return nil }
func (rp *RenderPass) Release()   {}

// CommandBuffer is a finished list of commands.
type CommandBuffer struct {
	dev   *Device
	label string
	cmds  []command
}

func (cb *CommandBuffer) Release() {}

// validateSubmit checks that no buffer used by the commands is mapped.
func (cb *CommandBuffer) validateSubmit() error {
	for i := range cb.cmds {
		for _, bf := range cb.cmds[i].buffers() {
			if bf.busy() {
				return cb.dev.validationError("Submit: command buffer %q uses buffer %q while it is mapped", cb.label, bf.label)
			}
		}
	}
	return nil
}

// execute runs the commands, on the queue worker.
func (cb *CommandBuffer) execute() {
	for i := range cb.cmds {
		c := &cb.cmds[i]
		switch c.kind {
		case cmdDispatch:
			inv := &Invocation{Workgroups: c.wg}
			inv.Groups, inv.Bindings = bindingMemory(c.groups)
			c.compute.kernel(inv)
		case cmdCopy:
			copy(c.dst.data[c.dstOff:c.dstOff+c.size], c.src.data[c.srcOff:c.srcOff+c.size])
		case cmdClear:
			c.view.tex.fill(toRGBA(c.clear))
		case cmdDraw:
			d := &Draw{Target: c.view.tex.img, Topology: c.render.topology, VertexCount: c.vertexCount, InstanceCount: c.instanceCount, FirstVertex: c.firstVertex}
			_, d.Bindings = bindingMemory(c.groups)
			c.render.draw(d)
		}
	}
}

// bindingMemory returns the buffer memory of the bind groups,
// per group and merged in increasing group order.
func bindingMemory(groups map[uint32]*BindGroup) (map[uint32]map[uint32][]byte, map[uint32][]byte) {
	per := map[uint32]map[uint32][]byte{}
	merged := map[uint32][]byte{}
	for _, gi := range slices.Sorted(maps.Keys(groups)) {
		g := map[uint32][]byte{}
		for _, e := range groups[gi].entries {
			if e.buffer == nil {
				continue
			}
			mem := e.buffer.data[e.offset : e.offset+e.size]
			g[e.binding] = mem
			merged[e.binding] = mem
		}
		per[gi] = g
	}
	return per, merged
}

func toRGBA(c driver.Color) color.RGBA {
	cv := func(f float64) uint8 {
		f = min(max(f, 0), 1)
		return uint8(f*255 + 0.5)
	}
	return color.RGBA{cv(c.R), cv(c.G), cv(c.B), cv(c.A)}
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// Pipeline is the shared base of [ComputeKernel] and [RenderKernel].
// It owns the shader module, the bind group layouts, the pipeline
// layout, and exactly one bind group made from a [BindLayout].
type Pipeline struct {

	// Name of the kernel, used as label for device objects.
	Name string

	// Layout is the bind layout of the kernel's resources.
	Layout *BindLayout

	cx         *Context
	module     driver.ShaderModule
	groupLays  []driver.BindGroupLayout
	pipeLayout driver.PipelineLayout

	// bindGroups for group indexes up to Layout.Group,
	// with empty groups below it.
	bindGroups []driver.BindGroup

	released atomic.Bool
}

// build compiles the shader and creates the layouts and bind groups.
// On error everything created so far is released.
func (pl *Pipeline) build(cx *Context, where, src string, layout *BindLayout) error {
	dev, err := cx.ready(where)
	if err != nil {
		return errors.Log(err)
	}
	pl.cx = cx
	pl.Layout = layout
	if cx.debug() {
		slog.Info(where, "kernel", pl.Name, "layout", layout.String())
	}
	pl.module, err = dev.CreateShaderModule(&driver.ShaderModuleDescriptor{Label: pl.Name, Code: src})
	if err != nil {
		return errors.Log(fmt.Errorf("%s %q: %w: %w", where, pl.Name, ErrShaderCompilation, err))
	}
	pl.groupLays, err = layout.createLayouts(dev)
	if err != nil {
		pl.releaseObjects()
		return errors.Log(fmt.Errorf("%s %q: %w: %w", where, pl.Name, ErrLayoutMismatch, err))
	}
	pl.pipeLayout, err = dev.CreatePipelineLayout(&driver.PipelineLayoutDescriptor{Label: pl.Name, BindGroupLayouts: pl.groupLays})
	if err != nil {
		pl.releaseObjects()
		return errors.Log(fmt.Errorf("%s %q: %w: %w", where, pl.Name, ErrPipelineCreation, err))
	}
	for gi, lay := range pl.groupLays {
		desc := &driver.BindGroupDescriptor{Label: fmt.Sprintf("%s group %d", pl.Name, gi), Layout: lay}
		if gi == layout.Group {
			desc.Entries = layout.GroupEntries
		}
		bg, err := dev.CreateBindGroup(desc)
		if err != nil {
			pl.releaseObjects()
			return errors.Log(fmt.Errorf("%s %q: %w: %w", where, pl.Name, ErrLayoutMismatch, err))
		}
		pl.bindGroups = append(pl.bindGroups, bg)
	}
	return nil
}

// bindGroupSetter is a compute or render pass.
type bindGroupSetter interface {
	SetBindGroup(index uint32, bg driver.BindGroup)
}

// bindAllGroups sets all bind groups on the pass.
func (pl *Pipeline) bindAllGroups(pass bindGroupSetter) {
	for gi, bg := range pl.bindGroups {
		pass.SetBindGroup(uint32(gi), bg)
	}
}

// releaseObjects releases the device objects in reverse order of creation.
func (pl *Pipeline) releaseObjects() {
	releaseAll(pl.bindGroups)
	pl.bindGroups = nil
	if pl.pipeLayout != nil {
		pl.pipeLayout.Release()
		pl.pipeLayout = nil
	}
	releaseAll(pl.groupLays)
	pl.groupLays = nil
	if pl.module != nil {
		pl.module.Release()
		pl.module = nil
	}
}

// commandEncoder returns a new encoder if the kernel is usable.
func (pl *Pipeline) commandEncoder(where string) (driver.Device, driver.CommandEncoder, error) {
	if pl.released.Load() {
		return nil, nil, fmt.Errorf("%s %q: %w", where, pl.Name, ErrReleased)
	}
	dev, err := pl.cx.ready(where)
	if err != nil {
		return nil, nil, err
	}
	enc, err := dev.CreateCommandEncoder(pl.Name)
	if err != nil {
		return nil, nil, errors.Log(fmt.Errorf("%s %q: %w", where, pl.Name, err))
	}
	return dev, enc, nil
}

// submit finishes the encoder and submits the command buffer.
func (pl *Pipeline) submit(where string, dev driver.Device, enc driver.CommandEncoder) error {
	cmd, err := enc.Finish()
	if err != nil {
		return errors.Log(fmt.Errorf("%s %q: %w", where, pl.Name, err))
	}
	dev.Queue().Submit(cmd)
	cmd.Release()
	return nil
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"

	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/base/reflectx"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// RenderConfig has the entry points and topology of a [RenderKernel].
type RenderConfig struct {

	// VertexEntry is the vertex shader entry point.
	VertexEntry string `default:"vs_main"`

	// FragmentEntry is the fragment shader entry point.
	FragmentEntry string `default:"fs_main"`

	// Topology is how vertices are assembled into primitives.
	Topology Topologies `default:"triangle-list"`
}

// NewRenderConfig returns a RenderConfig with default values.
func NewRenderConfig() *RenderConfig {
	rc := &RenderConfig{}
	errors.Log(reflectx.SetFromDefaultTags(rc))
	return rc
}

// ClearColor is the color each render dispatch clears the frame to.
var ClearColor = driver.Color{R: 0, G: 0, B: 0, A: 1}

// RenderKernel is a compiled vertex and fragment shader pair drawing
// into a surface, together with the bind group of its resources.
type RenderKernel struct {
	Pipeline

	// Config has the entry points and topology.
	Config RenderConfig

	// Format is the surface texture format.
	Format driver.TextureFormat

	surface        driver.Surface
	renderPipeline driver.RenderPipeline
}

// NewRenderKernel configures the surface for the context device and
// creates a render pipeline for the given shader source, with a bind
// layout built from the resources in order. If cfg is nil, the
// defaults of [RenderConfig] are used. Empty entry names in cfg take
// the default names, and a zero Topology is TriangleList.
func NewRenderKernel(cx *Context, surface driver.Surface, src string, resources []Resource, cfg *RenderConfig) (*RenderKernel, error) {
	where := "gpu.NewRenderKernel"
	dev, err := cx.ready(where)
	if err != nil {
		return nil, errors.Log(err)
	}
	rk := &RenderKernel{surface: surface, Config: *NewRenderConfig()}
	if cfg != nil {
		rk.Config.Topology = cfg.Topology
		if cfg.VertexEntry != "" {
			rk.Config.VertexEntry = cfg.VertexEntry
		}
		if cfg.FragmentEntry != "" {
			rk.Config.FragmentEntry = cfg.FragmentEntry
		}
	}
	rk.Name = rk.Config.VertexEntry + ":" + rk.Config.FragmentEntry
	if surface == nil {
		return nil, errors.Log(fmt.Errorf("%s %q: %w: nil surface", where, rk.Name, ErrPipelineCreation))
	}
	layout, err := BuildLayout(rk.Name, resources...)
	if err != nil {
		return nil, errors.Log(err)
	}
	rk.Format, err = surface.Configure(dev, &driver.SurfaceConfiguration{})
	if err != nil {
		return nil, errors.Log(fmt.Errorf("%s %q: %w: surface: %w", where, rk.Name, ErrPipelineCreation, err))
	}
	if err := rk.build(cx, where, src, layout); err != nil {
		return nil, err
	}
	rk.renderPipeline, err = dev.CreateRenderPipeline(&driver.RenderPipelineDescriptor{
		Label:         rk.Name,
		Layout:        rk.pipeLayout,
		Module:        rk.module,
		VertexEntry:   rk.Config.VertexEntry,
		FragmentEntry: rk.Config.FragmentEntry,
		Topology:      rk.Config.Topology.Primitive(),
		TargetFormat:  rk.Format,
	})
	if err != nil {
		rk.releaseObjects()
		return nil, errors.Log(fmt.Errorf("%s %q: %w: %w", where, rk.Name, ErrPipelineCreation, err))
	}
	cx.track(rk)
	return rk, nil
}

// Dispatch renders one frame: it clears the current surface texture
// to [ClearColor], draws vertexCount vertices, submits and presents.
func (rk *RenderKernel) Dispatch(vertexCount uint32) error {
	where := "gpu.RenderKernel Dispatch"
	dev, enc, err := rk.commandEncoder(where)
	if err != nil {
		return err
	}
	defer enc.Release()
	view, err := rk.surface.CurrentView()
	if err != nil {
		return errors.Log(fmt.Errorf("%s %q: %w", where, rk.Name, err))
	}
	defer view.Release()
	rp := enc.BeginRenderPass(&driver.RenderPassDescriptor{
		Label: rk.Name,
		ColorAttachments: []driver.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     driver.LoadOpClear,
			ClearValue: ClearColor,
		}},
	})
	rp.SetPipeline(rk.renderPipeline)
	rk.bindAllGroups(rp)
	rp.Draw(vertexCount, 1, 0, 0)
	err = rp.End()
	rp.Release()
	if err != nil {
		return errors.Log(fmt.Errorf("%s %q: %w", where, rk.Name, err))
	}
	if err := rk.submit(where, dev, enc); err != nil {
		return err
	}
	rk.surface.Present()
	return nil
}

// Release releases the pipeline and its device objects.
// The surface is owned by the caller.
func (rk *RenderKernel) Release() {
	if rk.released.Swap(true) {
		return
	}
	if rk.renderPipeline != nil {
		rk.renderPipeline.Release()
		rk.renderPipeline = nil
	}
	rk.releaseObjects()
	rk.cx.untrack(rk)
}

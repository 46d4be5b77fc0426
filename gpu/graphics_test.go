// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"image/color"
	"sync"
	"testing"

	"github.com/moderngpu/mgpu/gpu/driver"
	"github.com/moderngpu/mgpu/gpu/driver/softdrv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drawRecorder records the draw calls of a software draw function,
// which marks the top-left pixel of the target with the first byte of
// binding 0, if bound.
type drawRecorder struct {
	mu    sync.Mutex
	draws []softdrv.Draw
}

func (dr *drawRecorder) draw(d *softdrv.Draw) {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	dr.draws = append(dr.draws, softdrv.Draw{Topology: d.Topology, VertexCount: d.VertexCount, InstanceCount: d.InstanceCount})
	red := uint8(255)
	if b := d.Bindings[0]; len(b) > 0 {
		red = b[0]
	}
	d.Target.SetRGBA(0, 0, color.RGBA{R: red, A: 255})
}

func (dr *drawRecorder) recorded() []softdrv.Draw {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return append([]softdrv.Draw(nil), dr.draws...)
}

func TestRenderKernel(t *testing.T) {
	cx, drv := newTestContext(t, nil)
	rec := &drawRecorder{}
	drv.RegisterDraw("vs_main", "fs_main", rec.draw)
	canvas := softdrv.NewCanvas(4, 3)

	rk, err := NewRenderKernel(cx, canvas, "// triangle", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, driver.TextureFormatRGBA8Unorm, rk.Format)
	assert.Equal(t, TriangleList, rk.Config.Topology)
	require.NoError(t, rk.Dispatch(3))
	require.NoError(t, rk.Dispatch(6))

	frames := canvas.Presented()
	require.Len(t, frames, 2)
	assert.Equal(t, 4, frames[0].Bounds().Dx())
	assert.Equal(t, 3, frames[0].Bounds().Dy())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, frames[1].RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{A: 255}, frames[1].RGBAAt(3, 2))
	assert.Equal(t, []softdrv.Draw{
		{Topology: driver.PrimitiveTopologyTriangleList, VertexCount: 3, InstanceCount: 1},
		{Topology: driver.PrimitiveTopologyTriangleList, VertexCount: 6, InstanceCount: 1},
	}, rec.recorded())
}

func TestRenderKernelConfig(t *testing.T) {
	cx, drv := newTestContext(t, nil)
	rec := &drawRecorder{}
	drv.RegisterDraw("vs_line", "fs_main", rec.draw)
	canvas := softdrv.NewCanvas(2, 2)
	ub, err := cx.NewUniformBuffer([]byte{9, 0, 0, 0}, 0)
	require.NoError(t, err)
	ub.SetVisibility(VertexShader | FragmentShader)

	cfg := &RenderConfig{VertexEntry: "vs_line", Topology: LineStrip}
	rk, err := NewRenderKernel(cx, canvas, "// lines", []Resource{ub}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "fs_main", rk.Config.FragmentEntry)
	require.NoError(t, rk.Dispatch(2))

	frames := canvas.Presented()
	require.Len(t, frames, 1)
	assert.Equal(t, color.RGBA{R: 9, A: 255}, frames[0].RGBAAt(0, 0))
	assert.Equal(t, []softdrv.Draw{{Topology: driver.PrimitiveTopologyLineStrip, VertexCount: 2, InstanceCount: 1}}, rec.recorded())
}

func TestRenderKernelPartialConfig(t *testing.T) {
	cx, drv := newTestContext(t, nil)
	rec := &drawRecorder{}
	drv.RegisterDraw("vs_x", "fs_main", rec.draw)
	canvas := softdrv.NewCanvas(2, 2)

	rk, err := NewRenderKernel(cx, canvas, "// partial", nil, &RenderConfig{VertexEntry: "vs_x"})
	require.NoError(t, err)
	assert.Equal(t, TriangleList, rk.Config.Topology)
	assert.Equal(t, "fs_main", rk.Config.FragmentEntry)
	require.NoError(t, rk.Dispatch(3))
	assert.Equal(t, []softdrv.Draw{{Topology: driver.PrimitiveTopologyTriangleList, VertexCount: 3, InstanceCount: 1}}, rec.recorded())
}

func TestRenderKernelErrors(t *testing.T) {
	cx, drv := newTestContext(t, nil)
	drv.RegisterDraw("vs_main", "fs_main", func(d *softdrv.Draw) {})

	_, err := NewRenderKernel(cx, nil, "// draw", nil, nil)
	assert.ErrorIs(t, err, ErrPipelineCreation)
	_, err = NewRenderKernel(cx, softdrv.NewCanvas(2, 2), "// draw", nil, &RenderConfig{VertexEntry: "vs_other"})
	assert.ErrorIs(t, err, ErrPipelineCreation)
	_, err = NewRenderKernel(cx, softdrv.NewCanvas(2, 2), "", nil, nil)
	assert.ErrorIs(t, err, ErrShaderCompilation)

	rk, err := NewRenderKernel(cx, softdrv.NewCanvas(2, 2), "// draw", nil, nil)
	require.NoError(t, err)
	rk.Release()
	assert.ErrorIs(t, rk.Dispatch(3), ErrReleased)
}

func TestRenderConfigDefaults(t *testing.T) {
	rc := NewRenderConfig()
	assert.Equal(t, "vs_main", rc.VertexEntry)
	assert.Equal(t, "fs_main", rc.FragmentEntry)
	assert.Equal(t, TriangleList, rc.Topology)

	var tp Topologies
	assert.Equal(t, TriangleList, tp)
	assert.Equal(t, "triangle-list", tp.String())
	require.NoError(t, tp.UnmarshalText([]byte("line-strip")))
	assert.Equal(t, LineStrip, tp)
	assert.Error(t, tp.UnmarshalText([]byte("quads")))
}

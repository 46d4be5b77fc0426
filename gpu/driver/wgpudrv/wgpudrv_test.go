// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wgpudrv

import (
	"context"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/moderngpu/mgpu/gpu"
	"github.com/moderngpu/mgpu/gpu/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doubleShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> output: array<f32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    if (i < arrayLength(&input)) {
        output[i] = input[i] * 2.0;
    }
}
`

func TestConversions(t *testing.T) {
	assert.Equal(t, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst, wgpu.BufferUsage(driver.BufferUsageMapRead|driver.BufferUsageCopyDst))
	assert.Equal(t, wgpu.BufferUsageStorage, wgpu.BufferUsage(driver.BufferUsageStorage))
	assert.Equal(t, wgpu.BufferUsageUniform, wgpu.BufferUsage(driver.BufferUsageUniform))
	assert.Equal(t, wgpu.ShaderStageCompute, wgpu.ShaderStage(driver.ShaderStageCompute))
	assert.Equal(t, wgpu.ShaderStageFragment, wgpu.ShaderStage(driver.ShaderStageFragment))
	assert.Equal(t, wgpu.TextureUsageRenderAttachment, wgpu.TextureUsage(driver.TextureUsageRenderAttachment))
	assert.Equal(t, wgpu.TextureUsageTextureBinding, wgpu.TextureUsage(driver.TextureUsageTextureBinding))

	for tf, wf := range textureFormats {
		if tf == driver.TextureFormatUndefined {
			continue
		}
		got, ok := driverFormat(wf)
		assert.True(t, ok)
		assert.Equal(t, tf, got)
	}
	assert.Equal(t, wgpu.PrimitiveTopologyLineStrip, primitiveTopology(driver.PrimitiveTopologyLineStrip))
	assert.Equal(t, driver.MapStatusSuccess, mapStatus(wgpu.BufferMapAsyncStatusSuccess))
}

func TestComputeDouble(t *testing.T) {
	t.Skip("Need software GPU on CI")
	drv := New()
	defer drv.Release()
	cx := gpu.NewContext(drv, nil)
	require.NoError(t, cx.Init(context.Background()))
	defer cx.Release()

	in, err := cx.NewInputBuffer(gpu.ToBytes([]float32{1, 2, 3, 4}), 0)
	require.NoError(t, err)
	out, err := cx.NewOutputBuffer(gpu.ToBytes(make([]float32, 4)), 1)
	require.NoError(t, err)
	ck, err := gpu.NewComputeKernel(cx, doubleShader, []gpu.Resource{in, out}, "main")
	require.NoError(t, err)
	require.NoError(t, ck.Dispatch(gpu.NumWorkgroups1D(4, 64)))
	got, err := gpu.ReadAs[float32](out)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 8}, got)
}

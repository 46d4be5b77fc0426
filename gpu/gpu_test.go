// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"context"
	"testing"
	"unsafe"

	"github.com/moderngpu/mgpu/gpu/driver/softdrv"
	"github.com/stretchr/testify/require"
)

// doubleShader is the WGSL source of the doubling kernel; on the
// software driver the "main" entry point runs doubleKernel.
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

// floats returns a float32 view of buffer memory.
func floats(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/4)
}

func doubleKernel(inv *softdrv.Invocation) {
	in, out := floats(inv.Bindings[0]), floats(inv.Bindings[1])
	for i := range min(len(in), len(out)) {
		out[i] = in[i] * 2
	}
}

func newTestContext(t *testing.T, cfg *softdrv.Config) (*Context, *softdrv.Driver) {
	t.Helper()
	drv := softdrv.New(cfg)
	drv.RegisterCompute("main", doubleKernel)
	drv.RegisterCompute("noop", func(inv *softdrv.Invocation) {})
	cx := NewContext(drv, nil)
	require.NoError(t, cx.Init(context.Background()))
	t.Cleanup(cx.Release)
	return cx, drv
}

// softDevice returns the software device of the context.
func softDevice(cx *Context) *softdrv.Device {
	return cx.Device().(*softdrv.Device)
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"context"
	"testing"

	"github.com/moderngpu/mgpu/gpu/driver"
	"github.com/moderngpu/mgpu/gpu/driver/softdrv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextInit(t *testing.T) {
	cx := NewContext(softdrv.New(&softdrv.Config{AdapterName: "test adapter"}), nil)
	assert.Equal(t, Uninitialized, cx.State())
	assert.Nil(t, cx.Device())
	assert.Equal(t, driver.PowerPreferenceHighPerformance, cx.Options.PowerPreference)

	require.NoError(t, cx.Init(context.Background()))
	defer cx.Release()
	assert.Equal(t, Ready, cx.State())
	dev := cx.Device()
	assert.NotNil(t, dev)
	assert.Equal(t, "test adapter", cx.AdapterInfo().Name)

	require.NoError(t, cx.Init(context.Background()))
	assert.Same(t, dev.(*softdrv.Device), cx.Device().(*softdrv.Device))
}

func TestContextInitErrors(t *testing.T) {
	cx := NewContext(softdrv.New(&softdrv.Config{NoAdapter: true}), nil)
	err := cx.Init(context.Background())
	assert.ErrorIs(t, err, ErrInitialization)
	assert.ErrorIs(t, err, softdrv.ErrNoAdapter)
	assert.Equal(t, Uninitialized, cx.State())

	drv := softdrv.New(&softdrv.Config{RefuseDevice: true})
	cx = NewContext(drv, nil)
	err = cx.Init(context.Background())
	assert.ErrorIs(t, err, ErrInitialization)
	assert.ErrorIs(t, err, softdrv.ErrDeviceRefused)

	drv.RefuseDevice = false
	require.NoError(t, cx.Init(context.Background()), "Init can be retried")
	cx.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cx = NewContext(softdrv.New(nil), nil)
	assert.ErrorIs(t, cx.Init(ctx), context.Canceled)

	assert.ErrorIs(t, NewContext(nil, nil).Init(context.Background()), ErrInitialization)
}

func TestUninitializedContext(t *testing.T) {
	cx := NewContext(softdrv.New(nil), nil)
	data := ToBytes([]float32{1, 2, 3, 4})

	_, err := cx.NewStorageBuffer(data, 0)
	assert.ErrorIs(t, err, ErrUninitializedContext)
	_, err = cx.NewInputBuffer(data, 0)
	assert.ErrorIs(t, err, ErrUninitializedContext)
	_, err = cx.NewOutputBuffer(data, 0)
	assert.ErrorIs(t, err, ErrUninitializedContext)
	_, err = cx.NewTexture(0, 4, 4, 1)
	assert.ErrorIs(t, err, ErrUninitializedContext)
	_, err = NewComputeKernel(cx, doubleShader, nil, "main")
	assert.ErrorIs(t, err, ErrUninitializedContext)

	var nilcx *Context
	_, err = nilcx.NewUniformBuffer(data, 0)
	assert.ErrorIs(t, err, ErrUninitializedContext)
}

func TestContextRelease(t *testing.T) {
	drv := softdrv.New(nil)
	drv.RegisterCompute("main", doubleKernel)
	cx := NewContext(drv, nil)
	require.NoError(t, cx.Init(context.Background()))

	in, err := cx.NewStorageBuffer(ToBytes([]float32{1, 2}), 0)
	require.NoError(t, err)
	ib, err := cx.NewInputBuffer(ToBytes([]float32{0, 0}), 1)
	require.NoError(t, err)
	out, err := cx.NewOutputBuffer(ToBytes([]float32{0, 0}), 1)
	require.NoError(t, err)
	ck, err := NewComputeKernel(cx, doubleShader, []Resource{in, out}, "main")
	require.NoError(t, err)
	ib.Release()
	assert.ErrorIs(t, ib.Write(ToBytes([]float32{1})), ErrReleased)

	cx.Release()
	assert.Equal(t, Released, cx.State())
	assert.ErrorIs(t, ck.Dispatch([3]uint32{1, 1, 1}), ErrReleased)
	_, err = out.Read()
	assert.ErrorIs(t, err, ErrReleased)
	_, err = cx.NewStorageBuffer(ToBytes([]float32{1}), 0)
	assert.ErrorIs(t, err, ErrReleased)
	assert.ErrorIs(t, cx.Init(context.Background()), ErrReleased)
	cx.Release()
}

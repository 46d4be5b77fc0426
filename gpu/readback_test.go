// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"sync"
	"testing"
	"time"

	"github.com/moderngpu/mgpu/gpu/driver/softdrv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentReadWait(t *testing.T) {
	cx, _ := newTestContext(t, &softdrv.Config{Latency: time.Millisecond})
	in, err := cx.NewInputBuffer(ToBytes([]float32{1, 2, 3, 4}), 0)
	require.NoError(t, err)
	out, err := cx.NewOutputBuffer(ToBytes(make([]float32, 4)), 1)
	require.NoError(t, err)
	ck, err := NewComputeKernel(cx, doubleShader, []Resource{in, out}, "main")
	require.NoError(t, err)
	require.NoError(t, ck.Dispatch([3]uint32{1, 1, 1}))

	const n = 8
	var wg sync.WaitGroup
	results := make([][]float32, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = ReadAs[float32](out)
		}()
	}
	wg.Wait()
	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, []float32{2, 4, 6, 8}, results[i])
	}
	assert.Equal(t, n, out.staging.(*softdrv.Buffer).MapCount())
	assert.Equal(t, Idle, out.State())
	assert.Empty(t, softDevice(cx).ValidationErrors())
}

func TestReadCached(t *testing.T) {
	cx, drv := newTestContext(t, nil)
	gate := make(chan struct{})
	var once sync.Once
	open := func() { once.Do(func() { close(gate) }) }
	t.Cleanup(open)
	drv.RegisterCompute("gated", func(inv *softdrv.Invocation) {
		<-gate
		doubleKernel(inv)
	})

	in, err := cx.NewInputBuffer(ToBytes([]float32{1, 2}), 0)
	require.NoError(t, err)
	out, err := cx.NewOutputBuffer(ToBytes([]float32{-1, -1}), 1)
	require.NoError(t, err)
	out.SetReadPolicy(ReadCached)
	assert.Equal(t, ReadCached, out.ReadPolicy())
	ck, err := NewComputeKernel(cx, "// gated", []Resource{in, out}, "gated")
	require.NoError(t, err)
	require.NoError(t, ck.Dispatch([3]uint32{1, 1, 1}))

	type result struct {
		v   []float32
		err error
	}
	first := make(chan result, 1)
	go func() {
		v, err := ReadAs[float32](out)
		first <- result{v, err}
	}()
	assert.Eventually(t, func() bool { return out.State() == Reading }, time.Second, time.Millisecond)

	cached, err := ReadAs[float32](out)
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, -1}, cached)

	open()
	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, []float32{2, 4}, r.v)
	assert.Equal(t, Idle, out.State())
	assert.Equal(t, ToBytes([]float32{2, 4}), out.LastValue())
	assert.Equal(t, 1, out.staging.(*softdrv.Buffer).MapCount())
}

func TestReadReleased(t *testing.T) {
	cx, _ := newTestContext(t, nil)
	out, err := cx.NewOutputBuffer(ToBytes([]float32{3}), 0)
	require.NoError(t, err)
	got, err := ReadAs[float32](out)
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, got)

	out.Release()
	out.Release()
	_, err = out.Read()
	assert.ErrorIs(t, err, ErrReleased)
}

func TestReadPolicyText(t *testing.T) {
	var rp ReadPolicies
	require.NoError(t, rp.UnmarshalText([]byte("cached")))
	assert.Equal(t, ReadCached, rp)
	b, err := ReadWait.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "wait", string(b))
	assert.Error(t, rp.UnmarshalText([]byte("later")))
}

// TestReadWaitingOnRelease checks that a read blocked behind Release
// fails with ErrReleased instead of mapping the freed staging buffer.
func TestReadWaitingOnRelease(t *testing.T) {
	cx, _ := newTestContext(t, nil)
	out, err := cx.NewOutputBuffer(ToBytes([]float32{1, 2}), 0)
	require.NoError(t, err)

	// hold the read lock as Release does
	out.readMu.Lock()
	done := make(chan error, 1)
	go func() {
		_, err := out.Read()
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	out.staging.Release()
	out.release(out)
	out.readMu.Unlock()

	assert.ErrorIs(t, <-done, ErrReleased)
	assert.Zero(t, out.staging.(*softdrv.Buffer).MapCount())
	assert.Empty(t, softDevice(cx).ValidationErrors())
}

func TestReadDuringRelease(t *testing.T) {
	cx, drv := newTestContext(t, nil)
	gate := make(chan struct{})
	var once sync.Once
	open := func() { once.Do(func() { close(gate) }) }
	t.Cleanup(open)
	drv.RegisterCompute("gated", func(inv *softdrv.Invocation) {
		<-gate
		doubleKernel(inv)
	})
	in, err := cx.NewInputBuffer(ToBytes([]float32{1, 2}), 0)
	require.NoError(t, err)
	out, err := cx.NewOutputBuffer(ToBytes([]float32{0, 0}), 1)
	require.NoError(t, err)
	ck, err := NewComputeKernel(cx, "// gated", []Resource{in, out}, "gated")
	require.NoError(t, err)
	require.NoError(t, ck.Dispatch([3]uint32{1, 1, 1}))

	first := make(chan error, 1)
	go func() {
		_, err := out.Read()
		first <- err
	}()
	assert.Eventually(t, func() bool { return out.State() == Reading }, time.Second, time.Millisecond)
	released := make(chan struct{})
	go func() {
		out.Release()
		close(released)
	}()
	second := make(chan error, 1)
	go func() {
		_, err := out.Read()
		second <- err
	}()

	open()
	require.NoError(t, <-first)
	<-released
	err = <-second
	if err != nil {
		assert.ErrorIs(t, err, ErrReleased)
		assert.NotErrorIs(t, err, ErrReadback)
	}
	assert.Empty(t, softDevice(cx).ValidationErrors())
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"math"

	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// ComputeKernel is a compiled compute shader entry point together with
// the bind group of its resources. It is immutable after construction
// and can be dispatched any number of times.
type ComputeKernel struct {
	Pipeline

	// Entry is the shader entry point.
	Entry string

	computePipeline driver.ComputePipeline
}

// NewComputeKernel compiles the given shader source and creates a
// compute pipeline for the entry point (default "main" if empty),
// with a bind layout built from the resources in order.
func NewComputeKernel(cx *Context, src string, resources []Resource, entry string) (*ComputeKernel, error) {
	where := "gpu.NewComputeKernel"
	if _, err := cx.ready(where); err != nil {
		return nil, errors.Log(err)
	}
	if entry == "" {
		entry = "main"
	}
	layout, err := BuildLayout(entry, resources...)
	if err != nil {
		return nil, errors.Log(err)
	}
	return newComputeKernel(cx, where, src, layout, entry)
}

// NewComputeKernelFromLayout is like [NewComputeKernel] using a prebuilt
// layout, which the resources must match.
func NewComputeKernelFromLayout(cx *Context, src string, layout *BindLayout, resources []Resource, entry string) (*ComputeKernel, error) {
	where := "gpu.NewComputeKernelFromLayout"
	if _, err := cx.ready(where); err != nil {
		return nil, errors.Log(err)
	}
	if entry == "" {
		entry = "main"
	}
	bl, err := layout.withResources(resources...)
	if err != nil {
		return nil, errors.Log(err)
	}
	return newComputeKernel(cx, where, src, bl, entry)
}

func newComputeKernel(cx *Context, where, src string, layout *BindLayout, entry string) (*ComputeKernel, error) {
	ck := &ComputeKernel{Entry: entry}
	ck.Name = entry
	if err := ck.build(cx, where, src, layout); err != nil {
		return nil, err
	}
	var err error
	ck.computePipeline, err = cx.Device().CreateComputePipeline(&driver.ComputePipelineDescriptor{
		Label:      ck.Name,
		Layout:     ck.pipeLayout,
		Module:     ck.module,
		EntryPoint: entry,
	})
	if err != nil {
		ck.releaseObjects()
		return nil, errors.Log(fmt.Errorf("%s %q: %w: %w", where, ck.Name, ErrPipelineCreation, err))
	}
	cx.track(ck)
	return ck, nil
}

// Dispatch submits, as one command submission, a dispatch of the
// given number of workgroups followed by the given buffer copies in
// order. An axis of 0 workgroups is dispatched as 1. Each copy is
// of the whole source into the start of the destination; if a
// destination is too small, an error wrapping [ErrCapacity] is
// returned before anything is submitted.
// Results are only observable by reading an [OutputBuffer].
func (ck *ComputeKernel) Dispatch(workgroups [3]uint32, copies ...CopyPair) error {
	where := "gpu.ComputeKernel Dispatch"
	for i := range copies {
		if err := copies[i].validate(); err != nil {
			return fmt.Errorf("%s %q: copy %d: %w", where, ck.Name, i, err)
		}
	}
	dev, enc, err := ck.commandEncoder(where)
	if err != nil {
		return err
	}
	defer enc.Release()
	wg := Workgroups(workgroups)
	pass := enc.BeginComputePass(ck.Name)
	pass.SetPipeline(ck.computePipeline)
	ck.bindAllGroups(pass)
	pass.DispatchWorkgroups(wg[0], wg[1], wg[2])
	err = pass.End()
	pass.Release()
	if err != nil {
		return errors.Log(fmt.Errorf("%s %q: %w", where, ck.Name, err))
	}
	for _, cp := range copies {
		err := enc.CopyBufferToBuffer(cp.Src.deviceBuffer(), 0, cp.Dst.deviceBuffer(), 0, uint64(cp.Src.Size()))
		if err != nil {
			return errors.Log(fmt.Errorf("%s %q: %w", where, ck.Name, err))
		}
	}
	return ck.submit(where, dev, enc)
}

// Release releases the pipeline and its device objects.
func (ck *ComputeKernel) Release() {
	if ck.released.Swap(true) {
		return
	}
	if ck.computePipeline != nil {
		ck.computePipeline.Release()
		ck.computePipeline = nil
	}
	ck.releaseObjects()
	ck.cx.untrack(ck)
}

// Workgroups returns the workgroup counts to dispatch:
// an axis given as 0 becomes 1, other values are unchanged.
func Workgroups(wg [3]uint32) [3]uint32 {
	for i, n := range wg {
		if n == 0 {
			wg[i] = 1
		}
	}
	return wg
}

// Warps returns the number of warps (thread groups) that is sufficient
// to compute n elements, given specified number of threads per warp.
func Warps(n, threads int) int {
	if threads <= 0 {
		return n
	}
	return int(math.Ceil(float64(n) / float64(threads)))
}

// NumWorkgroups1D returns the workgroup counts to process n elements
// along x, given threads per workgroup.
func NumWorkgroups1D(n, threads int) [3]uint32 {
	return Workgroups([3]uint32{uint32(Warps(n, threads)), 1, 1})
}

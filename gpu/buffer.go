// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/base/reflectx"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// Buffer is implemented by all buffer types. Buffers can be the
// source and destination of a [CopyPair].
type Buffer interface {
	Resource

	// Size returns the capacity in bytes, fixed at creation.
	Size() int

	deviceBuffer() driver.Buffer
	isReleased() bool
}

// buffer is the common implementation of all buffer types.
type buffer struct {
	cx       *Context
	desc     ResourceDescriptor
	buf      driver.Buffer
	size     int
	released atomic.Bool
}

func (b *buffer) Descriptor() ResourceDescriptor { return b.desc }
func (b *buffer) Size() int                      { return b.size }
func (b *buffer) deviceBuffer() driver.Buffer    { return b.buf }
func (b *buffer) isReleased() bool               { return b.released.Load() }

// Binding returns the @binding number.
func (b *buffer) Binding() int { return b.desc.Binding }

// Group returns the @group number.
func (b *buffer) Group() int { return b.desc.Group }

// SetVisibility sets the shader stages that can see the buffer.
// It must be called before the buffer is used to build a kernel.
func (b *buffer) SetVisibility(stages driver.ShaderStage) {
	b.desc.Visibility = stages
}

func (b *buffer) bindEntry() driver.BindGroupEntry {
	return driver.BindGroupEntry{Binding: uint32(b.desc.Binding), Buffer: b.buf, Size: uint64(b.size)}
}

func (b *buffer) label() string {
	return fmt.Sprintf("%s %d:%d", b.desc.Kind, b.desc.Group, b.desc.Binding)
}

// init validates the descriptor and creates the device buffer with
// the given data as initial contents.
func (b *buffer) init(cx *Context, where string, data []byte, desc ResourceDescriptor) error {
	dev, err := cx.ready(where)
	if err != nil {
		return errors.Log(err)
	}
	if len(data) == 0 {
		return errors.Log(fmt.Errorf("%s: %w: zero-length data", where, ErrInvalidDescriptor))
	}
	if len(data)%driver.CopyBufferAlignment != 0 {
		return errors.Log(fmt.Errorf("%s: %w: %d bytes is not a multiple of %d", where, ErrInvalidDescriptor, len(data), driver.CopyBufferAlignment))
	}
	if err := desc.Validate(); err != nil {
		return errors.Log(fmt.Errorf("%s: %w", where, err))
	}
	b.cx = cx
	b.desc = desc
	b.size = len(data)
	b.buf, err = dev.CreateBuffer(&driver.BufferDescriptor{Label: b.label(), Usage: desc.Usage, Contents: data})
	if err != nil {
		return errors.Log(fmt.Errorf("%s: %w: %w", where, ErrInvalidDescriptor, err))
	}
	return nil
}

// write writes data to the start of the buffer, after checking capacity.
// A failed write leaves the contents unchanged.
func (b *buffer) write(where string, data []byte) error {
	if b.released.Load() {
		return fmt.Errorf("%s: %w", where, ErrReleased)
	}
	if len(data) > b.size {
		return fmt.Errorf("%s: %w: %d bytes into buffer of %d", where, ErrCapacity, len(data), b.size)
	}
	if len(data) == 0 {
		return nil
	}
	if len(data)%driver.CopyBufferAlignment != 0 {
		return fmt.Errorf("%s: %w: %d bytes is not a multiple of %d", where, ErrInvalidDescriptor, len(data), driver.CopyBufferAlignment)
	}
	dev, err := b.cx.ready(where)
	if err != nil {
		return errors.Log(err)
	}
	return errors.Log(dev.Queue().WriteBuffer(b.buf, 0, data))
}

func (b *buffer) release(self driver.Releaser) {
	if b.released.Swap(true) {
		return
	}
	if b.buf != nil {
		b.buf.Release()
	}
	if b.cx != nil {
		b.cx.untrack(self)
	}
}

// StorageBuffer is written once at creation and read by shaders.
type StorageBuffer struct {
	buffer
}

// NewStorageBuffer returns a new [StorageBuffer] initialized with data,
// at the given binding and optional group (default 0). It is bound as
// read-only storage and can be the source of a copy.
func (cx *Context) NewStorageBuffer(data []byte, binding int, group ...int) (*StorageBuffer, error) {
	sb := &StorageBuffer{}
	err := sb.init(cx, "gpu.NewStorageBuffer", data, ResourceDescriptor{
		Binding:    binding,
		Group:      optGroup(group),
		Visibility: ComputeShader,
		Kind:       ReadOnlyStorage,
		Usage:      driver.BufferUsageStorage | driver.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, err
	}
	cx.track(sb)
	return sb, nil
}

// Release releases the device memory.
func (sb *StorageBuffer) Release() { sb.release(sb) }

// InputBuffer can be written by the host at any time, within its capacity.
type InputBuffer struct {
	buffer
}

// NewInputBuffer returns a new [InputBuffer] initialized with data,
// whose size is the capacity, at the given binding and optional group.
func (cx *Context) NewInputBuffer(data []byte, binding int, group ...int) (*InputBuffer, error) {
	ib := &InputBuffer{}
	err := ib.init(cx, "gpu.NewInputBuffer", data, ResourceDescriptor{
		Binding:    binding,
		Group:      optGroup(group),
		Visibility: ComputeShader,
		Kind:       ReadOnlyStorage,
		Usage:      driver.BufferUsageStorage | driver.BufferUsageCopySrc | driver.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	cx.track(ib)
	return ib, nil
}

// Write schedules a write of data to the start of the buffer.
// It returns an error wrapping [ErrCapacity] if data is larger than
// the buffer, in which case the contents are unchanged.
// Data smaller than the buffer overwrites only its prefix.
func (ib *InputBuffer) Write(data []byte) error {
	return ib.write("gpu.InputBuffer Write", data)
}

// Release releases the device memory.
func (ib *InputBuffer) Release() { ib.release(ib) }

// UniformBuffer is a host-writable uniform buffer.
type UniformBuffer struct {
	buffer
}

// NewUniformBuffer returns a new [UniformBuffer] initialized with data,
// at the given binding and optional group.
func (cx *Context) NewUniformBuffer(data []byte, binding int, group ...int) (*UniformBuffer, error) {
	ub := &UniformBuffer{}
	err := ub.init(cx, "gpu.NewUniformBuffer", data, ResourceDescriptor{
		Binding:    binding,
		Group:      optGroup(group),
		Visibility: ComputeShader,
		Kind:       Uniform,
		Usage:      driver.BufferUsageUniform | driver.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	cx.track(ub)
	return ub, nil
}

// Write schedules a write of data, as [InputBuffer.Write].
func (ub *UniformBuffer) Write(data []byte) error {
	return ub.write("gpu.UniformBuffer Write", data)
}

// Release releases the device memory.
func (ub *UniformBuffer) Release() { ub.release(ub) }

// CustomBuffer is a buffer with a caller-supplied descriptor.
type CustomBuffer struct {
	buffer
}

// NewBuffer returns a new [CustomBuffer] initialized with data, using
// the given descriptor. A zero Visibility defaults to compute.
func (cx *Context) NewBuffer(data []byte, desc ResourceDescriptor) (*CustomBuffer, error) {
	if desc.Visibility == driver.ShaderStageNone {
		desc.Visibility = ComputeShader
	}
	if !desc.Kind.IsBuffer() {
		err := fmt.Errorf("gpu.NewBuffer: %w: %s is not a buffer kind", ErrInvalidDescriptor, desc.Kind)
		return nil, errors.Log(err)
	}
	cb := &CustomBuffer{}
	if err := cb.init(cx, "gpu.NewBuffer", data, desc); err != nil {
		return nil, err
	}
	cx.track(cb)
	return cb, nil
}

// Write schedules a write of data, as [InputBuffer.Write].
// The buffer must have CopyDst usage.
func (cb *CustomBuffer) Write(data []byte) error {
	if !cb.desc.Usage.Has(driver.BufferUsageCopyDst) {
		return fmt.Errorf("gpu.CustomBuffer Write: %w: buffer has no CopyDst usage", ErrInvalidDescriptor)
	}
	return cb.write("gpu.CustomBuffer Write", data)
}

// Release releases the device memory.
func (cb *CustomBuffer) Release() { cb.release(cb) }

// CopyPair is a device-side copy of the whole of Src into the start of Dst.
type CopyPair struct {
	Src, Dst Buffer
}

// validate checks that the copy can be encoded.
func (cp *CopyPair) validate() error {
	if reflectx.AnyIsNil(cp.Src) || reflectx.AnyIsNil(cp.Dst) {
		return fmt.Errorf("%w: nil copy buffer", ErrInvalidDescriptor)
	}
	if cp.Src.isReleased() || cp.Dst.isReleased() {
		return fmt.Errorf("copy buffer: %w", ErrReleased)
	}
	src, dst := cp.Src.deviceBuffer(), cp.Dst.deviceBuffer()
	if src == nil || dst == nil {
		return fmt.Errorf("%w: copy buffer has no device buffer", ErrInvalidDescriptor)
	}
	if src == dst {
		return fmt.Errorf("%w: copy source and destination are the same buffer", ErrInvalidDescriptor)
	}
	if !src.Usage().Has(driver.BufferUsageCopySrc) || !dst.Usage().Has(driver.BufferUsageCopyDst) {
		return fmt.Errorf("%w: copy requires CopySrc source (%v) and CopyDst destination (%v)", ErrInvalidDescriptor, src.Usage(), dst.Usage())
	}
	if cp.Dst.Size() < cp.Src.Size() {
		return fmt.Errorf("%w: copy of %d bytes into buffer of %d", ErrCapacity, cp.Src.Size(), cp.Dst.Size())
	}
	return nil
}

// Writer is implemented by the host-writable buffer types.
type Writer interface {
	Write(data []byte) error
}

// WriteFrom writes the given values to a writable buffer.
func WriteFrom[E any](w Writer, values []E) error {
	return w.Write(ToBytes(values))
}

// ReadAs reads an [OutputBuffer] and decodes its contents as values.
func ReadAs[E any](ob *OutputBuffer) ([]E, error) {
	b, err := ob.Read()
	if err != nil {
		return nil, err
	}
	return FromBytes[E](b)
}

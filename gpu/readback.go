// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// OutputBuffer is written by shaders and read back by the host.
// It has a device buffer that kernels write and copies target,
// and a staging buffer that is mapped for reading.
// At most one read is in flight per OutputBuffer.
type OutputBuffer struct {
	buffer

	staging driver.Buffer

	// single-flight lock held for the whole of a read
	readMu sync.Mutex

	mu     sync.Mutex
	state  ReadStates
	policy ReadPolicies
	last   []byte
}

// NewOutputBuffer returns a new [OutputBuffer] sized and initialized
// with data, at the given binding and optional group. It is bound as
// read-write storage. Until the first read, the last value is data.
func (cx *Context) NewOutputBuffer(data []byte, binding int, group ...int) (*OutputBuffer, error) {
	ob := &OutputBuffer{policy: cx.Options.ReadPolicy}
	where := "gpu.NewOutputBuffer"
	err := ob.init(cx, where, data, ResourceDescriptor{
		Binding:    binding,
		Group:      optGroup(group),
		Visibility: ComputeShader,
		Kind:       Storage,
		Usage:      driver.BufferUsageStorage | driver.BufferUsageCopySrc | driver.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	ob.staging, err = cx.Device().CreateBuffer(&driver.BufferDescriptor{
		Label: ob.label() + " staging",
		Size:  uint64(len(data)),
		Usage: driver.BufferUsageMapRead | driver.BufferUsageCopyDst,
	})
	if err != nil {
		ob.buf.Release()
		return nil, errors.Log(fmt.Errorf("%s: %w: staging: %w", where, ErrInvalidDescriptor, err))
	}
	ob.last = slices.Clone(data)
	cx.track(ob)
	return ob, nil
}

// SetReadPolicy sets the policy for reads started after this call.
func (ob *OutputBuffer) SetReadPolicy(policy ReadPolicies) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.policy = policy
}

// ReadPolicy returns the current read policy.
func (ob *OutputBuffer) ReadPolicy() ReadPolicies {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.policy
}

// State returns whether a read is in flight.
func (ob *OutputBuffer) State() ReadStates {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.state
}

// LastValue returns a copy of the most recently read value,
// without accessing the device.
func (ob *OutputBuffer) LastValue() []byte {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return slices.Clone(ob.last)
}

func (ob *OutputBuffer) setState(st ReadStates) {
	ob.mu.Lock()
	ob.state = st
	ob.mu.Unlock()
}

// Read returns the current contents of the buffer, as of all work
// submitted before the call. It copies the device buffer to the
// staging buffer, maps it, and waits for the mapping.
//
// If another read of this buffer is in flight, the [ReadWait] policy
// waits for it to finish and then reads, while [ReadCached] returns
// the last value read without waiting.
func (ob *OutputBuffer) Read() ([]byte, error) {
	if ob.released.Load() {
		return nil, fmt.Errorf("gpu.OutputBuffer Read: %w", ErrReleased)
	}
	if ob.ReadPolicy() == ReadCached {
		if !ob.readMu.TryLock() {
			return ob.LastValue(), nil
		}
	} else {
		ob.readMu.Lock()
	}
	defer ob.readMu.Unlock()
	// Release may have run while waiting for readMu
	if ob.released.Load() {
		return nil, fmt.Errorf("gpu.OutputBuffer Read: %w", ErrReleased)
	}

	ob.setState(Reading)
	defer ob.setState(Idle)
	b, err := ob.readSync()
	if err != nil {
		return nil, err
	}
	ob.mu.Lock()
	ob.last = b
	ob.mu.Unlock()
	return slices.Clone(b), nil
}

// readSync does the copy to staging and the synchronous map.
func (ob *OutputBuffer) readSync() ([]byte, error) {
	where := "gpu.OutputBuffer Read"
	dev, err := ob.cx.ready(where)
	if err != nil {
		return nil, err
	}
	enc, err := dev.CreateCommandEncoder(ob.label() + " read")
	if errors.Log(err) != nil {
		return nil, fmt.Errorf("%s: %w: %w", where, ErrReadback, err)
	}
	defer enc.Release()
	size := uint64(ob.size)
	if err := enc.CopyBufferToBuffer(ob.buf, 0, ob.staging, 0, size); err != nil {
		return nil, errors.Log(fmt.Errorf("%s: %w: %w", where, ErrReadback, err))
	}
	cmd, err := enc.Finish()
	if err != nil {
		return nil, errors.Log(fmt.Errorf("%s: %w: %w", where, ErrReadback, err))
	}
	dev.Queue().Submit(cmd)
	cmd.Release()

	if err := BufferReadSync(dev, size, ob.staging); err != nil {
		ob.staging.Unmap()
		return nil, fmt.Errorf("%s: %w: %w", where, ErrReadback, err)
	}
	b := slices.Clone(ob.staging.MappedRange(0, size))
	ob.staging.Unmap()
	return b, nil
}

// Release releases the device and staging memory.
func (ob *OutputBuffer) Release() {
	if ob.released.Load() {
		return
	}
	ob.readMu.Lock()
	defer ob.readMu.Unlock()
	if ob.staging != nil {
		ob.staging.Release()
	}
	ob.release(ob)
}

// BufferReadSync does a MapAsync for reading on the given buffer,
// polling the device until the map completes, and returning an error
// if it did not succeed.
func BufferReadSync(dev driver.Device, size uint64, buf driver.Buffer) error {
	done := make(chan driver.MapStatus, 1)
	err := buf.MapAsync(driver.MapModeRead, 0, size, func(s driver.MapStatus) {
		done <- s
	})
	if errors.Log(err) != nil {
		return err
	}
	for {
		dev.Poll(true)
		select {
		case s := <-done:
			return errors.Log(s.Err())
		default:
			// the callback may be running on another goroutine's Poll
			runtime.Gosched()
		}
	}
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package softdrv

import (
	"sync"

	"github.com/moderngpu/mgpu/gpu/driver"
)

// mapState is the host mapping state of a buffer.
type mapState int32

const (
	unmapped mapState = iota
	mapPending
	mapped
)

// Buffer is a software buffer. Its memory is only touched by the
// queue worker, except while it is mapped.
type Buffer struct {
	dev   *Device
	label string
	usage driver.BufferUsage
	data  []byte

	mu       sync.Mutex
	state    mapState
	mapOff   uint64
	mapSize  uint64
	mapCount int
	released bool
}

func (bf *Buffer) Size() uint64              { return uint64(len(bf.data)) }
func (bf *Buffer) Usage() driver.BufferUsage { return bf.usage }

// MapCount returns the number of map requests accepted on the buffer.
func (bf *Buffer) MapCount() int {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	return bf.mapCount
}

// busy returns whether the buffer is mapped or has a map pending,
// in which case the GPU cannot use it.
func (bf *Buffer) busy() bool {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	return bf.state != unmapped
}

func (bf *Buffer) MapAsync(mode driver.MapMode, offset, size uint64, callback func(driver.MapStatus)) error {
	dv := bf.dev
	need := driver.BufferUsageMapRead
	if mode == driver.MapModeWrite {
		need = driver.BufferUsageMapWrite
	}
	if !bf.usage.Has(need) {
		return dv.validationError("MapAsync on buffer %q without %v usage", bf.label, need)
	}
	if offset%driver.MapAlignment != 0 || size%driver.CopyBufferAlignment != 0 {
		return dv.validationError("MapAsync on buffer %q: offset %d must be a multiple of %d and size %d of %d", bf.label, offset, driver.MapAlignment, size, driver.CopyBufferAlignment)
	}
	if offset+size > bf.Size() {
		return dv.validationError("MapAsync range %d+%d exceeds buffer %q size %d", offset, size, bf.label, bf.Size())
	}
	bf.mu.Lock()
	if bf.released {
		bf.mu.Unlock()
		return dv.validationError("MapAsync on released buffer %q", bf.label)
	}
	if bf.state != unmapped {
		bf.mu.Unlock()
		return dv.validationError("MapAsync on buffer %q which is already mapped or pending", bf.label)
	}
	bf.state = mapPending
	bf.mapOff, bf.mapSize = offset, size
	bf.mapCount++
	bf.mu.Unlock()

	pm := &pendingMap{buf: bf, seq: dv.queue.enqueuedSeq(), callback: callback}
	dv.mu.Lock()
	dv.maps = append(dv.maps, pm)
	dv.mu.Unlock()
	return nil
}

func (bf *Buffer) MappedRange(offset, size uint64) []byte {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	if bf.state != mapped || offset < bf.mapOff || offset+size > bf.mapOff+bf.mapSize {
		bf.dev.validationError("MappedRange on buffer %q outside of mapped range", bf.label)
		return nil
	}
	return bf.data[offset : offset+size]
}

func (bf *Buffer) Unmap() {
	bf.mu.Lock()
	st := bf.state
	bf.state = unmapped
	bf.mu.Unlock()
	if st == mapPending {
		bf.dev.abortMap(bf)
	}
}

func (bf *Buffer) Release() {
	bf.Unmap()
	bf.mu.Lock()
	bf.released = true
	bf.mu.Unlock()
}

// aligned returns whether all values are multiples of align.
func aligned(align uint64, vals ...uint64) bool {
	for _, v := range vals {
		if v%align != 0 {
			return false
		}
	}
	return true
}

// pendingMap is a map request waiting for the queue to reach seq.
type pendingMap struct {
	buf      *Buffer
	seq      uint64
	callback func(driver.MapStatus)
	aborted  bool
}

// fire calls the callback. aborted is the value of pm.aborted
// read under the device lock.
func (pm *pendingMap) fire(aborted bool) {
	status := driver.MapStatusSuccess
	bf := pm.buf
	bf.mu.Lock()
	switch {
	case aborted && bf.released:
		status = driver.MapStatusDestroyedBeforeCallback
	case aborted || bf.state != mapPending:
		status = driver.MapStatusUnmappedBeforeCallback
	default:
		bf.state = mapped
	}
	bf.mu.Unlock()
	if pm.callback != nil {
		pm.callback(status)
	}
}

// abortMap marks the pending map of bf as aborted so that the next
// Poll reports it.
func (dv *Device) abortMap(bf *Buffer) {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	for _, pm := range dv.maps {
		if pm.buf == bf {
			pm.aborted = true
		}
	}
}

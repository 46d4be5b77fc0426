// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package softdrv

import (
	"slices"
	"sync"
	"time"

	"github.com/moderngpu/mgpu/gpu/driver"
)

// Queue is the device queue. Writes and submissions are executed
// in order on a worker goroutine.
type Queue struct {
	dev *Device

	mu        sync.Mutex
	cond      *sync.Cond
	ops       []func()
	enqueued  uint64
	completed uint64
	closed    bool
}

func newQueue(dv *Device) *Queue {
	q := &Queue{dev: dv}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *Queue) run() {
	for {
		q.mu.Lock()
		for len(q.ops) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.ops) == 0 {
			q.mu.Unlock()
			return
		}
		op := q.ops[0]
		q.ops = q.ops[1:]
		q.mu.Unlock()

		if lat := q.dev.drv.Latency; lat > 0 {
			time.Sleep(lat)
		}
		op()

		q.mu.Lock()
		q.completed++
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}

func (q *Queue) enqueue(op func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.ops = append(q.ops, op)
	q.enqueued++
	q.cond.Broadcast()
}

func (q *Queue) enqueuedSeq() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueued
}

func (q *Queue) completedSeq() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return q.enqueued
	}
	return q.completed
}

// waitIdle waits until everything enqueued so far has executed.
func (q *Queue) waitIdle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	target := q.enqueued
	for q.completed < target && !q.closed {
		q.cond.Wait()
	}
}

func (q *Queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.ops = nil
	q.cond.Broadcast()
}

func (q *Queue) WriteBuffer(buf driver.Buffer, offset uint64, data []byte) error {
	bf, ok := buf.(*Buffer)
	if !ok {
		return q.dev.validationError("WriteBuffer: not a softdrv buffer")
	}
	if !bf.usage.Has(driver.BufferUsageCopyDst) {
		return q.dev.validationError("WriteBuffer on buffer %q without CopyDst usage", bf.label)
	}
	if !aligned(driver.CopyBufferAlignment, offset, uint64(len(data))) {
		return q.dev.validationError("WriteBuffer of %d bytes at %d on buffer %q: size and offset must be multiples of %d", len(data), offset, bf.label, driver.CopyBufferAlignment)
	}
	if offset+uint64(len(data)) > bf.Size() {
		return q.dev.validationError("WriteBuffer of %d bytes at %d exceeds buffer %q size %d", len(data), offset, bf.label, bf.Size())
	}
	if bf.busy() {
		return q.dev.validationError("WriteBuffer on buffer %q while it is mapped", bf.label)
	}
	d := slices.Clone(data)
	q.enqueue(func() {
		copy(bf.data[offset:], d)
	})
	return nil
}

// Submit validates and enqueues the command buffers. An invalid
// command buffer is dropped and a validation error is recorded.
func (q *Queue) Submit(cmds ...driver.CommandBuffer) {
	for _, c := range cmds {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			q.dev.validationError("Submit: not a softdrv command buffer")
			continue
		}
		if err := cb.validateSubmit(); err != nil {
			continue
		}
		q.enqueue(cb.execute)
	}
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package softdrv

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/moderngpu/mgpu/gpu/driver"
)

// Device is a software device. It owns a [Queue] whose worker
// goroutine executes submitted work.
type Device struct {
	drv   *Driver
	label string
	queue *Queue

	mu       sync.Mutex
	maps     []*pendingMap
	errs     []error
	released bool
}

func newDevice(drv *Driver) *Device {
	dv := &Device{drv: drv}
	dv.queue = newQueue(dv)
	return dv
}

// validationError records and logs a validation error, and returns it.
func (dv *Device) validationError(format string, args ...any) error {
	err := fmt.Errorf("softdrv validation: "+format, args...)
	slog.Error(err.Error(), "device", dv.label)
	dv.mu.Lock()
	dv.errs = append(dv.errs, err)
	dv.mu.Unlock()
	return err
}

// ValidationErrors returns all validation errors recorded so far.
func (dv *Device) ValidationErrors() []error {
	dv.mu.Lock()
	defer dv.mu.Unlock()
	return slices.Clone(dv.errs)
}

// Err returns the validation errors joined, or nil.
func (dv *Device) Err() error {
	return errors.Join(dv.ValidationErrors()...)
}

func (dv *Device) Queue() driver.Queue { return dv.queue }

func (dv *Device) CreateBuffer(desc *driver.BufferDescriptor) (driver.Buffer, error) {
	size := desc.Size
	if desc.Contents != nil {
		size = uint64(len(desc.Contents))
	}
	if size == 0 {
		return nil, dv.validationError("buffer %q has zero size", desc.Label)
	}
	if desc.Usage == driver.BufferUsageNone {
		return nil, dv.validationError("buffer %q has no usage", desc.Label)
	}
	if desc.Usage.Has(driver.BufferUsageMapRead) && desc.Usage&^(driver.BufferUsageMapRead|driver.BufferUsageCopyDst) != 0 {
		return nil, dv.validationError("buffer %q: MapRead may only be combined with CopyDst, not %v", desc.Label, desc.Usage)
	}
	bf := &Buffer{dev: dv, label: desc.Label, usage: desc.Usage, data: make([]byte, size)}
	copy(bf.data, desc.Contents)
	return bf, nil
}

func (dv *Device) CreateTexture(desc *driver.TextureDescriptor) (driver.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, dv.validationError("texture %q has zero size", desc.Label)
	}
	return newTexture(desc), nil
}

func (dv *Device) CreateSampler(desc *driver.SamplerDescriptor) (driver.Sampler, error) {
	return &Sampler{desc: *desc}, nil
}

func (dv *Device) CreateShaderModule(desc *driver.ShaderModuleDescriptor) (driver.ShaderModule, error) {
	if strings.TrimSpace(desc.Code) == "" {
		return nil, fmt.Errorf("softdrv: shader module %q: empty source", desc.Label)
	}
	sm := &ShaderModule{label: desc.Label, code: desc.Code}
	if dv.drv.ValidateWGSL {
		entries, err := compileWGSL(desc.Code)
		if err != nil {
			return nil, fmt.Errorf("softdrv: shader module %q: %w", desc.Label, err)
		}
		sm.entries = entries
		sm.validated = true
	}
	return sm, nil
}

func (dv *Device) CreateBindGroupLayout(desc *driver.BindGroupLayoutDescriptor) (driver.BindGroupLayout, error) {
	seen := map[uint32]bool{}
	for _, e := range desc.Entries {
		if seen[e.Binding] {
			return nil, dv.validationError("bind group layout %q: duplicate binding %d", desc.Label, e.Binding)
		}
		seen[e.Binding] = true
		if e.Type == driver.BindingUndefined {
			return nil, dv.validationError("bind group layout %q: binding %d has no type", desc.Label, e.Binding)
		}
		if e.Visibility == driver.ShaderStageNone {
			return nil, dv.validationError("bind group layout %q: binding %d is not visible to any stage", desc.Label, e.Binding)
		}
	}
	return &BindGroupLayout{label: desc.Label, entries: slices.Clone(desc.Entries)}, nil
}

func (dv *Device) CreateBindGroup(desc *driver.BindGroupDescriptor) (driver.BindGroup, error) {
	bgl, ok := desc.Layout.(*BindGroupLayout)
	if !ok {
		return nil, dv.validationError("bind group %q: invalid layout", desc.Label)
	}
	if len(desc.Entries) != len(bgl.entries) {
		return nil, dv.validationError("bind group %q: %d entries for a layout of %d", desc.Label, len(desc.Entries), len(bgl.entries))
	}
	bg := &BindGroup{label: desc.Label, layout: bgl}
	for _, e := range desc.Entries {
		le, ok := bgl.entry(e.Binding)
		if !ok {
			return nil, dv.validationError("bind group %q: binding %d is not in the layout", desc.Label, e.Binding)
		}
		be := bindEntry{binding: e.Binding}
		switch {
		case le.Type.IsBuffer():
			bf, ok := e.Buffer.(*Buffer)
			if !ok {
				return nil, dv.validationError("bind group %q: binding %d needs a buffer", desc.Label, e.Binding)
			}
			need := driver.BufferUsageStorage
			if le.Type == driver.BindingUniformBuffer {
				need = driver.BufferUsageUniform
			}
			if !bf.usage.Has(need) {
				return nil, dv.validationError("bind group %q: buffer %q for %s binding %d lacks %v usage", desc.Label, bf.label, le.Type, e.Binding, need)
			}
			size := e.Size
			if size == 0 || size == driver.WholeSize {
				size = bf.Size() - e.Offset
			}
			if e.Offset+size > bf.Size() {
				return nil, dv.validationError("bind group %q: binding %d range exceeds buffer %q", desc.Label, e.Binding, bf.label)
			}
			be.buffer, be.offset, be.size = bf, e.Offset, size
		case le.Type == driver.BindingTexture:
			tv, ok := e.TextureView.(*TextureView)
			if !ok {
				return nil, dv.validationError("bind group %q: binding %d needs a texture view", desc.Label, e.Binding)
			}
			be.view = tv
		case le.Type == driver.BindingSampler:
			if _, ok := e.Sampler.(*Sampler); !ok {
				return nil, dv.validationError("bind group %q: binding %d needs a sampler", desc.Label, e.Binding)
			}
		}
		bg.entries = append(bg.entries, be)
	}
	return bg, nil
}

func (dv *Device) CreatePipelineLayout(desc *driver.PipelineLayoutDescriptor) (driver.PipelineLayout, error) {
	pl := &PipelineLayout{label: desc.Label}
	for i, l := range desc.BindGroupLayouts {
		bgl, ok := l.(*BindGroupLayout)
		if !ok {
			return nil, dv.validationError("pipeline layout %q: invalid bind group layout %d", desc.Label, i)
		}
		pl.groups = append(pl.groups, bgl)
	}
	return pl, nil
}

func (dv *Device) CreateComputePipeline(desc *driver.ComputePipelineDescriptor) (driver.ComputePipeline, error) {
	sm, ok := desc.Module.(*ShaderModule)
	if !ok {
		return nil, fmt.Errorf("softdrv: compute pipeline %q: invalid shader module", desc.Label)
	}
	if err := sm.checkEntry(desc.EntryPoint); err != nil {
		return nil, fmt.Errorf("softdrv: compute pipeline %q: %w", desc.Label, err)
	}
	k := dv.drv.computeKernel(desc.EntryPoint)
	if k == nil {
		return nil, fmt.Errorf("softdrv: compute pipeline %q: no kernel registered for entry point %q", desc.Label, desc.EntryPoint)
	}
	pl, _ := desc.Layout.(*PipelineLayout)
	return &ComputePipeline{label: desc.Label, layout: pl, kernel: k}, nil
}

func (dv *Device) CreateRenderPipeline(desc *driver.RenderPipelineDescriptor) (driver.RenderPipeline, error) {
	sm, ok := desc.Module.(*ShaderModule)
	if !ok {
		return nil, fmt.Errorf("softdrv: render pipeline %q: invalid shader module", desc.Label)
	}
	for _, e := range []string{desc.VertexEntry, desc.FragmentEntry} {
		if err := sm.checkEntry(e); err != nil {
			return nil, fmt.Errorf("softdrv: render pipeline %q: %w", desc.Label, err)
		}
	}
	fn := dv.drv.drawFunc(desc.VertexEntry, desc.FragmentEntry)
	if fn == nil {
		return nil, fmt.Errorf("softdrv: render pipeline %q: no draw registered for entry points %q, %q", desc.Label, desc.VertexEntry, desc.FragmentEntry)
	}
	if desc.TargetFormat == driver.TextureFormatUndefined {
		return nil, fmt.Errorf("softdrv: render pipeline %q: undefined target format", desc.Label)
	}
	pl, _ := desc.Layout.(*PipelineLayout)
	return &RenderPipeline{label: desc.Label, layout: pl, draw: fn, topology: desc.Topology}, nil
}

func (dv *Device) CreateCommandEncoder(label string) (driver.CommandEncoder, error) {
	return &CommandEncoder{dev: dv, label: label}, nil
}

// Poll fires the callbacks of completed map requests.
// If wait is true, it first waits for all work submitted so far.
func (dv *Device) Poll(wait bool) {
	if wait {
		dv.queue.waitIdle()
	}
	done := dv.queue.completedSeq()
	dv.mu.Lock()
	var ready []*pendingMap
	var aborted []bool
	dv.maps = slices.DeleteFunc(dv.maps, func(pm *pendingMap) bool {
		if pm.aborted || pm.seq <= done {
			ready = append(ready, pm)
			aborted = append(aborted, pm.aborted)
			return true
		}
		return false
	})
	dv.mu.Unlock()
	for i, pm := range ready {
		pm.fire(aborted[i])
	}
}

// Release stops the queue worker.
func (dv *Device) Release() {
	dv.mu.Lock()
	if dv.released {
		dv.mu.Unlock()
		return
	}
	dv.released = true
	maps := dv.maps
	dv.maps = nil
	dv.mu.Unlock()
	for _, pm := range maps {
		pm.fire(true)
	}
	dv.queue.close()
}

// BindGroupLayout is a software bind group layout.
type BindGroupLayout struct {
	label   string
	entries []driver.BindGroupLayoutEntry
}

func (bgl *BindGroupLayout) entry(binding uint32) (driver.BindGroupLayoutEntry, bool) {
	for _, e := range bgl.entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return driver.BindGroupLayoutEntry{}, false
}

func (bgl *BindGroupLayout) Release() {}

type bindEntry struct {
	binding uint32
	buffer  *Buffer
	offset  uint64
	size    uint64
	view    *TextureView
}

// BindGroup is a software bind group.
type BindGroup struct {
	label   string
	layout  *BindGroupLayout
	entries []bindEntry
}

// buffers returns the buffers bound in the group.
func (bg *BindGroup) buffers() []*Buffer {
	var bfs []*Buffer
	for _, e := range bg.entries {
		if e.buffer != nil {
			bfs = append(bfs, e.buffer)
		}
	}
	return bfs
}

func (bg *BindGroup) Release() {}

// PipelineLayout is a software pipeline layout.
type PipelineLayout struct {
	label  string
	groups []*BindGroupLayout
}

func (pl *PipelineLayout) Release() {}

// ComputePipeline is a compute pipeline running a Go [Kernel].
type ComputePipeline struct {
	label  string
	layout *PipelineLayout
	kernel Kernel
}

func (pl *ComputePipeline) Release() {}

// RenderPipeline is a render pipeline running a Go [DrawFunc].
type RenderPipeline struct {
	label    string
	layout   *PipelineLayout
	draw     DrawFunc
	topology driver.PrimitiveTopology
}

func (pl *RenderPipeline) Release() {}

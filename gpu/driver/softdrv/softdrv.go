// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package softdrv is a software implementation of the gpu driver
// interfaces. Shader entry points are Go functions registered on the
// [Driver] by name; everything else (queue ordering, buffer mapping
// rules, usage validation) follows WebGPU semantics. Submitted work
// runs asynchronously on a per-device worker goroutine, in FIFO order.
package softdrv

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/moderngpu/mgpu/gpu/driver"
)

// Invocation is passed to a [Kernel] for each dispatch.
type Invocation struct {
	// Workgroups is the dispatch grid size.
	Workgroups [3]uint32

	// Bindings maps binding numbers to bound buffer memory, merged
	// over all bound groups in increasing group order.
	Bindings map[uint32][]byte

	// Groups holds the bindings of every bound group, by group index.
	Groups map[uint32]map[uint32][]byte
}

// Kernel is a compute entry point.
type Kernel func(inv *Invocation)

// Draw is passed to a [DrawFunc] for each draw call.
type Draw struct {
	Target        *image.RGBA
	Topology      driver.PrimitiveTopology
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	Bindings      map[uint32][]byte
}

// DrawFunc is a vertex+fragment entry point pair.
type DrawFunc func(d *Draw)

// Config configures a [Driver].
type Config struct {
	// AdapterName is reported in the adapter info.
	AdapterName string

	// ValidateWGSL parses and lowers shader code with naga when
	// shader modules are created, and checks entry points against it.
	ValidateWGSL bool

	// NoAdapter makes RequestAdapter fail, as on a host without a GPU.
	NoAdapter bool

	// RefuseDevice makes RequestDevice fail.
	RefuseDevice bool

	// Latency is added to the execution of each queue operation.
	Latency time.Duration
}

// Driver is the software driver.
type Driver struct {
	Config

	mu      sync.RWMutex
	compute map[string]Kernel
	draws   map[string]DrawFunc
}

// New returns a new software [Driver] with the given config, which may be nil.
func New(cfg *Config) *Driver {
	d := &Driver{compute: map[string]Kernel{}, draws: map[string]DrawFunc{}}
	if cfg != nil {
		d.Config = *cfg
	}
	if d.AdapterName == "" {
		d.AdapterName = "softdrv"
	}
	return d
}

// RegisterCompute registers the Go function that implements the
// compute entry point of the given name.
func (d *Driver) RegisterCompute(entry string, k Kernel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.compute[entry] = k
}

// RegisterDraw registers the Go function that implements the given
// vertex and fragment entry point pair.
func (d *Driver) RegisterDraw(vertexEntry, fragmentEntry string, fn DrawFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draws[vertexEntry+":"+fragmentEntry] = fn
}

func (d *Driver) computeKernel(entry string) Kernel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.compute[entry]
}

func (d *Driver) drawFunc(vertexEntry, fragmentEntry string) DrawFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.draws[vertexEntry+":"+fragmentEntry]
}

// ErrNoAdapter is returned by RequestAdapter when [Config.NoAdapter] is set.
var ErrNoAdapter = errors.New("softdrv: no adapter available")

// ErrDeviceRefused is returned by RequestDevice when [Config.RefuseDevice] is set.
var ErrDeviceRefused = errors.New("softdrv: device request refused")

func (d *Driver) RequestAdapter(ctx context.Context, opts *driver.AdapterOptions) (driver.Adapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.NoAdapter {
		return nil, ErrNoAdapter
	}
	ad := &Adapter{drv: d}
	if opts != nil {
		ad.power = opts.PowerPreference
	}
	return ad, nil
}

// Adapter is a software adapter.
type Adapter struct {
	drv   *Driver
	power driver.PowerPreference
}

func (ad *Adapter) Info() driver.AdapterInfo {
	return driver.AdapterInfo{
		Name:    ad.drv.AdapterName,
		Vendor:  "moderngpu",
		Backend: "Software",
		Type:    "CPU",
		Driver:  "softdrv",
	}
}

func (ad *Adapter) RequestDevice(ctx context.Context, desc *driver.DeviceDescriptor) (driver.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ad.drv.RefuseDevice {
		return nil, ErrDeviceRefused
	}
	dv := newDevice(ad.drv)
	if desc != nil {
		dv.label = desc.Label
	}
	return dv, nil
}

func (ad *Adapter) Release() {}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// States are the lifecycle states of a [Context].
type States int32

const (
	Uninitialized States = iota
	Ready
	Released
)

func (st States) String() string {
	switch st {
	case Ready:
		return "Ready"
	case Released:
		return "Released"
	}
	return "Uninitialized"
}

// liveContexts counts Ready contexts in the process.
var liveContexts atomic.Int32

// Context owns the connection to a GPU backend: the adapter and the
// logical device. All resources and kernels are created from a Ready
// Context, which must be initialized with [Context.Init] first.
// Typically there is one Context per process.
type Context struct {

	// Options used for initialization and as defaults for resources.
	Options Options

	drv driver.Driver

	mu        sync.Mutex
	state     States
	adapter   driver.Adapter
	device    driver.Device
	info      driver.AdapterInfo
	resources []driver.Releaser
}

// NewContext returns a new uninitialized Context for the given driver.
// If opts is nil, default [Options] are used.
func NewContext(drv driver.Driver, opts *Options) *Context {
	cx := &Context{drv: drv}
	if opts != nil {
		cx.Options = *opts
	} else {
		cx.Options.Defaults()
	}
	return cx
}

// Init requests an adapter and then a device from it. It returns an
// error wrapping [ErrInitialization] if either is unavailable.
// Init on a Ready context does nothing, and it can be retried after
// a failure.
func (cx *Context) Init(ctx context.Context) error {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	switch cx.state {
	case Ready:
		return nil
	case Released:
		return fmt.Errorf("gpu.Context Init: %w", ErrReleased)
	}
	if cx.drv == nil {
		return errors.Log(fmt.Errorf("gpu.Context Init: %w: no driver", ErrInitialization))
	}
	ad, err := cx.drv.RequestAdapter(ctx, &driver.AdapterOptions{PowerPreference: cx.Options.PowerPreference})
	if err != nil {
		return errors.Log(fmt.Errorf("gpu.Context Init: %w: adapter: %w", ErrInitialization, err))
	}
	if ad == nil {
		return errors.Log(fmt.Errorf("gpu.Context Init: %w: no adapter", ErrInitialization))
	}
	dev, err := ad.RequestDevice(ctx, &driver.DeviceDescriptor{Label: cx.Options.DeviceLabel})
	if err == nil && dev == nil {
		err = errors.New("nil device")
	}
	if err != nil {
		ad.Release()
		return errors.Log(fmt.Errorf("gpu.Context Init: %w: device: %w", ErrInitialization, err))
	}
	cx.adapter = ad
	cx.device = dev
	cx.info = ad.Info()
	cx.state = Ready
	if n := liveContexts.Add(1); n > 1 {
		slog.Warn("gpu.Context Init: more than one live context", "contexts", n)
	}
	if cx.debug() {
		slog.Info("gpu.Context Init", "adapter", cx.info.Name, "backend", cx.info.Backend, "type", cx.info.Type)
	}
	return nil
}

// State returns the lifecycle state.
func (cx *Context) State() States {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	return cx.state
}

// AdapterInfo returns information about the adapter, once Ready.
func (cx *Context) AdapterInfo() driver.AdapterInfo {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	return cx.info
}

// Device returns the driver device, or nil if not Ready.
func (cx *Context) Device() driver.Device {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	return cx.device
}

// ready returns the device, or an error if the context is not Ready.
func (cx *Context) ready(where string) (driver.Device, error) {
	if cx == nil {
		return nil, fmt.Errorf("%s: %w", where, ErrUninitializedContext)
	}
	cx.mu.Lock()
	defer cx.mu.Unlock()
	switch cx.state {
	case Ready:
		return cx.device, nil
	case Released:
		return nil, fmt.Errorf("%s: %w", where, ErrReleased)
	}
	return nil, fmt.Errorf("%s: %w", where, ErrUninitializedContext)
}

// WaitDone waits until the device has finished all submitted work.
func (cx *Context) WaitDone() {
	if dev := cx.Device(); dev != nil {
		dev.Poll(true)
	}
}

func (cx *Context) debug() bool {
	return Debug || cx.Options.Debug
}

// track records a resource to be released with the context.
func (cx *Context) track(r driver.Releaser) {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	cx.resources = append(cx.resources, r)
}

// untrack removes a resource released by its owner.
func (cx *Context) untrack(r driver.Releaser) {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	if i := slices.Index(cx.resources, r); i >= 0 {
		cx.resources = slices.Delete(cx.resources, i, i+1)
	}
}

// Release waits for the device, releases all resources and kernels
// created from the context in reverse order of creation, and then
// the device and adapter.
func (cx *Context) Release() {
	cx.mu.Lock()
	if cx.state != Ready {
		cx.state = Released
		cx.mu.Unlock()
		return
	}
	res := cx.resources
	cx.resources = nil
	dev, ad := cx.device, cx.adapter
	cx.mu.Unlock()

	dev.Poll(true)
	for i := len(res) - 1; i >= 0; i-- {
		res[i].Release()
	}
	dev.Release()
	ad.Release()
	liveContexts.Add(-1)

	cx.mu.Lock()
	cx.device = nil
	cx.adapter = nil
	cx.state = Released
	cx.mu.Unlock()
}

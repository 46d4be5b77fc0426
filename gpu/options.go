// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/base/iox/tomlx"
	"github.com/moderngpu/mgpu/base/reflectx"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// Debug is a global flag for turning on debug logging of layouts
// and kernel construction.
var Debug = false

// Options are the configuration options for a [Context].
// Default values are given by the `default:` struct tags.
type Options struct {

	// PowerPreference selects the adapter: low-power or high-performance.
	PowerPreference driver.PowerPreference `default:"high-performance"`

	// DeviceLabel is the debug label of the device.
	DeviceLabel string `default:"mgpu"`

	// ReadPolicy is the default [ReadPolicies] for new output buffers.
	ReadPolicy ReadPolicies `default:"wait"`

	// Debug turns on debug logging for this context.
	Debug bool
}

// Defaults sets the options to their default values.
func (o *Options) Defaults() {
	errors.Log(reflectx.SetFromDefaultTags(o))
}

// NewOptions returns new Options with default values.
func NewOptions() *Options {
	o := &Options{}
	o.Defaults()
	return o
}

// OpenOptions returns default Options overridden by the given TOML files,
// in order. Errors are logged and returned along with the options.
func OpenOptions(files ...string) (*Options, error) {
	o := NewOptions()
	if len(files) == 0 {
		return o, nil
	}
	return o, errors.Log(tomlx.OpenFiles(o, files...))
}

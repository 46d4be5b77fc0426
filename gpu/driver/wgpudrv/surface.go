// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wgpudrv

import (
	"fmt"
	"image"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// Surface is a presentable WebGPU surface, such as a window.
type Surface struct {
	surface *wgpu.Surface

	mu      sync.Mutex
	size    image.Point
	device  *Device
	config  *wgpu.SurfaceConfiguration
	current *wgpu.Texture
}

// NewSurface returns a [Surface] for the given WebGPU surface,
// of the given initial size in pixels.
func NewSurface(sf *wgpu.Surface, size image.Point) *Surface {
	return &Surface{surface: sf, size: size}
}

// Configure configures the surface for the device. A zero size in
// cfg uses the surface size, and an undefined format uses the first
// supported format the surface offers.
func (sf *Surface) Configure(dev driver.Device, cfg *driver.SurfaceConfiguration) (driver.TextureFormat, error) {
	dv, ok := dev.(*Device)
	if !ok {
		return driver.TextureFormatUndefined, fmt.Errorf("wgpudrv Surface Configure: requires a wgpudrv device")
	}
	sf.mu.Lock()
	defer sf.mu.Unlock()
	caps := sf.surface.GetCapabilities(dv.adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return driver.TextureFormatUndefined, fmt.Errorf("wgpudrv Surface Configure: surface is not supported by the adapter")
	}
	format := driver.TextureFormatUndefined
	if cfg != nil && cfg.Format != driver.TextureFormatUndefined {
		format = cfg.Format
	} else {
		for _, f := range caps.Formats {
			if tf, ok := driverFormat(f); ok {
				format = tf
				break
			}
		}
	}
	if format == driver.TextureFormatUndefined {
		return format, fmt.Errorf("wgpudrv Surface Configure: no supported format in %v", caps.Formats)
	}
	if cfg != nil && cfg.Width > 0 && cfg.Height > 0 {
		sf.size = image.Point{int(cfg.Width), int(cfg.Height)}
	}
	sf.device = dv
	sf.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      textureFormat(format),
		Width:       uint32(sf.size.X),
		Height:      uint32(sf.size.Y),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	sf.surface.Configure(dv.adapter, dv.device, sf.config)
	return format, nil
}

// Resized reconfigures the surface for a new size.
func (sf *Surface) Resized(size image.Point) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if size == sf.size || size.X <= 0 || size.Y <= 0 {
		return
	}
	sf.size = size
	if sf.config == nil {
		return
	}
	sf.config.Width, sf.config.Height = uint32(size.X), uint32(size.Y)
	sf.surface.Configure(sf.device.adapter, sf.device.device, sf.config)
}

// CurrentView returns a view of the texture to render the next frame into.
func (sf *Surface) CurrentView() (driver.TextureView, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.config == nil {
		return nil, fmt.Errorf("wgpudrv Surface: not configured")
	}
	tex, err := sf.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	vw, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	sf.current = tex
	return &TextureView{view: vw}, nil
}

// Present shows the current frame.
func (sf *Surface) Present() {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.current == nil {
		return
	}
	sf.surface.Present()
	sf.current.Release()
	sf.current = nil
}

func (sf *Surface) Release() {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.current != nil {
		sf.current.Release()
		sf.current = nil
	}
	sf.surface.Release()
}

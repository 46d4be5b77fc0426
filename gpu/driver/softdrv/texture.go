// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package softdrv

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/moderngpu/mgpu/gpu/driver"
)

// Texture is a software texture, stored as RGBA8 regardless of format.
type Texture struct {
	desc driver.TextureDescriptor
	img  *image.RGBA
}

func newTexture(desc *driver.TextureDescriptor) *Texture {
	return &Texture{desc: *desc, img: image.NewRGBA(image.Rect(0, 0, int(desc.Width), int(desc.Height)))}
}

func (tx *Texture) fill(c color.RGBA) {
	draw.Draw(tx.img, tx.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func (tx *Texture) CreateView() (driver.TextureView, error) {
	return &TextureView{tex: tx}, nil
}

func (tx *Texture) Release() {}

// TextureView is a view of a whole [Texture].
type TextureView struct {
	tex *Texture
}

func (tv *TextureView) Release() {}

// Sampler is a software sampler. Kernels sample textures themselves.
type Sampler struct {
	desc driver.SamplerDescriptor
}

func (sm *Sampler) Release() {}

// Canvas is an offscreen [driver.Surface] with a single frame texture.
// Presented frames are kept as images.
type Canvas struct {
	width, height uint32

	mu        sync.Mutex
	dev       *Device
	format    driver.TextureFormat
	frame     *Texture
	presented []*image.RGBA
}

// NewCanvas returns a new canvas surface of the given size.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{width: uint32(width), height: uint32(height)}
}

func (cv *Canvas) Configure(dev driver.Device, cfg *driver.SurfaceConfiguration) (driver.TextureFormat, error) {
	dv, ok := dev.(*Device)
	if !ok {
		return driver.TextureFormatUndefined, errors.New("softdrv: canvas requires a softdrv device")
	}
	format := driver.TextureFormatRGBA8Unorm
	w, h := cv.width, cv.height
	if cfg != nil {
		if cfg.Format != driver.TextureFormatUndefined {
			format = cfg.Format
		}
		if cfg.Width > 0 && cfg.Height > 0 {
			w, h = cfg.Width, cfg.Height
		}
	}
	cv.mu.Lock()
	defer cv.mu.Unlock()
	cv.dev = dv
	cv.format = format
	cv.width, cv.height = w, h
	cv.frame = newTexture(&driver.TextureDescriptor{Label: "canvas", Width: w, Height: h, Depth: 1, Format: format, Usage: driver.TextureUsageRenderAttachment})
	return format, nil
}

func (cv *Canvas) CurrentView() (driver.TextureView, error) {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	if cv.frame == nil {
		return nil, errors.New("softdrv: canvas is not configured")
	}
	return cv.frame.CreateView()
}

// Present waits for the queued rendering and then records a copy
// of the frame.
func (cv *Canvas) Present() {
	cv.mu.Lock()
	dv, frame := cv.dev, cv.frame
	cv.mu.Unlock()
	if dv == nil || frame == nil {
		return
	}
	dv.queue.waitIdle()
	img := image.NewRGBA(frame.img.Bounds())
	copy(img.Pix, frame.img.Pix)
	cv.mu.Lock()
	cv.presented = append(cv.presented, img)
	cv.mu.Unlock()
}

// Presented returns the presented frames, in order.
func (cv *Canvas) Presented() []*image.RGBA {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	return append([]*image.RGBA(nil), cv.presented...)
}

func (cv *Canvas) Release() {}

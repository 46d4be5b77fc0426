// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/gpu/driver"
)

// Texture is an RGBA8 texture that shaders can sample.
type Texture struct {
	Width, Height, Depth int

	cx       *Context
	desc     ResourceDescriptor
	tex      driver.Texture
	view     driver.TextureView
	released atomic.Bool
}

// NewTexture returns a new [Texture] of the given size (depth layers,
// 0 means 1), at the given binding and optional group.
func (cx *Context) NewTexture(binding, width, height, depth int, group ...int) (*Texture, error) {
	where := "gpu.NewTexture"
	dev, err := cx.ready(where)
	if err != nil {
		return nil, errors.Log(err)
	}
	if depth <= 0 {
		depth = 1
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Log(fmt.Errorf("%s: %w: size %dx%d", where, ErrInvalidDescriptor, width, height))
	}
	tx := &Texture{Width: width, Height: height, Depth: depth, cx: cx}
	tx.desc = ResourceDescriptor{Binding: binding, Group: optGroup(group), Visibility: FragmentShader | ComputeShader, Kind: TextureKind}
	if err := tx.desc.Validate(); err != nil {
		return nil, errors.Log(fmt.Errorf("%s: %w", where, err))
	}
	tx.tex, err = dev.CreateTexture(&driver.TextureDescriptor{
		Label:  fmt.Sprintf("texture %d:%d", tx.desc.Group, binding),
		Width:  uint32(width),
		Height: uint32(height),
		Depth:  uint32(depth),
		Format: driver.TextureFormatRGBA8UnormSrgb,
		Usage:  driver.TextureUsageTextureBinding | driver.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, errors.Log(fmt.Errorf("%s: %w: %w", where, ErrInvalidDescriptor, err))
	}
	tx.view, err = tx.tex.CreateView()
	if err != nil {
		tx.tex.Release()
		return nil, errors.Log(fmt.Errorf("%s: %w: view: %w", where, ErrInvalidDescriptor, err))
	}
	cx.track(tx)
	return tx, nil
}

func (tx *Texture) Descriptor() ResourceDescriptor { return tx.desc }

// SetVisibility sets the shader stages that can see the texture.
func (tx *Texture) SetVisibility(stages driver.ShaderStage) {
	tx.desc.Visibility = stages
}

func (tx *Texture) bindEntry() driver.BindGroupEntry {
	return driver.BindGroupEntry{Binding: uint32(tx.desc.Binding), TextureView: tx.view}
}

// Release releases the texture and its view.
func (tx *Texture) Release() {
	if tx.released.Swap(true) {
		return
	}
	tx.view.Release()
	tx.tex.Release()
	tx.cx.untrack(tx)
}

// Sampler is a linear-filtering texture sampler.
type Sampler struct {
	cx       *Context
	desc     ResourceDescriptor
	sampler  driver.Sampler
	released atomic.Bool
}

// NewSampler returns a new [Sampler] at the given binding and optional group.
func (cx *Context) NewSampler(binding int, group ...int) (*Sampler, error) {
	where := "gpu.NewSampler"
	dev, err := cx.ready(where)
	if err != nil {
		return nil, errors.Log(err)
	}
	sm := &Sampler{cx: cx}
	sm.desc = ResourceDescriptor{Binding: binding, Group: optGroup(group), Visibility: FragmentShader | ComputeShader, Kind: SamplerKind}
	if err := sm.desc.Validate(); err != nil {
		return nil, errors.Log(fmt.Errorf("%s: %w", where, err))
	}
	sm.sampler, err = dev.CreateSampler(&driver.SamplerDescriptor{
		Label:         fmt.Sprintf("sampler %d:%d", sm.desc.Group, binding),
		AddressMode:   driver.AddressModeRepeat,
		MagFilter:     driver.FilterModeLinear,
		MinFilter:     driver.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, errors.Log(fmt.Errorf("%s: %w: %w", where, ErrInvalidDescriptor, err))
	}
	cx.track(sm)
	return sm, nil
}

func (sm *Sampler) Descriptor() ResourceDescriptor { return sm.desc }

// SetVisibility sets the shader stages that can see the sampler.
func (sm *Sampler) SetVisibility(stages driver.ShaderStage) {
	sm.desc.Visibility = stages
}

func (sm *Sampler) bindEntry() driver.BindGroupEntry {
	return driver.BindGroupEntry{Binding: uint32(sm.desc.Binding), Sampler: sm.sampler}
}

// Release releases the sampler.
func (sm *Sampler) Release() {
	if sm.released.Swap(true) {
		return
	}
	sm.sampler.Release()
	sm.cx.untrack(sm)
}

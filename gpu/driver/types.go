// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"fmt"
	"strings"
)

// BufferUsage is a set of capability flags for a buffer.
// Values match the WebGPU GPUBufferUsage bits.
type BufferUsage uint32

const (
	BufferUsageMapRead BufferUsage = 1 << iota
	BufferUsageMapWrite
	BufferUsageCopySrc
	BufferUsageCopyDst
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndirect
	BufferUsageQueryResolve

	BufferUsageNone BufferUsage = 0
)

var bufferUsageNames = []string{"MapRead", "MapWrite", "CopySrc", "CopyDst", "Index", "Vertex", "Uniform", "Storage", "Indirect", "QueryResolve"}

// Has returns whether all flags in f are set.
func (u BufferUsage) Has(f BufferUsage) bool {
	return u&f == f
}

func (u BufferUsage) String() string {
	if u == 0 {
		return "None"
	}
	var s []string
	for i, nm := range bufferUsageNames {
		if u&(1<<i) != 0 {
			s = append(s, nm)
		}
	}
	return strings.Join(s, "|")
}

// ShaderStage is a set of shader stages a binding is visible to.
type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
	ShaderStageCompute

	ShaderStageNone ShaderStage = 0
)

// Has returns whether all stages in s are set.
func (st ShaderStage) Has(s ShaderStage) bool {
	return st&s == s
}

func (st ShaderStage) String() string {
	if st == 0 {
		return "None"
	}
	var s []string
	for i, nm := range []string{"Vertex", "Fragment", "Compute"} {
		if st&(1<<i) != 0 {
			s = append(s, nm)
		}
	}
	return strings.Join(s, "|")
}

// BindingType is the kind of resource a bind group layout slot expects.
type BindingType int32

const (
	BindingUndefined BindingType = iota
	BindingUniformBuffer
	BindingStorageBuffer
	BindingReadOnlyStorageBuffer
	BindingTexture
	BindingSampler
)

func (bt BindingType) String() string {
	switch bt {
	case BindingUniformBuffer:
		return "uniform"
	case BindingStorageBuffer:
		return "storage"
	case BindingReadOnlyStorageBuffer:
		return "read-only-storage"
	case BindingTexture:
		return "texture"
	case BindingSampler:
		return "sampler"
	}
	return "undefined"
}

// IsBuffer returns whether the binding is a buffer binding.
func (bt BindingType) IsBuffer() bool {
	return bt >= BindingUniformBuffer && bt <= BindingReadOnlyStorageBuffer
}

// CopyBufferAlignment is the required alignment in bytes of buffer
// copy and write sizes and offsets.
const CopyBufferAlignment = 4

// MapAlignment is the required alignment in bytes of the offset
// of a buffer mapping.
const MapAlignment = 8

// MapMode selects host read or write access for a mapping.
type MapMode uint32

const (
	MapModeRead MapMode = 1 << iota
	MapModeWrite
)

// MapStatus is the result passed to a MapAsync callback.
type MapStatus int32

const (
	MapStatusSuccess MapStatus = iota
	MapStatusValidationError
	MapStatusUnmappedBeforeCallback
	MapStatusDestroyedBeforeCallback
	MapStatusDeviceLost
	MapStatusUnknown
)

func (ms MapStatus) String() string {
	switch ms {
	case MapStatusSuccess:
		return "Success"
	case MapStatusValidationError:
		return "ValidationError"
	case MapStatusUnmappedBeforeCallback:
		return "UnmappedBeforeCallback"
	case MapStatusDestroyedBeforeCallback:
		return "DestroyedBeforeCallback"
	case MapStatusDeviceLost:
		return "DeviceLost"
	}
	return "Unknown"
}

// Err returns nil for success and an error naming the status otherwise.
func (ms MapStatus) Err() error {
	if ms == MapStatusSuccess {
		return nil
	}
	return fmt.Errorf("buffer map failed: %s", ms)
}

// PowerPreference selects between integrated and discrete adapters.
type PowerPreference int32

const (
	PowerPreferenceUndefined PowerPreference = iota
	PowerPreferenceLowPower
	PowerPreferenceHighPerformance
)

var powerPreferenceNames = []string{"undefined", "low-power", "high-performance"}

func (pp PowerPreference) String() string {
	if pp < 0 || int(pp) >= len(powerPreferenceNames) {
		return "unknown"
	}
	return powerPreferenceNames[pp]
}

func (pp PowerPreference) MarshalText() ([]byte, error) {
	return []byte(pp.String()), nil
}

func (pp *PowerPreference) UnmarshalText(text []byte) error {
	for i, nm := range powerPreferenceNames {
		if string(text) == nm {
			*pp = PowerPreference(i)
			return nil
		}
	}
	return fmt.Errorf("driver: invalid PowerPreference %q", text)
}

// PrimitiveTopology is how vertices are assembled into primitives.
type PrimitiveTopology int32

const (
	PrimitiveTopologyPointList PrimitiveTopology = iota
	PrimitiveTopologyLineList
	PrimitiveTopologyLineStrip
	PrimitiveTopologyTriangleList
	PrimitiveTopologyTriangleStrip
)

func (pt PrimitiveTopology) String() string {
	switch pt {
	case PrimitiveTopologyPointList:
		return "point-list"
	case PrimitiveTopologyLineList:
		return "line-list"
	case PrimitiveTopologyLineStrip:
		return "line-strip"
	case PrimitiveTopologyTriangleList:
		return "triangle-list"
	case PrimitiveTopologyTriangleStrip:
		return "triangle-strip"
	}
	return "unknown"
}

// TextureFormat is a texel format.
type TextureFormat int32

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatBGRA8Unorm
	TextureFormatBGRA8UnormSrgb
	TextureFormatR32Float
	TextureFormatRGBA32Float
)

var textureFormatNames = []string{"undefined", "rgba8unorm", "rgba8unorm-srgb", "bgra8unorm", "bgra8unorm-srgb", "r32float", "rgba32float"}

func (tf TextureFormat) String() string {
	if tf < 0 || int(tf) >= len(textureFormatNames) {
		return "unknown"
	}
	return textureFormatNames[tf]
}

// Bytes returns the number of bytes per texel.
func (tf TextureFormat) Bytes() int {
	switch tf {
	case TextureFormatUndefined:
		return 0
	case TextureFormatRGBA32Float:
		return 16
	}
	return 4
}

// TextureUsage is a set of capability flags for a texture.
type TextureUsage uint32

const (
	TextureUsageCopySrc TextureUsage = 1 << iota
	TextureUsageCopyDst
	TextureUsageTextureBinding
	TextureUsageStorageBinding
	TextureUsageRenderAttachment

	TextureUsageNone TextureUsage = 0
)

// FilterMode is a sampler filter.
type FilterMode int32

const (
	FilterModeNearest FilterMode = iota
	FilterModeLinear
)

// AddressMode is a sampler address mode.
type AddressMode int32

const (
	AddressModeClampToEdge AddressMode = iota
	AddressModeRepeat
	AddressModeMirrorRepeat
)

// Color is an RGBA color in linear float components.
type Color struct {
	R, G, B, A float64
}

// LoadOp is what a render pass does with an attachment at its start.
type LoadOp int32

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
)

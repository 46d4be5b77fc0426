// Copyright (c) 2019, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"

	"github.com/moderngpu/mgpu/gpu/driver"
)

// Shader stages, for resource visibility.
const (
	VertexShader   = driver.ShaderStageVertex
	FragmentShader = driver.ShaderStageFragment
	ComputeShader  = driver.ShaderStageCompute
)

// Kinds are the kinds of resources that can be bound to a shader.
type Kinds int32

const (
	// Uniform is a small read-only uniform buffer.
	Uniform Kinds = iota

	// Storage is a read-write storage buffer.
	Storage

	// ReadOnlyStorage is a storage buffer the shader can only read.
	ReadOnlyStorage

	// TextureKind is a sampled texture.
	TextureKind

	// SamplerKind is a texture sampler.
	SamplerKind
)

// KindBindings maps Kinds to the driver binding type.
var KindBindings = map[Kinds]driver.BindingType{
	Uniform:         driver.BindingUniformBuffer,
	Storage:         driver.BindingStorageBuffer,
	ReadOnlyStorage: driver.BindingReadOnlyStorageBuffer,
	TextureKind:     driver.BindingTexture,
	SamplerKind:     driver.BindingSampler,
}

// BindingType returns the driver binding type for the kind.
func (k Kinds) BindingType() driver.BindingType {
	return KindBindings[k]
}

// IsBuffer returns whether the kind is a buffer kind.
func (k Kinds) IsBuffer() bool {
	return k <= ReadOnlyStorage
}

// RequiredUsage returns the buffer usage flag that a buffer
// of this kind must have.
func (k Kinds) RequiredUsage() driver.BufferUsage {
	switch k {
	case Uniform:
		return driver.BufferUsageUniform
	case Storage, ReadOnlyStorage:
		return driver.BufferUsageStorage
	}
	return driver.BufferUsageNone
}

func (k Kinds) String() string {
	return k.BindingType().String()
}

// Topologies are the different vertex topologies.
// The zero value is TriangleList, the default.
type Topologies int32

const (
	TriangleList Topologies = iota
	TriangleStrip
	PointList
	LineList
	LineStrip
)

// Primitive returns the driver topology.
func (tp Topologies) Primitive() driver.PrimitiveTopology {
	return DriverTopologies[tp]
}

func (tp Topologies) String() string {
	return tp.Primitive().String()
}

func (tp Topologies) MarshalText() ([]byte, error) {
	return []byte(tp.String()), nil
}

// UnmarshalText accepts the WebGPU topology names, such as triangle-list.
func (tp *Topologies) UnmarshalText(text []byte) error {
	for t := range DriverTopologies {
		if t.String() == string(text) {
			*tp = t
			return nil
		}
	}
	return fmt.Errorf("gpu.Topologies: invalid topology %q", text)
}

var DriverTopologies = map[Topologies]driver.PrimitiveTopology{
	PointList:     driver.PrimitiveTopologyPointList,
	LineList:      driver.PrimitiveTopologyLineList,
	LineStrip:     driver.PrimitiveTopologyLineStrip,
	TriangleList:  driver.PrimitiveTopologyTriangleList,
	TriangleStrip: driver.PrimitiveTopologyTriangleStrip,
}

// ReadPolicies are the behaviors of [OutputBuffer.Read] when another
// read of the same buffer is in flight.
type ReadPolicies int32

const (
	// ReadWait waits for the in-flight read to finish and then
	// performs a fresh read.
	ReadWait ReadPolicies = iota

	// ReadCached returns the last value read, without waiting.
	ReadCached
)

var readPolicyNames = []string{"wait", "cached"}

func (rp ReadPolicies) String() string {
	if rp < 0 || int(rp) >= len(readPolicyNames) {
		return "unknown"
	}
	return readPolicyNames[rp]
}

func (rp ReadPolicies) MarshalText() ([]byte, error) {
	return []byte(rp.String()), nil
}

func (rp *ReadPolicies) UnmarshalText(text []byte) error {
	for i, nm := range readPolicyNames {
		if nm == string(text) {
			*rp = ReadPolicies(i)
			return nil
		}
	}
	return fmt.Errorf("gpu.ReadPolicies: invalid policy %q", text)
}

// ReadStates are the states of an [OutputBuffer] readback.
type ReadStates int32

const (
	Idle ReadStates = iota
	Reading
)

func (rs ReadStates) String() string {
	if rs == Reading {
		return "Reading"
	}
	return "Idle"
}

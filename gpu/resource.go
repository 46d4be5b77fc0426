// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"

	"github.com/moderngpu/mgpu/gpu/driver"
)

// ResourceDescriptor says where and how a resource is bound.
type ResourceDescriptor struct {

	// Binding is the @binding number in the shader.
	Binding int

	// Group is the @group number in the shader.
	Group int

	// Visibility is the set of shader stages that can see the resource.
	Visibility driver.ShaderStage

	// Kind is the kind of binding.
	Kind Kinds

	// Usage is the buffer usage, for buffer kinds.
	Usage driver.BufferUsage
}

// Validate returns an error wrapping [ErrInvalidDescriptor] if the
// descriptor is not valid, including when Kind and Usage are not compatible.
func (rd *ResourceDescriptor) Validate() error {
	switch {
	case rd.Binding < 0 || rd.Group < 0:
		return fmt.Errorf("gpu.ResourceDescriptor: %w: negative binding %d or group %d", ErrInvalidDescriptor, rd.Binding, rd.Group)
	case rd.Visibility == driver.ShaderStageNone:
		return fmt.Errorf("gpu.ResourceDescriptor: %w: binding %d is not visible to any shader stage", ErrInvalidDescriptor, rd.Binding)
	case rd.Kind < Uniform || rd.Kind > SamplerKind:
		return fmt.Errorf("gpu.ResourceDescriptor: %w: invalid kind %d", ErrInvalidDescriptor, rd.Kind)
	}
	if !rd.Kind.IsBuffer() {
		return nil
	}
	if need := rd.Kind.RequiredUsage(); !rd.Usage.Has(need) {
		return fmt.Errorf("gpu.ResourceDescriptor: %w: %s binding %d requires %v usage, has %v", ErrInvalidDescriptor, rd.Kind, rd.Binding, need, rd.Usage)
	}
	return nil
}

func (rd *ResourceDescriptor) String() string {
	s := fmt.Sprintf("@group(%d) @binding(%d) %s visibility: %v", rd.Group, rd.Binding, rd.Kind, rd.Visibility)
	if rd.Kind.IsBuffer() {
		s += fmt.Sprintf(" usage: %v", rd.Usage)
	}
	return s
}

// layoutEntry returns the bind group layout entry for the descriptor.
func (rd *ResourceDescriptor) layoutEntry() driver.BindGroupLayoutEntry {
	return driver.BindGroupLayoutEntry{
		Binding:    uint32(rd.Binding),
		Visibility: rd.Visibility,
		Type:       rd.Kind.BindingType(),
	}
}

// Resource is a device resource that can be bound to a shader:
// one of the buffer types, [Texture] or [Sampler].
type Resource interface {
	// Descriptor returns the binding descriptor.
	Descriptor() ResourceDescriptor

	// bindEntry returns the bind group entry binding the device handle.
	bindEntry() driver.BindGroupEntry
}

// optGroup returns the optional group argument, default 0.
func optGroup(group []int) int {
	if len(group) > 0 {
		return group[0]
	}
	return 0
}

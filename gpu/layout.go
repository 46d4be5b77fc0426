// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"strings"

	"github.com/moderngpu/mgpu/gpu/driver"
)

// BindLayout is the bind group layout declaration and the matching
// bind group instantiation derived from an ordered list of resources.
// Entries are in the order of the resources, with binding numbers
// taken verbatim from their descriptors. All resources share one Group.
type BindLayout struct {

	// Label is used for the device objects made from the layout.
	Label string

	// Group is the @group index of all the resources.
	Group int

	// Entries are the layout entries, one per resource.
	Entries []driver.BindGroupLayoutEntry

	// GroupEntries are the bind group entries, one per resource,
	// binding the device handles.
	GroupEntries []driver.BindGroupEntry

	// descriptors of the resources, in order
	descriptors []ResourceDescriptor
}

// BuildLayout returns the [BindLayout] for the given resources. It is a
// pure function of the resources: calling it again on the same list gives
// a structurally identical layout. It returns an error wrapping
// [ErrLayoutMismatch] if a resource is nil, a (binding, group) pair is
// repeated, or the resources span more than one group.
func BuildLayout(label string, resources ...Resource) (*BindLayout, error) {
	bl := &BindLayout{Label: label}
	seen := make(map[[2]int]bool, len(resources))
	for i, r := range resources {
		if r == nil {
			return nil, fmt.Errorf("gpu.BuildLayout %q: %w: resource %d is nil", label, ErrLayoutMismatch, i)
		}
		d := r.Descriptor()
		key := [2]int{d.Group, d.Binding}
		if seen[key] {
			return nil, fmt.Errorf("gpu.BuildLayout %q: %w: duplicate @group(%d) @binding(%d)", label, ErrLayoutMismatch, d.Group, d.Binding)
		}
		seen[key] = true
		if i == 0 {
			bl.Group = d.Group
		} else if d.Group != bl.Group {
			return nil, fmt.Errorf("gpu.BuildLayout %q: %w: resource %d is in group %d, not %d", label, ErrLayoutMismatch, i, d.Group, bl.Group)
		}
		bl.Entries = append(bl.Entries, d.layoutEntry())
		bl.GroupEntries = append(bl.GroupEntries, r.bindEntry())
		bl.descriptors = append(bl.descriptors, d)
	}
	return bl, nil
}

// Match returns an error wrapping [ErrLayoutMismatch] unless the given
// resources have, in order, the same bindings, group, visibilities and
// kinds as the layout.
func (bl *BindLayout) Match(resources ...Resource) error {
	if len(resources) != len(bl.descriptors) {
		return fmt.Errorf("gpu.BindLayout %q Match: %w: %d resources for %d entries", bl.Label, ErrLayoutMismatch, len(resources), len(bl.descriptors))
	}
	for i, r := range resources {
		if r == nil {
			return fmt.Errorf("gpu.BindLayout %q Match: %w: resource %d is nil", bl.Label, ErrLayoutMismatch, i)
		}
		d, ld := r.Descriptor(), bl.descriptors[i]
		if d.Binding != ld.Binding || d.Group != ld.Group || d.Visibility != ld.Visibility || d.Kind != ld.Kind {
			return fmt.Errorf("gpu.BindLayout %q Match: %w: resource %d is %s, layout has %s", bl.Label, ErrLayoutMismatch, i, d.String(), ld.String())
		}
	}
	return nil
}

// withResources returns a copy of the layout whose group entries bind
// the given resources, which must [BindLayout.Match] it.
func (bl *BindLayout) withResources(resources ...Resource) (*BindLayout, error) {
	if err := bl.Match(resources...); err != nil {
		return nil, err
	}
	nl := *bl
	nl.GroupEntries = make([]driver.BindGroupEntry, len(resources))
	for i, r := range resources {
		nl.GroupEntries[i] = r.bindEntry()
	}
	return &nl, nil
}

// String returns a table of the layout entries.
func (bl *BindLayout) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "BindLayout: %s group: %d\n", bl.Label, bl.Group)
	for i := range bl.descriptors {
		fmt.Fprintf(&sb, "    %s\n", bl.descriptors[i].String())
	}
	return sb.String()
}

// createLayouts creates the bind group layouts of a pipeline using the
// layout: empty layouts for groups below Group, and the layout itself.
// An empty BindLayout gives no groups.
func (bl *BindLayout) createLayouts(dev driver.Device) ([]driver.BindGroupLayout, error) {
	if len(bl.Entries) == 0 {
		return nil, nil
	}
	lays := make([]driver.BindGroupLayout, 0, bl.Group+1)
	for gi := 0; gi <= bl.Group; gi++ {
		desc := &driver.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s group %d", bl.Label, gi)}
		if gi == bl.Group {
			desc.Entries = bl.Entries
		}
		lay, err := dev.CreateBindGroupLayout(desc)
		if err != nil {
			releaseAll(lays)
			return nil, err
		}
		lays = append(lays, lay)
	}
	return lays, nil
}

// releaseAll releases the given objects in reverse order.
func releaseAll[T driver.Releaser](rs []T) {
	for i := len(rs) - 1; i >= 0; i-- {
		rs[i].Release()
	}
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package softdrv

import (
	"fmt"
	"slices"

	"github.com/gogpu/naga"
)

// ShaderModule holds shader source. When the driver validates WGSL,
// it also holds the entry point names found by the front end.
type ShaderModule struct {
	label     string
	code      string
	entries   []string
	validated bool
}

// EntryPoints returns the entry point names found in the source,
// if it was validated.
func (sm *ShaderModule) EntryPoints() []string {
	return slices.Clone(sm.entries)
}

func (sm *ShaderModule) checkEntry(entry string) error {
	if entry == "" {
		return fmt.Errorf("empty entry point name")
	}
	if sm.validated && !slices.Contains(sm.entries, entry) {
		return fmt.Errorf("entry point %q not found in shader %q (have %v)", entry, sm.label, sm.entries)
	}
	return nil
}

func (sm *ShaderModule) Release() {}

// compileWGSL parses and lowers WGSL code to naga IR, returning the
// entry point names.
func compileWGSL(code string) ([]string, error) {
	ast, err := naga.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	ir, err := naga.Lower(ast)
	if err != nil {
		return nil, fmt.Errorf("lower: %w", err)
	}
	entries := make([]string, 0, len(ir.EntryPoints))
	for _, ep := range ir.EntryPoints {
		entries = append(entries, ep.Name)
	}
	return entries, nil
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"unsafe"
)

// ToBytes returns the bytes of the given slice of fixed-size values,
// such as []float32, sharing its memory.
func ToBytes[E any](s []E) []byte {
	if len(s) == 0 {
		return nil
	}
	var e E
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(e)))
}

// FromBytes returns a new slice of values decoded from the given
// bytes, whose length must be a multiple of the value size.
func FromBytes[E any](b []byte) ([]E, error) {
	var e E
	sz := int(unsafe.Sizeof(e))
	if sz == 0 || len(b)%sz != 0 {
		return nil, fmt.Errorf("gpu.FromBytes: %d bytes is not a multiple of element size %d", len(b), sz)
	}
	s := make([]E, len(b)/sz)
	if len(s) > 0 {
		copy(ToBytes(s), b)
	}
	return s, nil
}

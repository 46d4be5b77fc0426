// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import "github.com/moderngpu/mgpu/base/errors"

var (
	// ErrInitialization is returned when no adapter is available or
	// the device request is refused.
	ErrInitialization = errors.New("gpu: initialization failed")

	// ErrUninitializedContext is returned when a resource or kernel
	// is created from a Context that is not Ready.
	ErrUninitializedContext = errors.New("gpu: context is not initialized")

	// ErrCapacity is returned when data does not fit in a buffer.
	ErrCapacity = errors.New("gpu: data exceeds buffer capacity")

	// ErrShaderCompilation is returned when the backend rejects shader source.
	ErrShaderCompilation = errors.New("gpu: shader compilation failed")

	// ErrPipelineCreation is returned when the backend cannot create a
	// pipeline, for example for an unknown entry point.
	ErrPipelineCreation = errors.New("gpu: pipeline creation failed")

	// ErrLayoutMismatch is returned for resource lists that cannot
	// form a single bind layout, or that do not match a given layout.
	ErrLayoutMismatch = errors.New("gpu: bind layout mismatch")

	// ErrInvalidDescriptor is returned for resource descriptors whose
	// kind, usage or size are invalid.
	ErrInvalidDescriptor = errors.New("gpu: invalid resource descriptor")

	// ErrReadback is returned when mapping a buffer for reading fails.
	ErrReadback = errors.New("gpu: readback failed")

	// ErrReleased is returned when using something that has been released.
	ErrReleased = errors.New("gpu: use after release")
)

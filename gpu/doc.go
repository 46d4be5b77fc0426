// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package gpu is a small host-side layer over WebGPU for running
compute and render shaders.

A [Context] owns the adapter and device of a [driver.Driver]. Its
factory methods create buffers ([InputBuffer], [OutputBuffer],
[StorageBuffer], [UniformBuffer], [CustomBuffer]), textures and
samplers, each bound at a (@group, @binding) slot. [BuildLayout]
derives the bind group layout of an ordered list of resources, and
[ComputeKernel] and [RenderKernel] compile a WGSL shader into a
pipeline bound to one such layout.

Results are read back only through [OutputBuffer.Read], which copies
the device buffer to a staging buffer and maps it, observing all work
submitted before the call.

The driver is pluggable: wgpudrv runs on WebGPU, and softdrv is a
software driver used in tests.
*/
package gpu

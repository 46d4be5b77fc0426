// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !offscreen && ((darwin && !ios) || windows || (linux && !android) || dragonfly || openbsd)

package wgpudrv

import (
	"image"

	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/moderngpu/mgpu/base/errors"
)

// note: this file contains the glfw dependencies, for desktop platform builds.

// Init initializes glfw for windowed use.
// IMPORTANT: must be called on the main initial thread!
func Init() error {
	return errors.Log(glfw.Init())
}

// Terminate shuts down glfw: call as last thing before quitting.
// IMPORTANT: must be called on the main initial thread!
func Terminate() {
	glfw.Terminate()
}

// GLFWCreateWindow makes a new window with glfw and returns a [Surface]
// for it, along with functions to terminate and to poll events, which
// returns false when the window should close. The surface is resized
// along with the window; resize is called after that if non-nil.
func GLFWCreateWindow(drv *Driver, size image.Point, title string, resize func(size image.Point)) (surface *Surface, terminate func(), pollEvents func() bool, err error) {
	if err = Init(); err != nil {
		return
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(size.X, size.Y, title, nil, nil)
	if errors.Log(err) != nil {
		Terminate()
		return
	}
	surface = NewSurface(drv.Instance().CreateSurface(wgpuglfw.GetSurfaceDescriptor(window)), size)
	terminate = func() {
		surface.Release()
		window.Destroy()
		Terminate()
	}
	pollEvents = func() bool {
		if window.ShouldClose() {
			return false
		}
		glfw.PollEvents()
		return true
	}
	window.SetSizeCallback(func(w *glfw.Window, width, height int) {
		sz := image.Point{width, height}
		surface.Resized(sz)
		if resize != nil {
			resize(sz)
		}
	})
	return
}

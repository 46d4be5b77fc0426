// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !offscreen && ((darwin && !ios) || windows || (linux && !android) || dragonfly || openbsd)

package main

import (
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/gpu"
	"github.com/moderngpu/mgpu/gpu/driver/wgpudrv"
)

func init() {
	// must lock main thread for gpu!
	runtime.LockOSThread()
	commands["render"] = command{"draw a render shader in a window until it is closed", runRender}
}

func runRender(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	shader := fs.String("shader", "", "WGSL shader file with vertex and fragment entry points")
	vertices := fs.Uint("vertices", 3, "number of vertices to draw")
	width := fs.Int("width", 800, "window width")
	height := fs.Int("height", 600, "window height")
	fps := fs.Int("fps", 30, "frames per second")
	fs.StringVar(&cfg.Render.VertexEntry, "vs", cfg.Render.VertexEntry, "vertex entry point")
	fs.StringVar(&cfg.Render.FragmentEntry, "fs", cfg.Render.FragmentEntry, "fragment entry point")
	fs.TextVar(&cfg.Render.Topology, "topology", cfg.Render.Topology, "primitive topology")
	fs.Parse(args)
	if *shader == "" {
		return fmt.Errorf("-shader is required")
	}
	code, err := gpu.OpenShaderFS(os.DirFS(filepath.Dir(*shader)), filepath.Base(*shader))
	if err != nil {
		return err
	}

	cx, drv, release, err := newContext(cfg)
	if err != nil {
		return err
	}
	defer release()
	surface, terminate, pollEvents, err := wgpudrv.GLFWCreateWindow(drv, image.Point{*width, *height}, "mgpu "+filepath.Base(*shader), nil)
	if err != nil {
		return err
	}
	defer terminate()

	rk, err := gpu.NewRenderKernel(cx, surface, code, nil, &cfg.Render)
	if err != nil {
		return err
	}
	defer rk.Release()
	slog.Info("mgpu render", "format", rk.Format, "topology", rk.Config.Topology)

	ticker := time.NewTicker(time.Second / time.Duration(max(*fps, 1)))
	defer ticker.Stop()
	for range ticker.C {
		if !pollEvents() {
			return nil
		}
		if errors.Log(rk.Dispatch(uint32(*vertices))) != nil {
			return nil
		}
	}
	return nil
}

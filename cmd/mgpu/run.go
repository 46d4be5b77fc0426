// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/gpu"
)

// computeJob is a compute shader run: the shader reads the input at
// @binding(0) and writes an output of the same length at @binding(1).
type computeJob struct {
	shader     string
	entry      string
	input      []float32
	workgroups [3]uint32
}

func parseComputeFlags(cfg *Config, name string, args []string) (*computeJob, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	shader := fs.String("shader", "", "WGSL shader file")
	entry := fs.String("entry", cfg.Entry, "compute entry point")
	in := fs.String("in", "", "input values, comma separated")
	inFile := fs.String("infile", "", "file of input values, instead of -in")
	wg := fs.String("wg", "", "workgroups x,y,z (default: enough for the input at -threads)")
	threads := fs.Int("threads", cfg.Threads, "workgroup size along x")
	fs.Parse(args)

	if *shader == "" {
		return nil, fmt.Errorf("-shader is required")
	}
	src := *in
	if *inFile != "" {
		b, err := os.ReadFile(*inFile)
		if err != nil {
			return nil, err
		}
		src = string(b)
	}
	input, err := parseFloats(src)
	if err != nil {
		return nil, err
	}
	if len(input) == 0 {
		return nil, fmt.Errorf("no input values")
	}
	job := &computeJob{shader: *shader, entry: *entry, input: input}
	if *wg != "" {
		job.workgroups, err = parseWorkgroups(*wg)
		if err != nil {
			return nil, err
		}
	} else {
		job.workgroups = gpu.NumWorkgroups1D(len(input), *threads)
	}
	return job, nil
}

// run compiles and dispatches the shader, returning the output values.
func (job *computeJob) run(cx *gpu.Context) ([]float32, error) {
	code, err := gpu.OpenShaderFS(os.DirFS(filepath.Dir(job.shader)), filepath.Base(job.shader))
	if err != nil {
		return nil, err
	}
	in, err := cx.NewInputBuffer(gpu.ToBytes(job.input), 0)
	if err != nil {
		return nil, err
	}
	defer in.Release()
	out, err := cx.NewOutputBuffer(gpu.ToBytes(make([]float32, len(job.input))), 1)
	if err != nil {
		return nil, err
	}
	defer out.Release()
	ck, err := gpu.NewComputeKernel(cx, code, []gpu.Resource{in, out}, job.entry)
	if err != nil {
		return nil, err
	}
	defer ck.Release()
	st := time.Now()
	if err := ck.Dispatch(job.workgroups); err != nil {
		return nil, err
	}
	vals, err := gpu.ReadAs[float32](out)
	slog.Info("mgpu run", "shader", job.shader, "workgroups", job.workgroups, "time", time.Since(st))
	return vals, err
}

func printValues(w io.Writer, vals []float32) {
	for i, v := range vals {
		if i > 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprint(w, v)
	}
	fmt.Fprintln(w)
}

func runRun(cfg *Config, args []string) error {
	job, err := parseComputeFlags(cfg, "run", args)
	if err != nil {
		return err
	}
	cx, _, release, err := newContext(cfg)
	if err != nil {
		return err
	}
	defer release()
	vals, err := job.run(cx)
	if err != nil {
		return err
	}
	printValues(os.Stdout, vals)
	return nil
}

func runWatch(cfg *Config, args []string) error {
	job, err := parseComputeFlags(cfg, "watch", args)
	if err != nil {
		return err
	}
	cx, _, release, err := newContext(cfg)
	if err != nil {
		return err
	}
	defer release()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// editors often replace files, so the directory is watched
	if err := watcher.Add(filepath.Dir(job.shader)); err != nil {
		return err
	}
	target := filepath.Clean(job.shader)
	rerun := func() {
		vals, err := job.run(cx)
		if errors.Log(err) == nil {
			printValues(os.Stdout, vals)
		}
	}
	rerun()
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			slog.Info("mgpu watch: changed", "file", event.Name)
			rerun()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			errors.Log(err)
		}
	}
}

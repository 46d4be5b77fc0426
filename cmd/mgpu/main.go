// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command mgpu inspects the GPU and runs WGSL compute and render
// shaders through the gpu package.
//
//	mgpu [-v|-vv|-q] [-config file] <command> [flags]
//
// Commands are config, info, run, watch and, on desktop platforms, render.
// Defaults are read from ~/.mgpu.toml if it exists.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/moderngpu/mgpu/base/errors"
	"github.com/moderngpu/mgpu/base/iox/tomlx"
	"github.com/moderngpu/mgpu/base/reflectx"
	"github.com/moderngpu/mgpu/gpu"
	"github.com/moderngpu/mgpu/gpu/driver/wgpudrv"
	"github.com/moderngpu/mgpu/logx"
)

// Config is the configuration of the mgpu command.
type Config struct {

	// GPU has the options for the gpu context.
	GPU gpu.Options

	// Entry is the compute entry point.
	Entry string `default:"main"`

	// Threads is the workgroup size of compute shaders along x,
	// used to compute the number of workgroups.
	Threads int `default:"64"`

	// Render has the entry points and topology for render.
	Render gpu.RenderConfig
}

// command is a subcommand of mgpu.
type command struct {
	doc string
	run func(cfg *Config, args []string) error
}

var commands = map[string]command{
	"config": {"print the effective config as TOML, or save it", runConfig},
	"info":   {"print the adapter info", runInfo},
	"run":    {"run a compute shader on input values and print the output", runRun},
	"watch":  {"run a compute shader again every time its file changes", runWatch},
}

// ConfigFile is the default config file.
const ConfigFile = "~/.mgpu.toml"

// openConfig returns the default config overridden by the given
// config file; a missing default file is not an error.
func openConfig(file string) (*Config, error) {
	cfg := &Config{}
	if err := reflectx.SetFromDefaultTags(cfg); err != nil {
		return nil, err
	}
	explicit := file != ""
	if !explicit {
		file = ConfigFile
	}
	path, err := homedir.Expand(file)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	return cfg, tomlx.Open(cfg, path)
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		w := fs.Output()
		fmt.Fprintf(w, "usage: mgpu [flags] <command> [command flags]\n\ncommands:\n")
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].doc)
		}
		fmt.Fprintf(w, "\nflags:\n")
		fs.PrintDefaults()
	}
}

func main() {
	fs := flag.NewFlagSet("mgpu", flag.ExitOnError)
	vv := fs.Bool("vv", false, "log debug messages")
	v := fs.Bool("v", false, "log info messages")
	q := fs.Bool("q", false, "only log errors")
	file := fs.String("config", "", "config file (default "+ConfigFile+")")
	fs.Usage = usage(fs)
	fs.Parse(os.Args[1:])

	if *vv || *v || *q {
		logx.UserLevel = logx.LevelFromFlags(*vv, *v, *q)
	}
	logx.SetDefaultLogger()
	if *vv {
		gpu.Debug = true
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "mgpu: unknown command %q\n", args[0])
		fs.Usage()
		os.Exit(2)
	}
	cfg, err := openConfig(*file)
	if err != nil {
		slog.Error("mgpu: config", "err", err)
		os.Exit(1)
	}
	if err := cmd.run(cfg, args[1:]); err != nil {
		slog.Error("mgpu "+args[0], "err", err)
		os.Exit(1)
	}
}

// newContext returns an initialized context on the WebGPU driver,
// and a function to release it.
func newContext(cfg *Config) (*gpu.Context, *wgpudrv.Driver, func(), error) {
	drv := wgpudrv.New()
	cx := gpu.NewContext(drv, &cfg.GPU)
	if err := cx.Init(context.Background()); err != nil {
		drv.Release()
		return nil, nil, nil, err
	}
	return cx, drv, func() {
		cx.Release()
		drv.Release()
	}, nil
}

// parseFloats parses a comma or space separated list of numbers.
func parseFloats(s string) ([]float32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' })
	vals := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		vals[i] = float32(v)
	}
	return vals, nil
}

// parseWorkgroups parses x[,y[,z]] workgroup counts.
func parseWorkgroups(s string) ([3]uint32, error) {
	var wg [3]uint32
	fields := strings.Split(s, ",")
	if len(fields) > 3 {
		return wg, fmt.Errorf("workgroups %q: more than 3 axes", s)
	}
	for i, f := range fields {
		n, err := strconv.ParseUint(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return wg, fmt.Errorf("workgroups %q: %w", s, err)
		}
		wg[i] = uint32(n)
	}
	return wg, nil
}

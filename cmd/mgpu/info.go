// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/moderngpu/mgpu/gpu"
	"github.com/moderngpu/mgpu/gpu/driver"
	"github.com/muesli/termenv"
)

func runInfo(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)
	cx, _, release, err := newContext(cfg)
	if err != nil {
		return err
	}
	defer release()
	printInfo(os.Stdout, cx.AdapterInfo(), &cfg.GPU)
	return nil
}

// printInfo writes the adapter info and options, with bold labels
// on a terminal.
func printInfo(w io.Writer, info driver.AdapterInfo, opts *gpu.Options) {
	out := termenv.NewOutput(w)
	line := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", out.String(fmt.Sprintf("%-10s", label+":")).Bold(), value)
	}
	line("Adapter", info.Name)
	line("Vendor", info.Vendor)
	line("Backend", info.Backend)
	line("Type", info.Type)
	line("Driver", info.Driver)
	line("Power", opts.PowerPreference.String())
	line("Read", opts.ReadPolicy.String())
}

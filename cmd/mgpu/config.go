// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/moderngpu/mgpu/base/iox/tomlx"
)

// runConfig prints the effective config as TOML, or saves it.
func runConfig(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.String("save", "", "save the config to this file (\"default\" for "+ConfigFile+")")
	fs.Parse(args)
	if *save == "" {
		return writeConfig(os.Stdout, cfg)
	}
	return saveConfig(cfg, *save)
}

func writeConfig(w io.Writer, cfg *Config) error {
	return tomlx.Write(cfg, w)
}

func saveConfig(cfg *Config, file string) error {
	if file == "default" {
		file = ConfigFile
	}
	path, err := homedir.Expand(file)
	if err != nil {
		return err
	}
	slog.Info("mgpu config: saving", "file", path)
	return tomlx.Save(cfg, path)
}

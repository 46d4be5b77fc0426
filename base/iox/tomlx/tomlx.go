// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tomlx provides functions for loading and saving TOML files.
package tomlx

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Open reads the given object from the given filename using TOML encoding.
func Open(v any, filename string) error {
	fp, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	return Read(v, bufio.NewReader(fp))
}

// OpenFiles reads the given object from the given filenames using TOML encoding,
// in order, so that later files override settings from earlier ones.
func OpenFiles(v any, filenames ...string) error {
	var errs []error
	for _, fn := range filenames {
		err := Open(v, fn)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Read reads the given object from the given reader, using TOML encoding.
func Read(v any, reader io.Reader) error {
	return toml.NewDecoder(reader).Decode(v)
}

// Save writes the given object to the given filename using TOML encoding.
func Save(v any, filename string) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	bw := bufio.NewWriter(fp)
	err = Write(v, bw)
	if err != nil {
		return err
	}
	return bw.Flush()
}

// Write writes the given object using TOML encoding.
func Write(v any, writer io.Writer) error {
	return toml.NewEncoder(writer).Encode(v)
}

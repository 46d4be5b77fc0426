// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors provides a set of error helper functions that extend
// the standard library errors package. It re-exports the standard
// functions so that it can be used as a drop-in replacement.
package errors

import (
	"errors"
	"log/slog"
	"runtime"
	"strconv"
)

// Log takes the given error and logs it if it is non-nil.
// The intended usage is:
//
//	errors.Log(MyFunc(v))
//	// or
//	return errors.Log(MyFunc(v))
//	// or
//	if errors.Log(err) != nil { return err }
func Log(err error) error {
	if err != nil {
		slog.Error(err.Error() + " | " + CallerInfo())
	}
	return err
}

// CallerInfo returns string information about the caller
// of the function that called CallerInfo.
func CallerInfo() string {
	pc, file, line, _ := runtime.Caller(2)
	return runtime.FuncForPC(pc).Name() + " " + file + ":" + strconv.Itoa(line)
}

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// As is [errors.As].
func As(err error, target any) bool { return errors.As(err, target) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

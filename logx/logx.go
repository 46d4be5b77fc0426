// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logx provides leveled, colored logging on top of log/slog.
package logx

import (
	"log/slog"
	"os"
)

// UserLevel is the verbosity [slog.Level] that the user has selected for
// what logging and printing messages should be shown. Messages at
// levels at or above this level will be shown. It defaults to
// [slog.LevelInfo], or [slog.LevelDebug] with the debug build tag
// and [slog.LevelWarn] with the release build tag.
var UserLevel = defaultUserLevel

// LevelFromFlags returns the [slog.Level] object corresponding to the given
// user flag options. The flags correspond to the following values:
//   - vv: [slog.LevelDebug]
//   - v: [slog.LevelInfo]
//   - q: [slog.LevelError]
//   - (default: [slog.LevelWarn])
//
// The flags are evaluated in that order, so, for example, if both
// vv and q are specified, it will still return [slog.LevelDebug].
func LevelFromFlags(vv, v, q bool) slog.Level {
	switch {
	case vv:
		return slog.LevelDebug
	case v:
		return slog.LevelInfo
	case q:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// SetDefaultLogger sets the default logger to be a [Handler] writing
// to os.Stderr at [UserLevel].
func SetDefaultLogger() {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, UserLevel)))
}

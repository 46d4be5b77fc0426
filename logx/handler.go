// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/muesli/termenv"
)

// Handler is a [slog.Handler] that writes one line per record,
// with the level prefix colored according to the terminal profile
// of the output. Colors are omitted when the output is not a terminal.
type Handler struct {
	out    *termenv.Output
	level  slog.Leveler
	attrs  string
	groups []string
	mu     *sync.Mutex
}

// NewHandler returns a new [Handler] writing to w, showing records
// at or above the given level.
func NewHandler(w io.Writer, level slog.Leveler) *Handler {
	return &Handler{out: termenv.NewOutput(w), level: level, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(h.levelString(r.Level))
	sb.WriteByte(' ')
	sb.WriteString(r.Message)
	sb.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&sb, a)
		return true
	})
	sb.WriteByte('\n')
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, sb.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	var sb strings.Builder
	sb.WriteString(h.attrs)
	for _, a := range attrs {
		nh.appendAttr(&sb, a)
	}
	nh.attrs = sb.String()
	return &nh
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.groups = append(append([]string{}, h.groups...), name)
	return &nh
}

func (h *Handler) appendAttr(sb *strings.Builder, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	fmt.Fprintf(sb, " %s=%v", h.out.String(key).Faint(), a.Value.Any())
}

func (h *Handler) levelString(l slog.Level) string {
	s := h.out.String(l.String())
	switch {
	case l >= slog.LevelError:
		s = s.Foreground(h.out.Color("1")).Bold()
	case l >= slog.LevelWarn:
		s = s.Foreground(h.out.Color("3")).Bold()
	case l >= slog.LevelInfo:
		s = s.Foreground(h.out.Color("4"))
	default:
		s = s.Faint()
	}
	return s.String()
}

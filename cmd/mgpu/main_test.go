// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/moderngpu/mgpu/gpu"
	"github.com/moderngpu/mgpu/gpu/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloats(t *testing.T) {
	v, err := parseFloats("1, 2.5 -3\n4")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2.5, -3, 4}, v)
	v, err = parseFloats("")
	require.NoError(t, err)
	assert.Empty(t, v)
	_, err = parseFloats("1,x")
	assert.Error(t, err)
}

func TestParseWorkgroups(t *testing.T) {
	wg, err := parseWorkgroups("4")
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{4, 0, 0}, wg)
	wg, err = parseWorkgroups("4, 2,1")
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{4, 2, 1}, wg)
	_, err = parseWorkgroups("1,2,3,4")
	assert.Error(t, err)
	_, err = parseWorkgroups("-1")
	assert.Error(t, err)
}

func TestOpenConfig(t *testing.T) {
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())
	cfg, err := openConfig("")
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Entry)
	assert.Equal(t, 64, cfg.Threads)
	assert.Equal(t, "mgpu", cfg.GPU.DeviceLabel)
	assert.Equal(t, "vs_main", cfg.Render.VertexEntry)
	assert.Equal(t, gpu.TriangleList, cfg.Render.Topology)

	fn := filepath.Join(t.TempDir(), "mgpu.toml")
	data := "Threads = 128\n\n[GPU]\nReadPolicy = \"cached\"\n\n[Render]\nTopology = \"line-list\"\n"
	require.NoError(t, os.WriteFile(fn, []byte(data), 0666))
	cfg, err = openConfig(fn)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Threads)
	assert.Equal(t, gpu.ReadCached, cfg.GPU.ReadPolicy)
	assert.Equal(t, gpu.LineList, cfg.Render.Topology)
	assert.Equal(t, "main", cfg.Entry)

	_, err = openConfig(filepath.Join(t.TempDir(), "none.toml"))
	assert.Error(t, err)
}

func TestSaveConfig(t *testing.T) {
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())
	cfg, err := openConfig("")
	require.NoError(t, err)
	cfg.Threads = 32
	cfg.GPU.ReadPolicy = gpu.ReadCached

	var b bytes.Buffer
	require.NoError(t, writeConfig(&b, cfg))
	assert.Contains(t, b.String(), "Threads = 32")
	assert.Contains(t, b.String(), "cached")

	require.NoError(t, saveConfig(cfg, "default"))
	again, err := openConfig("")
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestPrintInfo(t *testing.T) {
	var b bytes.Buffer
	info := driver.AdapterInfo{Name: "soft", Vendor: "mgpu", Backend: "Software"}
	printInfo(&b, info, gpu.NewOptions())
	s := b.String()
	assert.Contains(t, s, "Adapter:   soft\n")
	assert.Contains(t, s, "Backend:   Software\n")
	assert.Contains(t, s, "Power:     high-performance\n")
	assert.Contains(t, s, "Read:      wait\n")

	b.Reset()
	printValues(&b, []float32{2, 4.5})
	assert.Equal(t, "2 4.5\n", b.String())
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/moderngpu/mgpu/gpu/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	o := NewOptions()
	assert.Equal(t, driver.PowerPreferenceHighPerformance, o.PowerPreference)
	assert.Equal(t, "mgpu", o.DeviceLabel)
	assert.Equal(t, ReadWait, o.ReadPolicy)
	assert.False(t, o.Debug)
}

func TestOpenOptions(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "mgpu.toml")
	err := os.WriteFile(fn, []byte("PowerPreference = \"low-power\"\nReadPolicy = \"cached\"\nDebug = true\n"), 0666)
	require.NoError(t, err)

	o, err := OpenOptions(fn)
	require.NoError(t, err)
	assert.Equal(t, driver.PowerPreferenceLowPower, o.PowerPreference)
	assert.Equal(t, ReadCached, o.ReadPolicy)
	assert.Equal(t, "mgpu", o.DeviceLabel)
	assert.True(t, o.Debug)

	o, err = OpenOptions(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
	assert.Equal(t, "mgpu", o.DeviceLabel)

	cx, _ := newTestContext(t, nil)
	cx.Options.ReadPolicy = ReadCached
	out, err := cx.NewOutputBuffer([]byte{1, 2, 3, 4}, 0)
	require.NoError(t, err)
	assert.Equal(t, ReadCached, out.ReadPolicy())
}

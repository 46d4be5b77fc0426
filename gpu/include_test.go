// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncludeFS(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/main.wgsl":   {Data: []byte("#include \"common.wgsl\"\n#include \"missing.wgsl\"\nfn main() {}\n")},
		"shaders/common.wgsl": {Data: []byte("const scale = 2.0;\nconst bias = 1.0;\n")},
	}
	src, err := OpenShaderFS(fsys, "shaders/main.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "// #include \"common.wgsl\"\nconst scale = 2.0;\nconst bias = 1.0;\n#include \"missing.wgsl\"\nfn main() {}\n", src)

	_, err = OpenShaderFS(fsys, "shaders/none.wgsl")
	assert.Error(t, err)
}

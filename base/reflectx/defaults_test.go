// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reflectx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mode int

func (m *mode) UnmarshalText(b []byte) error {
	*m = mode(len(strings.TrimSpace(string(b))))
	return nil
}

type inner struct {
	Count uint32 `default:"7"`
}

type settings struct {
	Name    string        `default:"device"`
	Debug   bool          `default:"true"`
	Level   int           `default:"-3"`
	Scale   float32       `default:"0.5"`
	Timeout time.Duration `default:"2s"`
	Mode    mode          `default:"abcd"`
	Inner   inner
	NoTag   int
	private int
}

func TestSetFromDefaultTags(t *testing.T) {
	s := &settings{NoTag: 9}
	assert.NoError(t, SetFromDefaultTags(s))
	assert.Equal(t, "device", s.Name)
	assert.True(t, s.Debug)
	assert.Equal(t, -3, s.Level)
	assert.Equal(t, float32(0.5), s.Scale)
	assert.Equal(t, 2*time.Second, s.Timeout)
	assert.Equal(t, mode(4), s.Mode)
	assert.Equal(t, uint32(7), s.Inner.Count)
	assert.Equal(t, 9, s.NoTag)
}

func TestSetFromDefaultTagsErrors(t *testing.T) {
	assert.Error(t, SetFromDefaultTags(settings{}))
	assert.Error(t, SetFromDefaultTags((*settings)(nil)))

	type bad struct {
		N int `default:"many"`
	}
	err := SetFromDefaultTags(&bad{})
	assert.ErrorContains(t, err, "field N")
}

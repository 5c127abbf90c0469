// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.Defaults()
	assert.Equal(t, 1920, cfg.Width)
	assert.Equal(t, 1080, cfg.Height)
	assert.Equal(t, 3, cfg.Frames)
	assert.True(t, cfg.Validation)
}

func TestConfigLoadMissing(t *testing.T) {
	var cfg Config
	err := cfg.Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.NoError(t, err)
	assert.Equal(t, 1920, cfg.Width)
}

func TestConfigLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gargantua.toml")
	err := os.WriteFile(path, []byte(`
width = 800
height = 600
validation = false
`), 0o644)
	assert.NoError(t, err)

	var cfg Config
	err = cfg.Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
	assert.False(t, cfg.Validation)
	// untouched keys keep their defaults
	assert.Equal(t, "Gargantua - Black Hole Raytracer", cfg.Title)
	assert.Equal(t, 3, cfg.Frames)
}

func TestConfigLoadClampsFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gargantua.toml")
	err := os.WriteFile(path, []byte("frames = 0"), 0o644)
	assert.NoError(t, err)

	var cfg Config
	assert.NoError(t, cfg.Load(path))
	assert.Equal(t, 1, cfg.Frames, "slot cycling needs at least one frame in flight")

	err = os.WriteFile(path, []byte("frames = -2"), 0o644)
	assert.NoError(t, err)
	assert.NoError(t, cfg.Load(path))
	assert.Equal(t, 1, cfg.Frames)
}

func TestConfigLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	err := os.WriteFile(path, []byte("width = {"), 0o644)
	assert.NoError(t, err)

	var cfg Config
	assert.Error(t, cfg.Load(path))
}

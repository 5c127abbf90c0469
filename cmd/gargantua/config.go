// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the runtime configuration, loadable from a TOML file.
type Config struct {
	Width      int    `toml:"width" desc:"initial window width"`
	Height     int    `toml:"height" desc:"initial window height"`
	Title      string `toml:"title" desc:"window title"`
	Shader     string `toml:"shader" desc:"path to the compiled compute shader"`
	Validation bool   `toml:"validation" desc:"enable vulkan validation layers"`
	Frames     int    `toml:"frames" desc:"frames in flight"`
}

// Defaults sets the standard configuration.
func (cf *Config) Defaults() {
	cf.Width = 1920
	cf.Height = 1080
	cf.Title = "Gargantua - Black Hole Raytracer"
	cf.Shader = "shaders/gargantua.comp.spv"
	cf.Validation = true
	cf.Frames = 3
}

// Load reads configuration from the given TOML file over the
// defaults.  A missing file is not an error; a malformed one is.
func (cf *Config) Load(path string) error {
	cf.Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, cf); err != nil {
		return err
	}
	// dispatch cycles slots modulo this count
	if cf.Frames < 1 {
		cf.Frames = 1
	}
	return nil
}

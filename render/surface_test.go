// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func capsWith(cur, min, max uint32) vk.SurfaceCapabilities {
	return vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: cur, Height: cur},
		MinImageExtent: vk.Extent2D{Width: min, Height: min},
		MaxImageExtent: vk.Extent2D{Width: max, Height: max},
	}
}

func TestChooseExtent(t *testing.T) {
	// surface dictates the extent when it reports a definite one
	w, h := ChooseExtent(capsWith(1280, 1, 4096), 1920, 1080)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 1280, h)

	// undefined current extent: framebuffer size, clamped
	caps := capsWith(vk.MaxUint32, 200, 1000)
	w, h = ChooseExtent(caps, 1920, 1080)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 1000, h)

	w, h = ChooseExtent(caps, 50, 500)
	assert.Equal(t, 200, w)
	assert.Equal(t, 500, h)

	// degenerate zero framebuffer clamps up to the minimum
	w, h = ChooseExtent(caps, 0, 0)
	assert.Equal(t, 200, w)
	assert.Equal(t, 200, h)
}

func TestChooseFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	got := ChooseFormat([]vk.SurfaceFormat{other, preferred})
	assert.Equal(t, preferred, got)

	// right format in the wrong color space does not count
	wrongSpace := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpace(1)}
	got = ChooseFormat([]vk.SurfaceFormat{other, wrongSpace})
	assert.Equal(t, other, got)
}

func TestChoosePresentMode(t *testing.T) {
	got := ChoosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox})
	assert.Equal(t, vk.PresentModeMailbox, got)

	got = ChoosePresentMode([]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifoRelaxed})
	assert.Equal(t, vk.PresentModeFifo, got)
}

// TestStaleness pins the result classification: out-of-date always
// forces recreation; suboptimal is good enough to keep an acquired
// image but triggers recreation on the present path.
func TestStaleness(t *testing.T) {
	assert.True(t, IsStale(vk.ErrorOutOfDate))
	assert.False(t, IsStale(vk.Suboptimal))
	assert.False(t, IsStale(vk.Success))

	assert.True(t, IsStaleOrSuboptimal(vk.ErrorOutOfDate))
	assert.True(t, IsStaleOrSuboptimal(vk.Suboptimal))
	assert.False(t, IsStaleOrSuboptimal(vk.Success))
	assert.False(t, IsStaleOrSuboptimal(vk.ErrorDeviceLost))
}

// TestAcquireUsable pins the decision AcquireNextImage applies after
// its single recreate-and-retry: suboptimal still yields a usable
// index, anything else non-success is fatal.
func TestAcquireUsable(t *testing.T) {
	assert.True(t, AcquireUsable(vk.Success))
	assert.True(t, AcquireUsable(vk.Suboptimal))
	assert.False(t, AcquireUsable(vk.ErrorOutOfDate))
	assert.False(t, AcquireUsable(vk.ErrorDeviceLost))
	assert.False(t, AcquireUsable(vk.ErrorSurfaceLost))
}

func TestResultErrors(t *testing.T) {
	assert.NoError(t, NewError(vk.Success))
	assert.Error(t, NewError(vk.ErrorDeviceLost))
	assert.False(t, IsError(vk.Success))
	assert.True(t, IsError(vk.ErrorOutOfDate))
}

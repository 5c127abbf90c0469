// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func memProps(flags ...vk.MemoryPropertyFlagBits) vk.PhysicalDeviceMemoryProperties {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = uint32(len(flags))
	for i, f := range flags {
		props.MemoryTypes[i].PropertyFlags = vk.MemoryPropertyFlags(f)
	}
	return props
}

func TestFindMemoryType(t *testing.T) {
	props := memProps(
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
		vk.MemoryPropertyDeviceLocalBit,
		vk.MemoryPropertyDeviceLocalBit|vk.MemoryPropertyHostVisibleBit,
	)

	// first device-local type compatible with all type bits
	idx, ok := FindMemoryType(props, 0b111, vk.MemoryPropertyDeviceLocalBit)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), idx)

	// type bits exclude index 1, so the combined type at 2 is next
	idx, ok = FindMemoryType(props, 0b101, vk.MemoryPropertyDeviceLocalBit)
	assert.True(t, ok)
	assert.Equal(t, uint32(2), idx)

	// all wanted bits must be present, not just some
	_, ok = FindMemoryType(props, 0b111,
		vk.MemoryPropertyDeviceLocalBit|vk.MemoryPropertyLazilyAllocatedBit)
	assert.False(t, ok)

	// no candidate at all
	_, ok = FindMemoryType(props, 0, vk.MemoryPropertyDeviceLocalBit)
	assert.False(t, ok)
}

func TestTargetFormat(t *testing.T) {
	// the shader declares rgba8; the image must match it exactly
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, TargetFormat)
}

func TestTargetDestroyIdempotent(t *testing.T) {
	var tg Target
	tg.Destroy()
	tg.Destroy()
	assert.Nil(t, tg.Dev)
}

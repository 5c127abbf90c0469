// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"image"

	vk "github.com/goki/vulkan"
)

// ImageFormat describes the size and pixel format of an image.
type ImageFormat struct {
	Size   image.Point `desc:"size of image in pixels"`
	Format vk.Format   `desc:"pixel format"`
}

func (im *ImageFormat) Set(w, h int, ft vk.Format) {
	im.Size = image.Point{X: w, Y: h}
	im.Format = ft
}

// Size32 returns the size as uint32 values.
func (im *ImageFormat) Size32() (width, height uint32) {
	return uint32(im.Size.X), uint32(im.Size.Y)
}

// Bounds returns the rectangle covering the full image.
func (im *ImageFormat) Bounds() image.Rectangle {
	return image.Rectangle{Max: im.Size}
}

// FullColorRange is the subresource range covering the single color
// mip level / layer of every image this engine touches.
func FullColorRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}
}

// FullColorLayers is the corresponding subresource layer selection,
// for transfer operations.
func FullColorLayers() vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LayerCount: 1,
	}
}

// MakeStdView makes a standard 2D color view for the given image.
func MakeStdView(dev vk.Device, img vk.Image, format vk.Format) vk.ImageView {
	var view vk.ImageView
	ret := vk.CreateImageView(dev, &vk.ImageViewCreateInfo{
		SType:  vk.StructureTypeImageViewCreateInfo,
		Image:  img,
		Format: format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: FullColorRange(),
		ViewType:         vk.ImageViewType2d,
	}, nil, &view)
	IfPanic(NewError(ret))
	return view
}

// FindMemoryType finds a memory type satisfying both the image's
// reported type bits and the wanted property flags (all of them).
// Returns false if no such type exists.
func FindMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		if typeBits&(uint32(1)<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		flags := props.MemoryTypes[i].PropertyFlags
		if flags&vk.MemoryPropertyFlags(want) == vk.MemoryPropertyFlags(want) {
			return i, true
		}
	}
	return 0, false
}

// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"errors"
	"image"

	vk "github.com/goki/vulkan"
)

// TargetFormat is the pixel format of the offscreen compute target.
// It matches the rgba8 layout the shader writes through imageStore.
const TargetFormat = vk.FormatR8g8b8a8Unorm

// Target is the offscreen storage image the compute shader renders
// into.  It lives in device-local memory, is bound as a storage
// image in the General layout, and is blitted from as a transfer
// source every frame.  It is sized to the swapchain extent and
// recreated whenever that changes.
type Target struct {
	GPU *GPU    `desc:"gpu device"`
	Dev *Device `desc:"injected device context"`

	Format ImageFormat     `desc:"format and current size"`
	Image  vk.Image        `desc:"image handle"`
	Mem    vk.DeviceMemory `desc:"device-local backing memory"`
	View   vk.ImageView    `desc:"full-image view for descriptor binding"`
}

// Config allocates the storage image at the given size, binds
// device-local memory, creates its view, and transitions it into the
// General layout with a synchronously waited submission so that it
// is bindable before the first frame is recorded.
func (tg *Target) Config(gp *GPU, dv *Device, size image.Point) (err error) {
	defer CheckErr(&err)
	tg.GPU = gp
	tg.Dev = dv
	tg.Format.Set(size.X, size.Y, TargetFormat)

	dev := dv.Device
	var img vk.Image
	ret := vk.CreateImage(dev, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        TargetFormat,
		Extent:        vk.Extent3D{Width: uint32(size.X), Height: uint32(size.Y), Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageStorageBit | vk.ImageUsageTransferSrcBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img)
	IfPanic(NewError(ret))
	tg.Image = img

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(dev, tg.Image, &memReqs)
	memReqs.Deref()

	typeIndex, ok := FindMemoryType(gp.MemoryProps, memReqs.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		IfPanic(errors.New("render.Target: no device-local memory type for storage image"))
	}
	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	IfPanic(NewError(ret))
	tg.Mem = mem
	ret = vk.BindImageMemory(dev, tg.Image, tg.Mem, 0)
	IfPanic(NewError(ret))

	tg.View = MakeStdView(dev, tg.Image, TargetFormat)

	// the shader can only bind it once it is in General
	OneTimeSubmitWait(dev, &dv.ComputePool, dv.ComputeQueue, func(cmd vk.CommandBuffer) {
		barrier := ComputeWriteBarrier(tg.Image)
		vk.CmdPipelineBarrier(cmd,
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	})
	return nil
}

// Recreate destroys the image and rebuilds it at the given size.
// The caller is responsible for device idleness.
func (tg *Target) Recreate(size image.Point) error {
	gp, dv := tg.GPU, tg.Dev
	tg.Destroy()
	return tg.Config(gp, dv, size)
}

// Destroy releases the view, image, and memory.  It is safe to call
// repeatedly and on a zero-valued target.
func (tg *Target) Destroy() {
	if tg.Dev == nil {
		return
	}
	dev := tg.Dev.Device
	if tg.View != vk.NullImageView {
		vk.DestroyImageView(dev, tg.View, nil)
		tg.View = vk.NullImageView
	}
	if tg.Image != vk.NullImage {
		vk.DestroyImage(dev, tg.Image, nil)
		tg.Image = vk.NullImage
	}
	if tg.Mem != vk.NullDeviceMemory {
		vk.FreeMemory(dev, tg.Mem, nil)
		tg.Mem = vk.NullDeviceMemory
	}
	tg.GPU = nil
	tg.Dev = nil
}

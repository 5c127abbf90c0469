// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"image"

	vk "github.com/goki/vulkan"
	"goki.dev/mat32/v2"
)

// TileEdge is the fixed workgroup tile size of the compute program,
// along both axes.  The host dispatches enough tiles to cover the
// target extent; partial tiles are clipped inside the program.
const TileEdge = 16

// Workgroups returns the number of tiles needed to cover the given
// extent, rounding up on both axes.
func Workgroups(size image.Point) (nx, ny int) {
	nx = (size.X + TileEdge - 1) / TileEdge
	ny = (size.Y + TileEdge - 1) / TileEdge
	return
}

// Payload is the per-dispatch record pushed to the compute program.
// Its layout is part of the host / shader contract: four consecutive
// 32-bit floats (pan x, pan y, zoom, elapsed time).  It has no
// identity beyond the current frame.
type Payload struct {
	Pan  mat32.Vec2 `desc:"view pan offset in pixels"`
	Zoom float32    `desc:"zoom factor -- 1 = unzoomed"`
	Time float32    `desc:"elapsed time in seconds"`
}

// PayloadSize is the push-constant size of Payload: 4 x float32.
const PayloadSize = 16

// The per-frame protocol moves the offscreen target through a fixed
// layout cycle -- General (compute writes) -> TransferSrc (blit read)
// -> General -- and the acquired swapchain image through Undefined ->
// TransferDst (blit write) -> PresentSrc.  The barrier builders below
// are the single source of truth for that cycle: the scheduler records
// exactly these barriers, and the tests walk them to verify that every
// frame is a closed loop.

// ComputeWriteBarrier transitions the offscreen target from undefined
// to General for compute writes, for the one-time setup transition.
func ComputeWriteBarrier(img vk.Image) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       0,
		DstAccessMask:       vk.AccessFlags(vk.AccessShaderWriteBit),
		OldLayout:           vk.ImageLayoutUndefined,
		NewLayout:           vk.ImageLayoutGeneral,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange:    FullColorRange(),
	}
}

// TargetToBlitSrcBarrier makes the compute stage's writes to the
// offscreen target available and transitions it to TransferSrc,
// recorded at the end of the compute pass.
func TargetToBlitSrcBarrier(img vk.Image) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessShaderWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessTransferReadBit),
		OldLayout:           vk.ImageLayoutGeneral,
		NewLayout:           vk.ImageLayoutTransferSrcOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange:    FullColorRange(),
	}
}

// SwapToBlitDstBarrier transitions a freshly acquired swapchain image
// to TransferDst for the blit.  Old layout is Undefined: the prior
// contents are never needed, and after acquisition that is the only
// layout that is always valid.
func SwapToBlitDstBarrier(img vk.Image) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       0,
		DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		OldLayout:           vk.ImageLayoutUndefined,
		NewLayout:           vk.ImageLayoutTransferDstOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange:    FullColorRange(),
	}
}

// BlitEndBarriers returns the two barriers recorded after the blit:
// the swapchain image to PresentSrc, and the offscreen target back
// to General so the next frame's compute pass can write it.
func BlitEndBarriers(swapImg, targetImg vk.Image) []vk.ImageMemoryBarrier {
	return []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask:       0,
		OldLayout:           vk.ImageLayoutTransferDstOptimal,
		NewLayout:           vk.ImageLayoutPresentSrc,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               swapImg,
		SubresourceRange:    FullColorRange(),
	}, {
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferReadBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessShaderWriteBit),
		OldLayout:           vk.ImageLayoutTransferSrcOptimal,
		NewLayout:           vk.ImageLayoutGeneral,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               targetImg,
		SubresourceRange:    FullColorRange(),
	}}
}

// FrameBarriers returns the full ordered barrier sequence one frame
// records across both command streams, for verification of the
// layout cycle.
func FrameBarriers(swapImg, targetImg vk.Image) []vk.ImageMemoryBarrier {
	bars := []vk.ImageMemoryBarrier{
		TargetToBlitSrcBarrier(targetImg),
		SwapToBlitDstBarrier(swapImg),
	}
	return append(bars, BlitEndBarriers(swapImg, targetImg)...)
}

// FullBlit returns the blit region copying the full extent 1:1 from
// the offscreen target to the swapchain image.
func FullBlit(size image.Point) vk.ImageBlit {
	corner := vk.Offset3D{X: int32(size.X), Y: int32(size.Y), Z: 1}
	return vk.ImageBlit{
		SrcSubresource: FullColorLayers(),
		SrcOffsets:     [2]vk.Offset3D{{}, corner},
		DstSubresource: FullColorLayers(),
		DstOffsets:     [2]vk.Offset3D{{}, corner},
	}
}

// ComputeSubmit builds the compute-queue submission: wait on the
// image-available semaphore (if any) at the compute stage, run cmd,
// and signal the internal compute-finished semaphore.
func ComputeSubmit(cmd vk.CommandBuffer, available, computeDone vk.Semaphore) vk.SubmitInfo {
	si := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{computeDone},
	}
	if available != vk.NullSemaphore {
		si.WaitSemaphoreCount = 1
		si.PWaitSemaphores = []vk.Semaphore{available}
		si.PWaitDstStageMask = []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		}
	}
	return si
}

// GraphicsSubmit builds the graphics-queue submission: wait on the
// internal compute-finished semaphore at the transfer stage, run cmd,
// and signal the render-finished semaphore (if any) when all work in
// the submission completes.
func GraphicsSubmit(cmd vk.CommandBuffer, computeDone, ready vk.Semaphore) vk.SubmitInfo {
	si := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{computeDone},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		},
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}
	if ready != vk.NullSemaphore {
		si.SignalSemaphoreCount = 1
		si.PSignalSemaphores = []vk.Semaphore{ready}
	}
	return si
}

// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"image"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

// forged non-nil handles: only used as map keys and identity in
// barrier records, never dereferenced
func forgeImage(n int) vk.Image {
	var img vk.Image
	return vk.Image(unsafe.Add(unsafe.Pointer(img), n))
}

func forgeSemaphore(n int) vk.Semaphore {
	var sem vk.Semaphore
	return vk.Semaphore(unsafe.Add(unsafe.Pointer(sem), n))
}

func TestWorkgroups(t *testing.T) {
	nx, ny := Workgroups(image.Pt(1920, 1080))
	assert.Equal(t, 120, nx)
	assert.Equal(t, 68, ny)

	nx, ny = Workgroups(image.Pt(16, 16))
	assert.Equal(t, 1, nx)
	assert.Equal(t, 1, ny)

	nx, ny = Workgroups(image.Pt(17, 1))
	assert.Equal(t, 2, nx)
	assert.Equal(t, 1, ny)

	nx, ny = Workgroups(image.Pt(1, 1))
	assert.Equal(t, 1, nx)
	assert.Equal(t, 1, ny)
}

func TestPayloadSize(t *testing.T) {
	assert.Equal(t, uintptr(PayloadSize), unsafe.Sizeof(Payload{}))
}

// TestFrameLayoutCycle walks the full barrier sequence of one frame
// and verifies that each image moves through a closed layout loop:
// the offscreen target General -> TransferSrc -> General, and the
// swapchain image to TransferDst -> PresentSrc.
func TestFrameLayoutCycle(t *testing.T) {
	swap := forgeImage(1)
	target := forgeImage(2)

	layouts := map[vk.Image]vk.ImageLayout{
		target: vk.ImageLayoutGeneral,
	}

	for _, bar := range FrameBarriers(swap, target) {
		cur, known := layouts[bar.Image]
		if known && bar.OldLayout != vk.ImageLayoutUndefined {
			assert.Equal(t, cur, bar.OldLayout, "barrier old layout must match image state")
		}
		assert.NotEqual(t, bar.OldLayout, bar.NewLayout, "barrier must transition")
		assert.Equal(t, uint32(vk.QueueFamilyIgnored), bar.SrcQueueFamilyIndex)
		assert.Equal(t, uint32(vk.QueueFamilyIgnored), bar.DstQueueFamilyIndex)
		assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), bar.SubresourceRange.AspectMask)
		assert.Equal(t, uint32(1), bar.SubresourceRange.LevelCount)
		assert.Equal(t, uint32(1), bar.SubresourceRange.LayerCount)
		layouts[bar.Image] = bar.NewLayout
	}

	assert.Equal(t, vk.ImageLayoutGeneral, layouts[target],
		"target must end each frame writable by the next compute pass")
	assert.Equal(t, vk.ImageLayoutPresentSrc, layouts[swap],
		"swapchain image must end each frame presentable")
}

func TestSetupBarrier(t *testing.T) {
	target := forgeImage(3)
	bar := ComputeWriteBarrier(target)
	assert.Equal(t, vk.ImageLayoutUndefined, bar.OldLayout)
	assert.Equal(t, vk.ImageLayoutGeneral, bar.NewLayout)
	assert.Equal(t, vk.AccessFlags(vk.AccessShaderWriteBit), bar.DstAccessMask)
	assert.Equal(t, target, bar.Image)
}

// TestComputeSubmitSignals verifies the cross-queue handoff: the
// compute submission waits on image availability at the compute
// stage and always signals the internal handoff semaphore.
func TestComputeSubmitSignals(t *testing.T) {
	var cmd vk.CommandBuffer
	available := forgeSemaphore(1)
	done := forgeSemaphore(2)

	si := ComputeSubmit(cmd, available, done)
	assert.Equal(t, uint32(1), si.WaitSemaphoreCount)
	assert.Equal(t, available, si.PWaitSemaphores[0])
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit), si.PWaitDstStageMask[0])
	assert.Equal(t, uint32(1), si.SignalSemaphoreCount)
	assert.Equal(t, done, si.PSignalSemaphores[0])

	// headless dispatch: nothing to wait for, handoff still signaled
	si = ComputeSubmit(cmd, vk.NullSemaphore, done)
	assert.Equal(t, uint32(0), si.WaitSemaphoreCount)
	assert.Equal(t, uint32(1), si.SignalSemaphoreCount)
	assert.Equal(t, done, si.PSignalSemaphores[0])
}

// TestGraphicsSubmitSignals verifies that the blit submission waits
// on the handoff at the transfer stage, so the blit cannot read the
// target before the compute pass has finished writing it.
func TestGraphicsSubmitSignals(t *testing.T) {
	var cmd vk.CommandBuffer
	done := forgeSemaphore(3)
	ready := forgeSemaphore(4)

	si := GraphicsSubmit(cmd, done, ready)
	assert.Equal(t, uint32(1), si.WaitSemaphoreCount)
	assert.Equal(t, done, si.PWaitSemaphores[0])
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), si.PWaitDstStageMask[0])
	assert.Equal(t, uint32(1), si.SignalSemaphoreCount)
	assert.Equal(t, ready, si.PSignalSemaphores[0])

	si = GraphicsSubmit(cmd, done, vk.NullSemaphore)
	assert.Equal(t, uint32(1), si.WaitSemaphoreCount)
	assert.Equal(t, uint32(0), si.SignalSemaphoreCount)
}

func TestFullBlit(t *testing.T) {
	blit := FullBlit(image.Pt(800, 600))
	assert.Equal(t, vk.Offset3D{}, blit.SrcOffsets[0])
	assert.Equal(t, vk.Offset3D{X: 800, Y: 600, Z: 1}, blit.SrcOffsets[1])
	assert.Equal(t, blit.SrcOffsets, blit.DstOffsets)
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), blit.SrcSubresource.AspectMask)
	assert.Equal(t, uint32(1), blit.SrcSubresource.LayerCount)
}

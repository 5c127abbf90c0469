// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	vk "github.com/goki/vulkan"
)

// CmdPool is a command pool and the long-lived primary buffers
// allocated from it.
type CmdPool struct {
	Pool vk.CommandPool
}

// ConfigResettable initializes the pool on given queue family with
// individually resettable command buffers, as all per-frame recording
// requires.
func (cp *CmdPool) ConfigResettable(dev vk.Device, queueIndex uint32) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(dev, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	IfPanic(NewError(ret))
	cp.Pool = pool
}

// NewBuffer allocates a new primary command buffer from the pool.
// It is not begun.
func (cp *CmdPool) NewBuffer(dev vk.Device) vk.CommandBuffer {
	cmds := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        cp.Pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmds)
	IfPanic(NewError(ret))
	return cmds[0]
}

// NewBuffers allocates n primary command buffers from the pool.
func (cp *CmdPool) NewBuffers(dev vk.Device, n int) []vk.CommandBuffer {
	cmds := make([]vk.CommandBuffer, n)
	ret := vk.AllocateCommandBuffers(dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        cp.Pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(n),
	}, cmds)
	IfPanic(NewError(ret))
	return cmds
}

func (cp *CmdPool) Destroy(dev vk.Device) {
	if cp.Pool == vk.NullCommandPool {
		return
	}
	vk.DestroyCommandPool(dev, cp.Pool, nil)
	cp.Pool = vk.NullCommandPool
}

// CmdResetBegin resets the given command buffer and begins recording
// for a one-time submission.
func CmdResetBegin(cmd vk.CommandBuffer) {
	vk.ResetCommandBuffer(cmd, 0)
	CmdBegin(cmd)
}

// CmdBegin begins recording for a one-time submission.
func CmdBegin(cmd vk.CommandBuffer) {
	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	IfPanic(NewError(ret))
}

// CmdEnd ends recording on the given command buffer.
func CmdEnd(cmd vk.CommandBuffer) {
	ret := vk.EndCommandBuffer(cmd)
	IfPanic(NewError(ret))
}

// OneTimeSubmitWait allocates a temporary command buffer from the
// pool, records fn into it, submits the buffer to the given queue,
// waits synchronously for the queue to become idle, and frees the
// buffer.  Used for setup transitions that must complete before a
// component constructor returns.
func OneTimeSubmitWait(dev vk.Device, cp *CmdPool, queue vk.Queue, fn func(cmd vk.CommandBuffer)) {
	cmd := cp.NewBuffer(dev)
	CmdBegin(cmd)
	fn(cmd)
	CmdEnd(cmd)
	ret := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}}, vk.NullFence)
	IfPanic(NewError(ret))
	vk.QueueWaitIdle(queue)
	vk.FreeCommandBuffers(dev, cp.Pool, 1, []vk.CommandBuffer{cmd})
}

// NewSemaphore returns a new binary semaphore on the device.
func NewSemaphore(dev vk.Device) vk.Semaphore {
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(dev, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	IfPanic(NewError(ret))
	return sem
}

// NewFence returns a new fence, created signaled if so requested
// (so the first wait on it passes immediately).
func NewFence(dev vk.Device, signaled bool) vk.Fence {
	var flags vk.FenceCreateFlags
	if signaled {
		flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	ret := vk.CreateFence(dev, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: flags,
	}, nil, &fence)
	IfPanic(NewError(ret))
	return fence
}

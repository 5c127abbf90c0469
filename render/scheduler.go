// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"os"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// FrameScheduler owns the compute pipeline that renders into the
// offscreen target and drives the per-frame dispatch / blit / present
// protocol.  Frames are pipelined NSlots deep: each slot has its own
// command buffers, its own compute-finished semaphore, and an
// in-flight fence that gates reuse of the slot's resources, so the
// host never has to drain the queue between frames.
type FrameScheduler struct {
	GPU  *GPU     `desc:"gpu device"`
	Dev  *Device  `desc:"injected device context"`
	Surf *Surface `desc:"surface being presented to"`

	Target Target `desc:"offscreen storage image the compute program writes"`

	DescLayout     vk.DescriptorSetLayout `desc:"descriptor layout: binding 0 storage image"`
	PipelineLayout vk.PipelineLayout      `desc:"layout with the push-constant range"`
	Pipeline       vk.Pipeline            `desc:"compute pipeline"`
	DescPool       vk.DescriptorPool      `desc:"pool for the single descriptor set"`
	DescSet        vk.DescriptorSet       `desc:"set binding the target view"`

	NSlots       int                `desc:"pipelining depth"`
	ComputeCmds  []vk.CommandBuffer `desc:"per-slot compute command buffers"`
	GraphicsCmds []vk.CommandBuffer `desc:"per-slot blit command buffers"`
	ComputeDone  []vk.Semaphore     `desc:"per-slot compute to blit handoff"`
	InFlight     []vk.Fence         `desc:"per-slot completion fences, created signaled"`
	FrameIndex   int                `desc:"monotonic frame counter; slot = FrameIndex mod NSlots"`
}

// Config builds the pipeline from the SPIR-V program at shaderPath,
// allocates the offscreen target at the surface's current extent,
// and sets up nslots frames' worth of command buffers and
// synchronization primitives.
func (fs *FrameScheduler) Config(gp *GPU, dv *Device, sf *Surface, shaderPath string, nslots int) (err error) {
	defer CheckErr(&err)
	fs.GPU = gp
	fs.Dev = dv
	fs.Surf = sf
	if err = fs.Target.Config(gp, dv, sf.Format.Size); err != nil {
		return err
	}
	fs.ConfigPipeline(shaderPath)
	fs.ConfigDescriptor()
	fs.ConfigFrames(nslots)
	return nil
}

// ConfigPipeline creates the descriptor layout, the pipeline layout
// with the push-constant range, and the compute pipeline itself.
// The shader module is destroyed once the pipeline is built.
func (fs *FrameScheduler) ConfigPipeline(shaderPath string) {
	dev := fs.Dev.Device

	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		}},
	}, nil, &layout)
	IfPanic(NewError(ret))
	fs.DescLayout = layout

	var plLayout vk.PipelineLayout
	ret = vk.CreatePipelineLayout(dev, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{fs.DescLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			Offset:     0,
			Size:       PayloadSize,
		}},
	}, nil, &plLayout)
	IfPanic(NewError(ret))
	fs.PipelineLayout = plLayout

	module := LoadShaderModule(dev, shaderPath)
	var pipeline [1]vk.Pipeline
	ret = vk.CreateComputePipelines(dev, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Layout: fs.PipelineLayout,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: module,
			PName:  "main\x00",
		},
	}}, nil, pipeline[:])
	IfPanic(NewError(ret))
	fs.Pipeline = pipeline[0]
	vk.DestroyShaderModule(dev, module, nil)
}

// LoadShaderModule reads a compiled SPIR-V binary from the given
// path and wraps it in a shader module.
func LoadShaderModule(dev vk.Device, path string) vk.ShaderModule {
	data, err := os.ReadFile(path)
	IfPanic(err)
	if len(data) == 0 || len(data)%4 != 0 {
		IfPanic(fmt.Errorf("render.LoadShaderModule: %s is not a SPIR-V binary", path))
	}
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(dev, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(data)),
		PCode:    SliceUint32(data),
	}, nil, &module)
	IfPanic(NewError(ret))
	return module
}

// SliceUint32 reinterprets SPIR-V bytes as the word slice the
// pipeline API expects, without copying.
func SliceUint32(data []byte) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(unsafe.SliceData(data))), len(data)/4)
}

// ConfigDescriptor allocates the descriptor pool and the single set,
// and points binding 0 at the target's view in the General layout.
func (fs *FrameScheduler) ConfigDescriptor() {
	dev := fs.Dev.Device

	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(dev, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeStorageImage,
			DescriptorCount: 1,
		}},
	}, nil, &pool)
	IfPanic(NewError(ret))
	fs.DescPool = pool

	var set vk.DescriptorSet
	ret = vk.AllocateDescriptorSets(dev, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     fs.DescPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{fs.DescLayout},
	}, &set)
	IfPanic(NewError(ret))
	fs.DescSet = set
	fs.WriteDescriptor()
}

// WriteDescriptor (re)points binding 0 at the current target view.
// Called at setup and again after the target is recreated on resize.
func (fs *FrameScheduler) WriteDescriptor() {
	vk.UpdateDescriptorSets(fs.Dev.Device, 1, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          fs.DescSet,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageImage,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   fs.Target.View,
			ImageLayout: vk.ImageLayoutGeneral,
		}},
	}}, 0, nil)
}

// ConfigFrames allocates per-slot command buffers, handoff
// semaphores, and in-flight fences.  Fences start signaled so the
// first pass through each slot does not block.
func (fs *FrameScheduler) ConfigFrames(nslots int) {
	dev := fs.Dev.Device
	fs.NSlots = nslots
	fs.ComputeCmds = fs.Dev.ComputePool.NewBuffers(dev, nslots)
	fs.GraphicsCmds = fs.Dev.GraphicsPool.NewBuffers(dev, nslots)
	fs.ComputeDone = make([]vk.Semaphore, nslots)
	fs.InFlight = make([]vk.Fence, nslots)
	for i := 0; i < nslots; i++ {
		fs.ComputeDone[i] = NewSemaphore(dev)
		fs.InFlight[i] = NewFence(dev, true)
	}
}

// Slot returns the in-flight slot the next frame occupies.  The
// caller indexes its per-slot semaphores with it; Dispatch advances
// to the next slot.
func (fs *FrameScheduler) Slot() int {
	return fs.FrameIndex % fs.NSlots
}

// WaitSlot blocks until the next slot's previous frame has retired,
// then resets its fence.  Must be called before the slot's
// ImageAvailable semaphore is handed to acquisition: the fence is
// the only proof that the slot's prior compute submission has
// consumed that semaphore's last signal, so waiting it any later
// re-signals a semaphore with a wait still pending.  Dispatch must
// follow before the next WaitSlot, as it is what signals the fence
// again.
func (fs *FrameScheduler) WaitSlot() error {
	dev := fs.Dev.Device
	fence := []vk.Fence{fs.InFlight[fs.Slot()]}
	ret := vk.WaitForFences(dev, 1, fence, vk.True, vk.MaxUint64)
	if IsError(ret) {
		return NewError(ret)
	}
	vk.ResetFences(dev, 1, fence)
	return nil
}

// Dispatch renders one frame into the acquired swapchain image: it
// records and submits the compute pass over the offscreen target,
// then records and submits the blit into the swapchain image.  The
// compute submission waits on available at the compute stage; the
// blit submission waits on the slot's handoff semaphore at the
// transfer stage and signals ready when the image is presentable,
// plus the slot fence on completion.  WaitSlot must have been called
// for this slot first.
func (fs *FrameScheduler) Dispatch(imageIndex int, available, ready vk.Semaphore, pay Payload) error {
	slot := fs.Slot()
	fs.FrameIndex++

	size := fs.Target.Format.Size
	swapImg := fs.Surf.Images[imageIndex]

	ccmd := fs.ComputeCmds[slot]
	CmdResetBegin(ccmd)
	vk.CmdBindPipeline(ccmd, vk.PipelineBindPointCompute, fs.Pipeline)
	vk.CmdBindDescriptorSets(ccmd, vk.PipelineBindPointCompute, fs.PipelineLayout,
		0, 1, []vk.DescriptorSet{fs.DescSet}, 0, nil)
	vk.CmdPushConstants(ccmd, fs.PipelineLayout, vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		0, PayloadSize, unsafe.Pointer(&pay))
	nx, ny := Workgroups(size)
	vk.CmdDispatch(ccmd, uint32(nx), uint32(ny), 1)
	srcBar := TargetToBlitSrcBarrier(fs.Target.Image)
	vk.CmdPipelineBarrier(ccmd,
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{srcBar})
	CmdEnd(ccmd)

	ret := vk.QueueSubmit(fs.Dev.ComputeQueue, 1,
		[]vk.SubmitInfo{ComputeSubmit(ccmd, available, fs.ComputeDone[slot])}, vk.NullFence)
	if IsError(ret) {
		return NewError(ret)
	}

	gcmd := fs.GraphicsCmds[slot]
	CmdResetBegin(gcmd)
	dstBar := SwapToBlitDstBarrier(swapImg)
	vk.CmdPipelineBarrier(gcmd,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{dstBar})
	blit := FullBlit(size)
	vk.CmdBlitImage(gcmd,
		fs.Target.Image, vk.ImageLayoutTransferSrcOptimal,
		swapImg, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{blit}, vk.FilterNearest)
	endBars := BlitEndBarriers(swapImg, fs.Target.Image)
	vk.CmdPipelineBarrier(gcmd,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit|vk.PipelineStageComputeShaderBit),
		0, 0, nil, 0, nil, uint32(len(endBars)), endBars)
	CmdEnd(gcmd)

	ret = vk.QueueSubmit(fs.Dev.GraphicsQueue, 1,
		[]vk.SubmitInfo{GraphicsSubmit(gcmd, fs.ComputeDone[slot], ready)}, fs.InFlight[slot])
	if IsError(ret) {
		return NewError(ret)
	}
	return nil
}

// Recreate rebuilds the offscreen target at the surface's current
// extent and rebuilds the descriptor pool and set against the new
// view.  The pool is torn down and remade rather than updated in
// place so no stale binding can ever be observed.  Called after the
// swapchain is recreated; waits for device idleness first so no slot
// still references the old target.
func (fs *FrameScheduler) Recreate() (err error) {
	defer CheckErr(&err)
	vk.DeviceWaitIdle(fs.Dev.Device)
	if err := fs.Target.Recreate(fs.Surf.Format.Size); err != nil {
		return err
	}
	vk.DestroyDescriptorPool(fs.Dev.Device, fs.DescPool, nil)
	fs.ConfigDescriptor()
	return nil
}

// Destroy releases all pipeline and per-slot resources.  The caller
// must ensure device idleness.
func (fs *FrameScheduler) Destroy() {
	if fs.Dev == nil {
		return
	}
	dev := fs.Dev.Device
	for i := 0; i < fs.NSlots; i++ {
		vk.DestroySemaphore(dev, fs.ComputeDone[i], nil)
		vk.DestroyFence(dev, fs.InFlight[i], nil)
	}
	fs.ComputeDone = nil
	fs.InFlight = nil
	if len(fs.ComputeCmds) > 0 {
		vk.FreeCommandBuffers(dev, fs.Dev.ComputePool.Pool, uint32(len(fs.ComputeCmds)), fs.ComputeCmds)
		fs.ComputeCmds = nil
	}
	if len(fs.GraphicsCmds) > 0 {
		vk.FreeCommandBuffers(dev, fs.Dev.GraphicsPool.Pool, uint32(len(fs.GraphicsCmds)), fs.GraphicsCmds)
		fs.GraphicsCmds = nil
	}
	if fs.DescPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(dev, fs.DescPool, nil)
		fs.DescPool = vk.NullDescriptorPool
	}
	if fs.Pipeline != vk.NullPipeline {
		vk.DestroyPipeline(dev, fs.Pipeline, nil)
		fs.Pipeline = vk.NullPipeline
	}
	if fs.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(dev, fs.PipelineLayout, nil)
		fs.PipelineLayout = vk.NullPipelineLayout
	}
	if fs.DescLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(dev, fs.DescLayout, nil)
		fs.DescLayout = vk.NullDescriptorSetLayout
	}
	fs.Target.Destroy()
	fs.GPU = nil
	fs.Dev = nil
	fs.Surf = nil
}

// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"errors"

	vk "github.com/goki/vulkan"
)

// Device is the logical device with the two hardware queues the
// frame engine runs on: a compute queue and a graphics queue that
// also presents.  The two queue families may coincide.  Each family
// gets its own resettable command pool.  Device is created once at
// startup and injected into Surface, Target and FrameScheduler --
// it is never reached through global state.
type Device struct {
	GPU    *GPU      `desc:"gpu this device was made from"`
	Device vk.Device `desc:"logical device handle"`

	ComputeIndex  uint32 `desc:"queue family index for compute work"`
	GraphicsIndex uint32 `desc:"queue family index for graphics / present work"`

	ComputeQueue  vk.Queue `desc:"compute queue handle"`
	GraphicsQueue vk.Queue `desc:"graphics queue handle -- also the present queue"`

	ComputePool  CmdPool `desc:"resettable command pool on the compute family"`
	GraphicsPool CmdPool `desc:"resettable command pool on the graphics family"`
}

// Config finds the queue families, creates the logical device, its
// queues, and the per-family command pools.  surface is the window
// surface the graphics family must be able to present to.
func (dv *Device) Config(gp *GPU, surface vk.Surface) (err error) {
	defer CheckErr(&err)

	dv.GPU = gp
	if err := dv.FindQueues(gp, surface); err != nil {
		return err
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: dv.ComputeIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	if dv.GraphicsIndex != dv.ComputeIndex {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: dv.GraphicsIndex,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	var device vk.Device
	ret := vk.CreateDevice(gp.GPU, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(gp.DeviceExts)),
		PpEnabledExtensionNames: SafeStrings(gp.DeviceExts),
		EnabledLayerCount:       uint32(len(gp.ValidationLayers)),
		PpEnabledLayerNames:     SafeStrings(gp.ValidationLayers),
	}, nil, &device)
	IfPanic(NewError(ret))
	dv.Device = device

	var cq, gq vk.Queue
	vk.GetDeviceQueue(dv.Device, dv.ComputeIndex, 0, &cq)
	vk.GetDeviceQueue(dv.Device, dv.GraphicsIndex, 0, &gq)
	dv.ComputeQueue = cq
	dv.GraphicsQueue = gq

	dv.ComputePool.ConfigResettable(dv.Device, dv.ComputeIndex)
	dv.GraphicsPool.ConfigResettable(dv.Device, dv.GraphicsIndex)
	return nil
}

// FindQueues locates a compute-capable family and a graphics family
// that can present to the given surface, setting ComputeIndex and
// GraphicsIndex.  Returns an error if either is missing.
func (dv *Device) FindQueues(gp *GPU, surface vk.Surface) error {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gp.GPU, &count, nil)
	if count == 0 {
		return errors.New("render.Device: no queue families found on device")
	}
	fams := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gp.GPU, &count, fams)

	computeFound := false
	graphicsFound := false
	for i := uint32(0); i < count; i++ {
		fams[i].Deref()
		flags := fams[i].QueueFlags
		if !computeFound && flags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			dv.ComputeIndex = i
			computeFound = true
		}
		if !graphicsFound && flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			var supportsPresent vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(gp.GPU, i, surface, &supportsPresent)
			if supportsPresent.B() {
				dv.GraphicsIndex = i
				graphicsFound = true
			}
		}
	}
	if !computeFound {
		return errors.New("render.Device: no compute queue family found")
	}
	if !graphicsFound {
		return errors.New("render.Device: no graphics queue family with present support found")
	}
	return nil
}

// QueueFamilies returns the unique queue family indices in use,
// for swapchain image sharing.
func (dv *Device) QueueFamilies() []uint32 {
	if dv.ComputeIndex == dv.GraphicsIndex {
		return []uint32{dv.GraphicsIndex}
	}
	return []uint32{dv.GraphicsIndex, dv.ComputeIndex}
}

// WaitIdle blocks until all device queues are fully idle.
func (dv *Device) WaitIdle() {
	if dv.Device != nil {
		vk.DeviceWaitIdle(dv.Device)
	}
}

func (dv *Device) Destroy() {
	if dv.Device == nil {
		return
	}
	vk.DeviceWaitIdle(dv.Device)
	dv.ComputePool.Destroy(dv.Device)
	dv.GraphicsPool.Destroy(dv.Device)
	vk.DestroyDevice(dv.Device, nil)
	dv.Device = nil
	dv.GPU = nil
}

// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	vk "github.com/goki/vulkan"
)

// FrameSync holds the per-slot semaphore pairs tying the frame
// protocol to the presentation engine: ImageAvailable is signaled by
// acquisition and waited by the compute submission, RenderFinished
// is signaled by the blit submission and waited by present.  These
// survive swapchain recreation unchanged.
type FrameSync struct {
	Dev            vk.Device      `desc:"device handle"`
	ImageAvailable []vk.Semaphore `desc:"signaled when the acquired image is writable"`
	RenderFinished []vk.Semaphore `desc:"signaled when the image is presentable"`
}

// Config creates n semaphore pairs.
func (fy *FrameSync) Config(dev vk.Device, n int) {
	fy.Dev = dev
	fy.ImageAvailable = make([]vk.Semaphore, n)
	fy.RenderFinished = make([]vk.Semaphore, n)
	for i := 0; i < n; i++ {
		fy.ImageAvailable[i] = NewSemaphore(dev)
		fy.RenderFinished[i] = NewSemaphore(dev)
	}
}

// Destroy releases all semaphores.  The caller must ensure device
// idleness.
func (fy *FrameSync) Destroy() {
	for i := range fy.ImageAvailable {
		vk.DestroySemaphore(fy.Dev, fy.ImageAvailable[i], nil)
		vk.DestroySemaphore(fy.Dev, fy.RenderFinished[i], nil)
	}
	fy.ImageAvailable = nil
	fy.RenderFinished = nil
	fy.Dev = nil
}

// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"errors"
	"log"

	vk "github.com/goki/vulkan"
)

// Framebuffer is the capability the Surface needs from the window
// system: the current framebuffer pixel size, and an event-poll
// primitive to block on while the framebuffer is zero-sized
// (minimized).  *window.Window implements it.
type Framebuffer interface {
	FramebufferSize() (width, height int)
	WaitEvents()
}

// Surface manages the presentable swapchain for a window surface:
// the chain handle, its images and views, the chosen format and
// extent, and recreation when the chain goes stale or the window is
// resized.  A recreation replaces all of that state atomically with
// respect to the caller, and bumps Generation so that dependents
// (the offscreen target, the descriptor bindings) know to rebuild.
type Surface struct {
	GPU *GPU    `desc:"gpu device"`
	Dev *Device `desc:"injected device context"`
	Win Framebuffer

	Surface   vk.Surface   `desc:"window surface handle -- owned by the window, not destroyed here"`
	Swapchain vk.Swapchain `desc:"current swapchain handle"`

	Format     ImageFormat    `desc:"chosen pixel format and current extent"`
	ColorSpace vk.ColorSpace  `desc:"chosen color space"`
	Images     []vk.Image     `desc:"presentable images owned by the swapchain"`
	Views      []vk.ImageView `desc:"one view per image"`
	NFrames    int            `desc:"number of presentable images"`
	Generation int            `desc:"incremented on every recreation"`
}

// PreferredFormat is the (format, color space) pair used when the
// surface offers it.
var PreferredFormat = vk.SurfaceFormat{
	Format:     vk.FormatB8g8r8a8Srgb,
	ColorSpace: vk.ColorSpaceSrgbNonlinear,
}

// Init initializes the surface manager against the given window
// surface and creates the first swapchain.
func (sf *Surface) Init(gp *GPU, dv *Device, vs vk.Surface, win Framebuffer) (err error) {
	defer CheckErr(&err)
	sf.GPU = gp
	sf.Dev = dv
	sf.Win = win
	sf.Surface = vs
	sf.ConfigSwapchain()
	return nil
}

// ConfigSwapchain creates the swapchain against the current surface
// capabilities and window framebuffer size, replacing any existing
// chain (passed as OldSwapchain so in-flight presents can drain),
// and rebuilds the image list and views.
func (sf *Surface) ConfigSwapchain() {
	dev := sf.Dev.Device

	var caps vk.SurfaceCapabilities
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(sf.GPU.GPU, sf.Surface, &caps)
	IfPanic(NewError(ret))
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(sf.GPU.GPU, sf.Surface, &formatCount, nil)
	if formatCount == 0 {
		IfPanic(errors.New("render.Surface: surface offers no pixel formats"))
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(sf.GPU.GPU, sf.Surface, &formatCount, formats)
	for i := range formats {
		formats[i].Deref()
	}

	var modeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(sf.GPU.GPU, sf.Surface, &modeCount, nil)
	if modeCount == 0 {
		IfPanic(errors.New("render.Surface: surface offers no present modes"))
	}
	modes := make([]vk.PresentMode, modeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(sf.GPU.GPU, sf.Surface, &modeCount, modes)

	format := ChooseFormat(formats)
	mode := ChoosePresentMode(modes)
	fbw, fbh := sf.Win.FramebufferSize()
	w, h := ChooseExtent(caps, fbw, fbh)

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	// blitted into, never rendered to directly
	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit)

	families := sf.Dev.QueueFamilies()
	sharing := vk.SharingModeExclusive
	if len(families) > 1 {
		sharing = vk.SharingModeConcurrent
	}

	oldChain := sf.Swapchain
	var chain vk.Swapchain
	ret = vk.CreateSwapchain(dev, &vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               sf.Surface,
		MinImageCount:         imageCount,
		ImageFormat:           format.Format,
		ImageColorSpace:       format.ColorSpace,
		ImageExtent:           vk.Extent2D{Width: uint32(w), Height: uint32(h)},
		ImageArrayLayers:      1,
		ImageUsage:            usage,
		ImageSharingMode:      sharing,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		PreTransform:          caps.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           mode,
		Clipped:               vk.True,
		OldSwapchain:          oldChain,
	}, nil, &chain)
	IfPanic(NewError(ret))
	if oldChain != vk.NullSwapchain {
		vk.DestroySwapchain(dev, oldChain, nil)
	}
	sf.Swapchain = chain
	sf.Format.Set(w, h, format.Format)
	sf.ColorSpace = format.ColorSpace

	var count uint32
	ret = vk.GetSwapchainImages(dev, sf.Swapchain, &count, nil)
	IfPanic(NewError(ret))
	sf.NFrames = int(count)
	sf.Images = make([]vk.Image, count)
	ret = vk.GetSwapchainImages(dev, sf.Swapchain, &count, sf.Images)
	IfPanic(NewError(ret))

	sf.FreeViews()
	sf.Views = make([]vk.ImageView, sf.NFrames)
	for i, img := range sf.Images {
		sf.Views[i] = MakeStdView(dev, img, sf.Format.Format)
	}

	if sf.GPU.Debug {
		log.Printf("render.Surface: swapchain %dx%d with %d images\n", w, h, sf.NFrames)
	}
}

// ChooseFormat returns the preferred (format, color space) pair if
// the surface offers it, and the first offered format otherwise.
// formats must already be Deref'd.
func ChooseFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == PreferredFormat.Format && f.ColorSpace == PreferredFormat.ColorSpace {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode returns the low-latency Mailbox mode if offered,
// and the universally supported Fifo (blocking vsync) mode otherwise.
func ChoosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent returns the surface's reported current extent when it
// is defined, and otherwise the given framebuffer size clamped
// component-wise to the surface's min / max extents.  caps and its
// nested extents must already be Deref'd.
func ChooseExtent(caps vk.SurfaceCapabilities, fbw, fbh int) (w, h int) {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return int(caps.CurrentExtent.Width), int(caps.CurrentExtent.Height)
	}
	w = clamp(fbw, int(caps.MinImageExtent.Width), int(caps.MaxImageExtent.Width))
	h = clamp(fbh, int(caps.MinImageExtent.Height), int(caps.MaxImageExtent.Height))
	return
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ReInit waits until the framebuffer is non-zero-sized (blocking on
// window events while minimized), waits for device idleness, and
// rebuilds the swapchain against the current framebuffer size.
// The frame synchronization semaphores are not recreated.
func (sf *Surface) ReInit() {
	for {
		w, h := sf.Win.FramebufferSize()
		if w > 0 && h > 0 {
			break
		}
		sf.Win.WaitEvents()
	}
	vk.DeviceWaitIdle(sf.Dev.Device)
	sf.ConfigSwapchain()
	sf.Generation++
}

// AcquireNextImage acquires the next presentable image index,
// signaling the given semaphore when the image is actually ready to
// be written.  A stale chain is recreated internally and acquisition
// retried exactly once; any further failure is returned as fatal.
func (sf *Surface) AcquireNextImage(available vk.Semaphore) (imageIndex int, err error) {
	var idx uint32
	ret := vk.AcquireNextImage(sf.Dev.Device, sf.Swapchain, vk.MaxUint64, available, vk.NullFence, &idx)
	if IsStale(ret) {
		sf.ReInit()
		ret = vk.AcquireNextImage(sf.Dev.Device, sf.Swapchain, vk.MaxUint64, available, vk.NullFence, &idx)
	}
	if !AcquireUsable(ret) {
		return 0, NewError(ret)
	}
	return int(idx), nil
}

// AcquireUsable reports whether an acquisition result, after any
// internal recreate-and-retry, still yields a usable image index.
// Suboptimal is usable on this path; recreation for it happens on
// the present path instead.
func AcquireUsable(ret vk.Result) bool {
	return ret == vk.Success || ret == vk.Suboptimal
}

// Present submits the given image for display, waiting on the given
// semaphore.  A stale or suboptimal result recreates the chain and
// returns nil: the frame is simply not shown.  Anything else
// non-success is returned as fatal.
func (sf *Surface) Present(imageIndex int, ready vk.Semaphore) error {
	ret := vk.QueuePresent(sf.Dev.GraphicsQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{ready},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sf.Swapchain},
		PImageIndices:      []uint32{uint32(imageIndex)},
	})
	if IsStaleOrSuboptimal(ret) {
		sf.ReInit()
		return nil
	}
	return NewError(ret)
}

// IsStale reports whether the given result means the chain no longer
// matches the surface and must be rebuilt before it can be used.
func IsStale(ret vk.Result) bool {
	return ret == vk.ErrorOutOfDate
}

// IsStaleOrSuboptimal additionally covers the suboptimal result,
// which on the present path is also handled by recreation.
func IsStaleOrSuboptimal(ret vk.Result) bool {
	return ret == vk.ErrorOutOfDate || ret == vk.Suboptimal
}

// FreeViews destroys the per-image views.
func (sf *Surface) FreeViews() {
	for _, view := range sf.Views {
		vk.DestroyImageView(sf.Dev.Device, view, nil)
	}
	sf.Views = nil
}

// FreeSwapchain destroys the views and the chain itself, after
// waiting for device idleness.
func (sf *Surface) FreeSwapchain() {
	vk.DeviceWaitIdle(sf.Dev.Device)
	sf.FreeViews()
	sf.Images = nil
	if sf.Swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(sf.Dev.Device, sf.Swapchain, nil)
		sf.Swapchain = vk.NullSwapchain
	}
}

// Destroy releases the swapchain and the window surface.
func (sf *Surface) Destroy() {
	sf.FreeSwapchain()
	if sf.Surface != vk.NullSurface {
		vk.DestroySurface(sf.GPU.Instance, sf.Surface, nil)
		sf.Surface = vk.NullSurface
	}
	sf.GPU = nil
	sf.Dev = nil
	sf.Win = nil
}

// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package window wraps the glfw window system for vulkan rendering:
// library initialization, window and surface creation, framebuffer
// size and resize tracking, and input callbacks.
package window

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"goki.dev/grr"
)

// Init initializes glfw and the vulkan loader.
// IMPORTANT: must be called on the main initial thread!
func Init() error {
	if err := glfw.Init(); err != nil {
		return grr.Log(err)
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	return grr.Log(vk.Init())
}

// Terminate shuts glfw down -- call as the last thing before quitting.
// IMPORTANT: must be called on the main initial thread!
func Terminate() {
	glfw.Terminate()
}

// Window is a resizable vulkan-capable window.  It tracks resize
// events from the window system; the render loop consumes the
// resized flag once per frame.
type Window struct {
	Glw *glfw.Window `desc:"the glfw window handle"`

	resized  bool
	lastTime float64
}

// New creates a window of the given size with no client graphics API
// (vulkan renders through its own surface).
func New(width, height int, title string) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glw, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, grr.Log(err)
	}
	w := &Window{Glw: glw, lastTime: glfw.GetTime()}
	glw.SetFramebufferSizeCallback(func(gw *glfw.Window, wd, ht int) {
		w.resized = true
	})
	return w, nil
}

// RequiredExts returns the instance extensions the window system
// needs for surface creation on this platform.
func (w *Window) RequiredExts() []string {
	return w.Glw.GetRequiredInstanceExtensions()
}

// CreateSurface creates the vulkan surface for this window on the
// given instance.
func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := w.Glw.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, grr.Log(err)
	}
	return vk.SurfaceFromPointer(ptr), nil
}

// FramebufferSize returns the current framebuffer size in pixels,
// which on high-dpi displays differs from the window size.
func (w *Window) FramebufferSize() (width, height int) {
	return w.Glw.GetFramebufferSize()
}

// WaitEvents blocks until a window event arrives.  Used to idle
// while minimized.
func (w *Window) WaitEvents() {
	glfw.WaitEvents()
}

// PollEvents processes pending window events without blocking.
func (w *Window) PollEvents() {
	glfw.PollEvents()
}

// ShouldClose reports whether the user has requested the window to
// close.
func (w *Window) ShouldClose() bool {
	return w.Glw.ShouldClose()
}

// WasResized reports whether a resize event arrived since the last
// ResetResized call.
func (w *Window) WasResized() bool {
	return w.resized
}

// ResetResized clears the resize flag once the swapchain has been
// rebuilt.
func (w *Window) ResetResized() {
	w.resized = false
}

// DeltaTime returns the seconds elapsed since the previous call.
func (w *Window) DeltaTime() float64 {
	now := glfw.GetTime()
	dt := now - w.lastTime
	w.lastTime = now
	return dt
}

// Destroy destroys the window.
func (w *Window) Destroy() {
	w.Glw.Destroy()
	w.Glw = nil
}

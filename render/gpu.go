// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"errors"
	"log"
	"strings"

	vk "github.com/goki/vulkan"
)

// VulkanValidationLayer is the standard Khronos validation layer,
// enabled when GPU.Debug is set and the layer is installed.
const VulkanValidationLayer = "VK_LAYER_KHRONOS_validation"

// GPU is the vulkan instance and physical device, with the properties
// needed by everything downstream (memory types, limits).  It is created
// once at startup, injected into the other components, and destroyed
// once at shutdown.  It owns nothing that outlives it.
type GPU struct {
	Instance vk.Instance       `desc:"vulkan instance handle"`
	GPU      vk.PhysicalDevice `desc:"the selected physical device"`

	InstanceExts     []string `desc:"instance extensions to enable -- window system adds its surface extensions here prior to Config"`
	DeviceExts       []string `desc:"device extensions to enable -- swapchain by default"`
	ValidationLayers []string `desc:"layers enabled on instance and device -- set in Config when Debug and supported"`

	Debug bool `desc:"enable the vulkan validation layer and extra logging"`

	GPUProps    vk.PhysicalDeviceProperties       `desc:"properties of the selected device"`
	MemoryProps vk.PhysicalDeviceMemoryProperties `desc:"memory properties, for picking memory types"`
	DeviceName  string                            `desc:"name of the selected device"`
}

// NewGPU returns a new GPU with default extension settings.
// Call AddInstanceExt with the window system's required extensions,
// then Config.
func NewGPU() *GPU {
	gp := &GPU{}
	gp.Defaults()
	return gp
}

func (gp *GPU) Defaults() {
	gp.DeviceExts = []string{"VK_KHR_swapchain"}
}

// AddInstanceExt adds instance extension(s) to enable at Config time.
func (gp *GPU) AddInstanceExt(exts ...string) {
	gp.InstanceExts = append(gp.InstanceExts, exts...)
}

// AddDeviceExt adds device extension(s) to enable for logical devices.
func (gp *GPU) AddDeviceExt(exts ...string) {
	gp.DeviceExts = append(gp.DeviceExts, exts...)
}

// Config creates the vulkan instance and selects a physical device
// that has a compute-capable queue family.  name is the application
// name reported to the driver.
func (gp *GPU) Config(name string) error {
	if gp.Debug {
		if gp.ValidationSupported() {
			gp.ValidationLayers = []string{VulkanValidationLayer}
		} else {
			log.Println("render.GPU: validation layer requested but not installed -- continuing without it")
		}
	}

	var inst vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   SafeString(name),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        SafeString("gargantua"),
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.MakeVersion(1, 1, 0),
		},
		EnabledExtensionCount:   uint32(len(gp.InstanceExts)),
		PpEnabledExtensionNames: SafeStrings(gp.InstanceExts),
		EnabledLayerCount:       uint32(len(gp.ValidationLayers)),
		PpEnabledLayerNames:     SafeStrings(gp.ValidationLayers),
	}, nil, &inst)
	if err := NewError(ret); err != nil {
		return err
	}
	gp.Instance = inst
	vk.InitInstance(inst)

	if err := gp.SelectDevice(); err != nil {
		gp.Destroy()
		return err
	}

	vk.GetPhysicalDeviceProperties(gp.GPU, &gp.GPUProps)
	gp.GPUProps.Deref()
	gp.GPUProps.Limits.Deref()
	gp.DeviceName = vk.ToString(gp.GPUProps.DeviceName[:])

	vk.GetPhysicalDeviceMemoryProperties(gp.GPU, &gp.MemoryProps)
	gp.MemoryProps.Deref()

	if gp.Debug {
		log.Printf("render.GPU: using device: %s\n", gp.DeviceName)
	}
	return nil
}

// SelectDevice picks the first physical device exposing a
// compute-capable queue family.  Discrete GPUs are preferred when
// more than one qualifies.
func (gp *GPU) SelectDevice() error {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(gp.Instance, &count, nil)
	if err := NewError(ret); err != nil {
		return err
	}
	if count == 0 {
		return errors.New("render.GPU: no vulkan-capable devices found")
	}
	devs := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(gp.Instance, &count, devs)

	var fallback vk.PhysicalDevice
	for _, dev := range devs {
		if !DeviceHasCompute(dev) {
			continue
		}
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(dev, &props)
		props.Deref()
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			gp.GPU = dev
			return nil
		}
		if fallback == nil {
			fallback = dev
		}
	}
	if fallback == nil {
		return errors.New("render.GPU: no device with a compute queue family found")
	}
	gp.GPU = fallback
	return nil
}

// DeviceHasCompute returns true if the given physical device has
// any compute-capable queue family.
func DeviceHasCompute(dev vk.PhysicalDevice) bool {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, nil)
	if count == 0 {
		return false
	}
	fams := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, fams)
	for i := range fams {
		fams[i].Deref()
		if fams[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			return true
		}
	}
	return false
}

// ValidationSupported returns true if the Khronos validation layer
// is installed on this system.
func (gp *GPU) ValidationSupported() bool {
	var count uint32
	vk.EnumerateInstanceLayerProperties(&count, nil)
	layers := make([]vk.LayerProperties, count)
	vk.EnumerateInstanceLayerProperties(&count, layers)
	for i := range layers {
		layers[i].Deref()
		if vk.ToString(layers[i].LayerName[:]) == VulkanValidationLayer {
			return true
		}
	}
	return false
}

func (gp *GPU) Destroy() {
	if gp.Instance != nil {
		vk.DestroyInstance(gp.Instance, nil)
		gp.Instance = nil
	}
	gp.GPU = nil
}

// SafeString returns the given string with the null terminator
// the C API requires, adding one only if not already present.
func SafeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

// SafeStrings returns a null-terminated copy of the given strings.
func SafeStrings(ss []string) []string {
	ts := make([]string, len(ss))
	for i, s := range ss {
		ts[i] = SafeString(s)
	}
	return ts
}

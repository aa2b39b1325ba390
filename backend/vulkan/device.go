// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/devblok/vulkan"

	"github.com/koru3d/koru/core"
)

// Device is a logical device with its graphics queue
type Device struct {
	instance *Instance

	physical vk.PhysicalDevice
	logical  vk.Device
	queue    vk.Queue

	graphicsQueueIndex uint32
	colorFormat        vk.Format
	colorSpace         vk.ColorSpace
}

// NewDevice creates a logical device on the first physical device that
// has a graphics queue. With a surface set on instance the queue has to
// support presenting too and the swapchain extension is enabled.
func NewDevice(instance *Instance, cfg core.RendererConfiguration) (*Device, error) {
	d := &Device{
		instance:    instance,
		colorFormat: vk.FormatR8g8b8a8Unorm,
	}

	var lastErr error
	for _, physical := range instance.AvailableDevices() {
		index, err := findQueueFamily(physical, instance.Surface(), instance.HasSurface())
		if err != nil {
			lastErr = err
			continue
		}
		d.physical = physical
		d.graphicsQueueIndex = index
		break
	}
	if d.physical == nil {
		if lastErr == nil {
			lastErr = errors.New("no physical devices")
		}
		return nil, fmt.Errorf("vulkan.NewDevice(): %w", lastErr)
	}

	extensions := safeStrings(cfg.DeviceExtensions)
	if instance.HasSurface() && !contains(extensions, safeString(vk.KhrSwapchainExtensionName)) {
		extensions = append(extensions, safeString(vk.KhrSwapchainExtensionName))
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.graphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	if err := vk.Error(vk.CreateDevice(d.physical, &dci, nil, &d.logical)); err != nil {
		return nil, fmt.Errorf("vk.CreateDevice(): %w", err)
	}
	vk.GetDeviceQueue(d.logical, d.graphicsQueueIndex, 0, &d.queue)

	if instance.HasSurface() {
		if err := d.pickSurfaceFormat(); err != nil {
			vk.DestroyDevice(d.logical, nil)
			return nil, err
		}
	}
	return d, nil
}

func findQueueFamily(physical vk.PhysicalDevice, surface vk.Surface, needsPresent bool) (uint32, error) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &queueFamilyCount, nil)
	if queueFamilyCount == 0 {
		return 0, errors.New("no queue families on GPU")
	}
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &queueFamilyCount, queueFamilies)

	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		if needsPresent {
			var supportsPresent vk.Bool32
			vk.GetPhysicalDeviceSurfaceSupport(physical, i, surface, &supportsPresent)
			if !supportsPresent.B() {
				continue
			}
		}
		return i, nil
	}
	return 0, errors.New("no suitable queue family for graphics")
}

func (d *Device) pickSurfaceFormat() error {
	surface := d.instance.Surface()
	var surfaceFormatCount uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(d.physical, surface, &surfaceFormatCount, nil)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}
	if surfaceFormatCount == 0 {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): surface has no formats")
	}
	surfaceFormats := make([]vk.SurfaceFormat, surfaceFormatCount)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(d.physical, surface, &surfaceFormatCount, surfaceFormats)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}
	surfaceFormats[0].Deref()
	d.colorFormat = surfaceFormats[0].Format
	if d.colorFormat == vk.FormatUndefined {
		d.colorFormat = vk.FormatB8g8r8a8Unorm
	}
	d.colorSpace = surfaceFormats[0].ColorSpace
	return nil
}

// ColorFormat returns the format pipelines render to
func (d *Device) ColorFormat() vk.Format {
	return d.colorFormat
}

// WaitIdle blocks until the device finished all work
func (d *Device) WaitIdle() {
	vk.DeviceWaitIdle(d.logical)
}

// Destroy destroys the logical device
func (d *Device) Destroy() {
	vk.DeviceWaitIdle(d.logical)
	vk.DestroyDevice(d.logical, nil)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

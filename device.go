package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// SwapchainExtensionName is the device extension required for presentation.
const SwapchainExtensionName = "VK_KHR_swapchain"

// DeviceKey identifies a Device entry.
type DeviceKey = Key[Device]

// Device owns the logical device. Parents: PhysicalDevice and the Surface
// the queue families were chosen against.
type Device struct {
	Key      DeviceKey
	VKDevice vk.Device

	PhysicalDevice PhysicalDeviceKey
	Surface        SurfaceKey

	GraphicsFamily uint32
	PresentFamily  uint32
}

// CreateDevice creates the logical device with one queue per distinct family
// and the swapchain extension enabled.
func CreateDevice(reg *Registries, physicalKey PhysicalDeviceKey, surfaceKey SurfaceKey, graphicsFamily, presentFamily uint32) (DeviceKey, error) {
	physical, ok := reg.PhysicalDevices.Get(physicalKey)
	if !ok {
		return DeviceKey{}, notFound("physical device")
	}

	families := []uint32{graphicsFamily}
	if presentFamily != graphicsFamily {
		families = append(families, presentFamily)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(physical.VKPhysicalDevice, &features)

	extensions := []string{SwapchainExtensionName}
	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}

	var handle vk.Device
	if err := vk.Error(vk.CreateDevice(physical.VKPhysicalDevice, &createInfo, nil, &handle)); err != nil {
		return DeviceKey{}, fmt.Errorf("creating logical device: %w", err)
	}

	key := reg.Devices.Insert(func(key DeviceKey) Device {
		return Device{
			Key:            key,
			VKDevice:       handle,
			PhysicalDevice: physicalKey,
			Surface:        surfaceKey,
			GraphicsFamily: graphicsFamily,
			PresentFamily:  presentFamily,
		}
	})
	return key, nil
}

// DestroyDevice destroys the logical device and removes the entry. All child
// resources must have been destroyed first.
func DestroyDevice(reg *Registries, key DeviceKey) error {
	device, ok := reg.Devices.Remove(key)
	if !ok {
		return notFound("device")
	}
	vk.DestroyDevice(device.VKDevice, nil)
	return nil
}

// DeviceWaitIdle blocks until all GPU work on the device has drained. Used
// as a barrier before teardown and rebuild.
func DeviceWaitIdle(reg *Registries, key DeviceKey) error {
	device, ok := reg.Devices.Get(key)
	if !ok {
		return notFound("device")
	}
	return vk.Error(vk.DeviceWaitIdle(device.VKDevice))
}

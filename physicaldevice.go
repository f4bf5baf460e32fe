package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// PhysicalDeviceKey identifies a PhysicalDevice entry.
type PhysicalDeviceKey = Key[PhysicalDevice]

// PhysicalDevice wraps one physical device exposed by the instance.
// Parent: Instance. Physical devices have no native destroy call, so
// removing the entry is the whole teardown.
type PhysicalDevice struct {
	Key              PhysicalDeviceKey
	VKPhysicalDevice vk.PhysicalDevice

	Instance InstanceKey

	DeviceName string
	DeviceType vk.PhysicalDeviceType
}

// EnumeratePhysicalDevices inserts every physical device the instance
// exposes into the registry and returns their keys in enumeration order.
func EnumeratePhysicalDevices(reg *Registries, instanceKey InstanceKey) ([]PhysicalDeviceKey, error) {
	instance, ok := reg.Instances.Get(instanceKey)
	if !ok {
		return nil, notFound("instance")
	}

	var count uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance.VKInstance, &count, nil)); err != nil {
		return nil, fmt.Errorf("enumerating physical devices: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	handles := make([]vk.PhysicalDevice, count)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance.VKInstance, &count, handles)); err != nil {
		return nil, fmt.Errorf("enumerating physical devices: %w", err)
	}

	keys := make([]PhysicalDeviceKey, count)
	for i, handle := range handles {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(handle, &properties)
		properties.Deref()

		name := vk.ToString(properties.DeviceName[:])
		deviceType := properties.DeviceType

		keys[i] = reg.PhysicalDevices.Insert(func(key PhysicalDeviceKey) PhysicalDevice {
			return PhysicalDevice{
				Key:              key,
				VKPhysicalDevice: handle,
				Instance:         instanceKey,
				DeviceName:       name,
				DeviceType:       deviceType,
			}
		})
	}
	return keys, nil
}

// RemovePhysicalDevice drops the entry from the registry.
func RemovePhysicalDevice(reg *Registries, key PhysicalDeviceKey) error {
	if _, ok := reg.PhysicalDevices.Remove(key); !ok {
		return notFound("physical device")
	}
	return nil
}

// QueueFamilyProperties returns the properties of every queue family on the
// device, indexed by family.
func (p *PhysicalDevice) QueueFamilyProperties() []vk.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &count, nil)
	if count == 0 {
		return nil
	}
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &count, families)
	for i := range families {
		families[i].Deref()
	}
	return families
}

// SupportsPresent reports whether the given queue family can present to the
// surface.
func (p *PhysicalDevice) SupportsPresent(family uint32, surface vk.Surface) bool {
	var supported vk.Bool32
	vk.GetPhysicalDeviceSurfaceSupport(p.VKPhysicalDevice, family, surface, &supported)
	return supported == vk.True
}

// SurfaceCapabilities queries the surface capabilities for this device.
func (p *PhysicalDevice) SurfaceCapabilities(surface vk.Surface) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(p.VKPhysicalDevice, surface, &caps)); err != nil {
		return caps, err
	}
	caps.Deref()
	return caps, nil
}

// SurfaceFormats queries the surface formats for this device.
func (p *PhysicalDevice) SurfaceFormats(surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, formats)); err != nil {
		return nil, err
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats, nil
}

// SurfacePresentModes queries the present modes for this device.
func (p *PhysicalDevice) SurfacePresentModes(surface vk.Surface) ([]vk.PresentMode, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, nil)); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, modes)); err != nil {
		return nil, err
	}
	return modes, nil
}

func (p *PhysicalDevice) String() string {
	return p.DeviceName
}

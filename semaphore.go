package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// SemaphoreKey identifies a Semaphore entry.
type SemaphoreKey = Key[Semaphore]

// Semaphore owns one binary semaphore used to order queue operations.
// Parent: Device.
type Semaphore struct {
	Key         SemaphoreKey
	VKSemaphore vk.Semaphore

	Device DeviceKey
}

// CreateSemaphore creates a semaphore on the device.
func CreateSemaphore(reg *Registries, deviceKey DeviceKey) (SemaphoreKey, error) {
	device, ok := reg.Devices.Get(deviceKey)
	if !ok {
		return SemaphoreKey{}, notFound("device")
	}

	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var handle vk.Semaphore
	if err := vk.Error(vk.CreateSemaphore(device.VKDevice, &createInfo, nil, &handle)); err != nil {
		return SemaphoreKey{}, fmt.Errorf("creating semaphore: %w", err)
	}

	key := reg.Semaphores.Insert(func(key SemaphoreKey) Semaphore {
		return Semaphore{
			Key:         key,
			VKSemaphore: handle,
			Device:      deviceKey,
		}
	})
	return key, nil
}

// DestroySemaphore destroys the native semaphore and removes the entry.
func DestroySemaphore(reg *Registries, key SemaphoreKey) error {
	semaphore, ok := reg.Semaphores.Remove(key)
	if !ok {
		return notFound("semaphore")
	}
	device, ok := reg.Devices.Get(semaphore.Device)
	if !ok {
		return notFound("device")
	}
	vk.DestroySemaphore(device.VKDevice, semaphore.VKSemaphore, nil)
	return nil
}

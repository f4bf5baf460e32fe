package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// CommandPoolKey identifies a CommandPool entry.
type CommandPoolKey = Key[CommandPool]

// CommandPool owns the pool the static command buffers are allocated from.
// Parent: Device.
type CommandPool struct {
	Key           CommandPoolKey
	VKCommandPool vk.CommandPool

	Device      DeviceKey
	FamilyIndex uint32
}

// CreateCommandPool creates a command pool on the given queue family.
func CreateCommandPool(reg *Registries, deviceKey DeviceKey, family uint32) (CommandPoolKey, error) {
	device, ok := reg.Devices.Get(deviceKey)
	if !ok {
		return CommandPoolKey{}, notFound("device")
	}

	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
	}

	var handle vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(device.VKDevice, &createInfo, nil, &handle)); err != nil {
		return CommandPoolKey{}, fmt.Errorf("creating command pool: %w", err)
	}

	key := reg.CommandPools.Insert(func(key CommandPoolKey) CommandPool {
		return CommandPool{
			Key:           key,
			VKCommandPool: handle,
			Device:        deviceKey,
			FamilyIndex:   family,
		}
	})
	return key, nil
}

// DestroyCommandPool destroys the native pool and removes the entry. Command
// buffer entries allocated from the pool must have been removed first.
func DestroyCommandPool(reg *Registries, key CommandPoolKey) error {
	pool, ok := reg.CommandPools.Remove(key)
	if !ok {
		return notFound("command pool")
	}
	device, ok := reg.Devices.Get(pool.Device)
	if !ok {
		return notFound("device")
	}
	vk.DestroyCommandPool(device.VKDevice, pool.VKCommandPool, nil)
	return nil
}

// AllocateCommandBuffers allocates count primary command buffers from the
// pool and inserts them into the registry in allocation order.
func AllocateCommandBuffers(reg *Registries, poolKey CommandPoolKey, count int) ([]CommandBufferKey, error) {
	pool, ok := reg.CommandPools.Get(poolKey)
	if !ok {
		return nil, notFound("command pool")
	}
	device, ok := reg.Devices.Get(pool.Device)
	if !ok {
		return nil, notFound("device")
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool.VKCommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}

	handles := make([]vk.CommandBuffer, count)
	if err := vk.Error(vk.AllocateCommandBuffers(device.VKDevice, &allocateInfo, handles)); err != nil {
		return nil, fmt.Errorf("allocating command buffers: %w", err)
	}

	keys := make([]CommandBufferKey, count)
	for i, handle := range handles {
		keys[i] = reg.CommandBuffers.Insert(func(key CommandBufferKey) CommandBuffer {
			return CommandBuffer{
				Key:             key,
				VKCommandBuffer: handle,
				Pool:            poolKey,
			}
		})
	}
	return keys, nil
}

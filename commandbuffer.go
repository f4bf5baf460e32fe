package titan

import (
	vk "github.com/vulkan-go/vulkan"
)

// CommandBufferKey identifies a CommandBuffer entry.
type CommandBufferKey = Key[CommandBuffer]

// CommandBuffer wraps one pre-recorded command buffer. Parent: CommandPool.
type CommandBuffer struct {
	Key             CommandBufferKey
	VKCommandBuffer vk.CommandBuffer

	Pool CommandPoolKey
}

// FreeCommandBuffer returns the buffer to its pool and removes the entry.
func FreeCommandBuffer(reg *Registries, key CommandBufferKey) error {
	buffer, ok := reg.CommandBuffers.Remove(key)
	if !ok {
		return notFound("command buffer")
	}
	pool, ok := reg.CommandPools.Get(buffer.Pool)
	if !ok {
		return notFound("command pool")
	}
	device, ok := reg.Devices.Get(pool.Device)
	if !ok {
		return notFound("device")
	}
	vk.FreeCommandBuffers(device.VKDevice, pool.VKCommandPool, 1, []vk.CommandBuffer{buffer.VKCommandBuffer})
	return nil
}

// Begin starts recording.
func (c *CommandBuffer) Begin() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	return vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// End finishes recording.
func (c *CommandBuffer) End() error {
	return vk.Error(vk.EndCommandBuffer(c.VKCommandBuffer))
}

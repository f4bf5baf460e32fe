package titan

import (
	"fmt"
	"math"

	vk "github.com/vulkan-go/vulkan"
)

// NoTimeout makes a fence wait unbounded. The render path always waits
// unbounded; a GPU hang then blocks the host thread indefinitely, which is a
// documented risk of the single-threaded loop, not something this package
// mitigates.
const NoTimeout uint64 = math.MaxUint64

// FenceKey identifies a Fence entry.
type FenceKey = Key[Fence]

// Fence owns one fence used to signal submission completion back to the
// host. Parent: Device.
type Fence struct {
	Key     FenceKey
	VKFence vk.Fence

	Device DeviceKey
}

// CreateFence creates a fence, optionally in the signaled state. Frame
// fences start signaled so the first wait on a fresh slot passes.
func CreateFence(reg *Registries, deviceKey DeviceKey, signaled bool) (FenceKey, error) {
	device, ok := reg.Devices.Get(deviceKey)
	if !ok {
		return FenceKey{}, notFound("device")
	}

	createInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if err := vk.Error(vk.CreateFence(device.VKDevice, &createInfo, nil, &handle)); err != nil {
		return FenceKey{}, fmt.Errorf("creating fence: %w", err)
	}

	key := reg.Fences.Insert(func(key FenceKey) Fence {
		return Fence{
			Key:     key,
			VKFence: handle,
			Device:  deviceKey,
		}
	})
	return key, nil
}

// DestroyFence destroys the native fence and removes the entry.
func DestroyFence(reg *Registries, key FenceKey) error {
	fence, ok := reg.Fences.Remove(key)
	if !ok {
		return notFound("fence")
	}
	device, ok := reg.Devices.Get(fence.Device)
	if !ok {
		return notFound("device")
	}
	vk.DestroyFence(device.VKDevice, fence.VKFence, nil)
	return nil
}

// WaitFence blocks until the fence signals or the timeout elapses. A timeout
// yields ErrFenceWaitTimeout, distinct from a failed wait.
func WaitFence(reg *Registries, key FenceKey, timeout uint64) error {
	fence, ok := reg.Fences.Get(key)
	if !ok {
		return notFound("fence")
	}
	device, ok := reg.Devices.Get(fence.Device)
	if !ok {
		return notFound("device")
	}
	res := vk.WaitForFences(device.VKDevice, 1, []vk.Fence{fence.VKFence}, vk.True, timeout)
	return vkResult(res)
}

// ResetFence returns the fence to the unsignaled state.
func ResetFence(reg *Registries, key FenceKey) error {
	fence, ok := reg.Fences.Get(key)
	if !ok {
		return notFound("fence")
	}
	device, ok := reg.Devices.Get(fence.Device)
	if !ok {
		return notFound("device")
	}
	return vk.Error(vk.ResetFences(device.VKDevice, 1, []vk.Fence{fence.VKFence}))
}

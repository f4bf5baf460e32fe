package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// PipelineLayoutKey identifies a PipelineLayout entry.
type PipelineLayoutKey = Key[PipelineLayout]

// PipelineLayout owns the (empty) layout of the static graphics pipeline.
// Parent: Device.
type PipelineLayout struct {
	Key              PipelineLayoutKey
	VKPipelineLayout vk.PipelineLayout

	Device DeviceKey
}

// CreatePipelineLayout creates a layout with no descriptor sets and no push
// constants; the static pipeline binds nothing.
func CreatePipelineLayout(reg *Registries, deviceKey DeviceKey) (PipelineLayoutKey, error) {
	device, ok := reg.Devices.Get(deviceKey)
	if !ok {
		return PipelineLayoutKey{}, notFound("device")
	}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}

	var handle vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(device.VKDevice, &createInfo, nil, &handle)); err != nil {
		return PipelineLayoutKey{}, fmt.Errorf("creating pipeline layout: %w", err)
	}

	key := reg.PipelineLayouts.Insert(func(key PipelineLayoutKey) PipelineLayout {
		return PipelineLayout{
			Key:              key,
			VKPipelineLayout: handle,
			Device:           deviceKey,
		}
	})
	return key, nil
}

// DestroyPipelineLayout destroys the native layout and removes the entry.
func DestroyPipelineLayout(reg *Registries, key PipelineLayoutKey) error {
	layout, ok := reg.PipelineLayouts.Remove(key)
	if !ok {
		return notFound("pipeline layout")
	}
	device, ok := reg.Devices.Get(layout.Device)
	if !ok {
		return notFound("device")
	}
	vk.DestroyPipelineLayout(device.VKDevice, layout.VKPipelineLayout, nil)
	return nil
}

package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// RenderPassKey identifies a RenderPass entry.
type RenderPassKey = Key[RenderPass]

// RenderPass owns the render pass used by the presentation chain.
// Parent: Device.
type RenderPass struct {
	Key          RenderPassKey
	VKRenderPass vk.RenderPass

	Device DeviceKey
}

// CreateRenderPass creates a single-subpass render pass with one cleared
// color attachment in the swapchain's format, transitioning to the present
// layout.
func CreateRenderPass(reg *Registries, deviceKey DeviceKey, format vk.Format) (RenderPassKey, error) {
	device, ok := reg.Devices.Get(deviceKey)
	if !ok {
		return RenderPassKey{}, notFound("device")
	}

	attachments := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachments := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachments,
	}}

	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var handle vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(device.VKDevice, &createInfo, nil, &handle)); err != nil {
		return RenderPassKey{}, fmt.Errorf("creating render pass: %w", err)
	}

	key := reg.RenderPasses.Insert(func(key RenderPassKey) RenderPass {
		return RenderPass{
			Key:          key,
			VKRenderPass: handle,
			Device:       deviceKey,
		}
	})
	return key, nil
}

// DestroyRenderPass destroys the native render pass and removes the entry.
func DestroyRenderPass(reg *Registries, key RenderPassKey) error {
	renderPass, ok := reg.RenderPasses.Remove(key)
	if !ok {
		return notFound("render pass")
	}
	device, ok := reg.Devices.Get(renderPass.Device)
	if !ok {
		return notFound("device")
	}
	vk.DestroyRenderPass(device.VKDevice, renderPass.VKRenderPass, nil)
	return nil
}

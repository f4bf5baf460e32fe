package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// FramebufferKey identifies a Framebuffer entry.
type FramebufferKey = Key[Framebuffer]

// Framebuffer owns one framebuffer over a swapchain image view.
// Parents: Device, RenderPass and ImageView.
type Framebuffer struct {
	Key           FramebufferKey
	VKFramebuffer vk.Framebuffer

	Device     DeviceKey
	RenderPass RenderPassKey
	ImageView  ImageViewKey
}

// CreateFramebuffer creates a framebuffer binding the view as the single
// color attachment of the render pass.
func CreateFramebuffer(reg *Registries, renderPassKey RenderPassKey, viewKey ImageViewKey, extent vk.Extent2D) (FramebufferKey, error) {
	renderPass, ok := reg.RenderPasses.Get(renderPassKey)
	if !ok {
		return FramebufferKey{}, notFound("render pass")
	}
	view, ok := reg.ImageViews.Get(viewKey)
	if !ok {
		return FramebufferKey{}, notFound("image view")
	}
	device, ok := reg.Devices.Get(renderPass.Device)
	if !ok {
		return FramebufferKey{}, notFound("device")
	}

	attachments := []vk.ImageView{view.VKImageView}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass.VKRenderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(device.VKDevice, &createInfo, nil, &handle)); err != nil {
		return FramebufferKey{}, fmt.Errorf("creating framebuffer: %w", err)
	}

	key := reg.Framebuffers.Insert(func(key FramebufferKey) Framebuffer {
		return Framebuffer{
			Key:           key,
			VKFramebuffer: handle,
			Device:        renderPass.Device,
			RenderPass:    renderPassKey,
			ImageView:     viewKey,
		}
	})
	return key, nil
}

// DestroyFramebuffer destroys the native framebuffer and removes the entry.
func DestroyFramebuffer(reg *Registries, key FramebufferKey) error {
	framebuffer, ok := reg.Framebuffers.Remove(key)
	if !ok {
		return notFound("framebuffer")
	}
	device, ok := reg.Devices.Get(framebuffer.Device)
	if !ok {
		return notFound("device")
	}
	vk.DestroyFramebuffer(device.VKDevice, framebuffer.VKFramebuffer, nil)
	return nil
}

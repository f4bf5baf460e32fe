package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ImageViewKey identifies an ImageView entry.
type ImageViewKey = Key[ImageView]

// ImageView owns a color view over one swapchain image. Parents: Image and
// the Device the view was created on.
type ImageView struct {
	Key         ImageViewKey
	VKImageView vk.ImageView

	Image  ImageKey
	Device DeviceKey
}

// CreateImageView creates an identity-swizzled 2D color view over the image.
func CreateImageView(reg *Registries, imageKey ImageKey) (ImageViewKey, error) {
	image, ok := reg.Images.Get(imageKey)
	if !ok {
		return ImageViewKey{}, notFound("image")
	}
	swapchain, ok := reg.Swapchains.Get(image.Swapchain)
	if !ok {
		return ImageViewKey{}, notFound("swapchain")
	}
	device, ok := reg.Devices.Get(swapchain.Device)
	if !ok {
		return ImageViewKey{}, notFound("device")
	}

	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.VKImage,
		ViewType: vk.ImageViewType2d,
		Format:   image.Format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var handle vk.ImageView
	if err := vk.Error(vk.CreateImageView(device.VKDevice, &createInfo, nil, &handle)); err != nil {
		return ImageViewKey{}, fmt.Errorf("creating image view: %w", err)
	}

	key := reg.ImageViews.Insert(func(key ImageViewKey) ImageView {
		return ImageView{
			Key:         key,
			VKImageView: handle,
			Image:       imageKey,
			Device:      swapchain.Device,
		}
	})
	return key, nil
}

// DestroyImageView destroys the native view and removes the entry.
func DestroyImageView(reg *Registries, key ImageViewKey) error {
	view, ok := reg.ImageViews.Remove(key)
	if !ok {
		return notFound("image view")
	}
	device, ok := reg.Devices.Get(view.Device)
	if !ok {
		return notFound("device")
	}
	vk.DestroyImageView(device.VKDevice, view.VKImageView, nil)
	return nil
}

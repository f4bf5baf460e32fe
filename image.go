package titan

import (
	vk "github.com/vulkan-go/vulkan"
)

// ImageKey identifies an Image entry.
type ImageKey = Key[Image]

// Image wraps one swapchain image. Parent: Swapchain. The swapchain owns the
// native image memory, so removal from the registry is the whole teardown.
type Image struct {
	Key     ImageKey
	VKImage vk.Image

	Swapchain SwapchainKey

	Format vk.Format
}

// RemoveImage drops the entry from the registry.
func RemoveImage(reg *Registries, key ImageKey) error {
	if _, ok := reg.Images.Remove(key); !ok {
		return notFound("image")
	}
	return nil
}

package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// SwapchainKey identifies a Swapchain entry.
type SwapchainKey = Key[Swapchain]

// Swapchain owns the presentable image set. Parents: Device and Surface.
type Swapchain struct {
	Key         SwapchainKey
	VKSwapchain vk.Swapchain

	Device  DeviceKey
	Surface SurfaceKey

	Format     vk.Format
	ColorSpace vk.ColorSpace
	Extent     vk.Extent2D
}

// chooseSurfaceFormat prefers B8G8R8A8 UNORM and falls back to the first
// reported format.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode prefers Mailbox and falls back to FIFO, which is always
// available.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface's current extent when the driver fixes it,
// otherwise clamps the requested size to the supported range.
func chooseExtent(caps vk.SurfaceCapabilities, requested vk.Extent2D) vk.Extent2D {
	caps.CurrentExtent.Deref()
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	extent := requested
	if extent.Width < caps.MinImageExtent.Width {
		extent.Width = caps.MinImageExtent.Width
	}
	if extent.Width > caps.MaxImageExtent.Width {
		extent.Width = caps.MaxImageExtent.Width
	}
	if extent.Height < caps.MinImageExtent.Height {
		extent.Height = caps.MinImageExtent.Height
	}
	if extent.Height > caps.MaxImageExtent.Height {
		extent.Height = caps.MaxImageExtent.Height
	}
	return extent
}

// CreateSwapchain negotiates format, present mode, extent and image count
// against the surface and creates the swapchain.
func CreateSwapchain(reg *Registries, deviceKey DeviceKey, surfaceKey SurfaceKey, requested vk.Extent2D) (SwapchainKey, error) {
	device, ok := reg.Devices.Get(deviceKey)
	if !ok {
		return SwapchainKey{}, notFound("device")
	}
	surface, ok := reg.Surfaces.Get(surfaceKey)
	if !ok {
		return SwapchainKey{}, notFound("surface")
	}
	physical, ok := reg.PhysicalDevices.Get(device.PhysicalDevice)
	if !ok {
		return SwapchainKey{}, notFound("physical device")
	}

	formats, err := physical.SurfaceFormats(surface.VKSurface)
	if err != nil {
		return SwapchainKey{}, fmt.Errorf("querying surface formats: %w", err)
	}
	if len(formats) == 0 {
		return SwapchainKey{}, fmt.Errorf("surface reports no formats")
	}
	modes, err := physical.SurfacePresentModes(surface.VKSurface)
	if err != nil {
		return SwapchainKey{}, fmt.Errorf("querying present modes: %w", err)
	}
	caps, err := physical.SurfaceCapabilities(surface.VKSurface)
	if err != nil {
		return SwapchainKey{}, fmt.Errorf("querying surface capabilities: %w", err)
	}

	format := chooseSurfaceFormat(formats)
	presentMode := choosePresentMode(modes)
	extent := chooseExtent(caps, requested)

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface.VKSurface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	if device.GraphicsFamily != device.PresentFamily {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{device.GraphicsFamily, device.PresentFamily}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(device.VKDevice, &createInfo, nil, &handle)); err != nil {
		return SwapchainKey{}, fmt.Errorf("creating swapchain: %w", err)
	}

	key := reg.Swapchains.Insert(func(key SwapchainKey) Swapchain {
		return Swapchain{
			Key:         key,
			VKSwapchain: handle,
			Device:      deviceKey,
			Surface:     surfaceKey,
			Format:      format.Format,
			ColorSpace:  format.ColorSpace,
			Extent:      extent,
		}
	})
	return key, nil
}

// DestroySwapchain destroys the native swapchain and removes the entry. The
// swapchain's images must have been removed first.
func DestroySwapchain(reg *Registries, key SwapchainKey) error {
	swapchain, ok := reg.Swapchains.Remove(key)
	if !ok {
		return notFound("swapchain")
	}
	device, ok := reg.Devices.Get(swapchain.Device)
	if !ok {
		return notFound("device")
	}
	vk.DestroySwapchain(device.VKDevice, swapchain.VKSwapchain, nil)
	return nil
}

// EnumerateSwapchainImages inserts the swapchain's images into the image
// registry and returns their keys in image-index order.
func EnumerateSwapchainImages(reg *Registries, swapchainKey SwapchainKey) ([]ImageKey, error) {
	swapchain, ok := reg.Swapchains.Get(swapchainKey)
	if !ok {
		return nil, notFound("swapchain")
	}
	device, ok := reg.Devices.Get(swapchain.Device)
	if !ok {
		return nil, notFound("device")
	}

	var count uint32
	if err := vk.Error(vk.GetSwapchainImages(device.VKDevice, swapchain.VKSwapchain, &count, nil)); err != nil {
		return nil, fmt.Errorf("enumerating swapchain images: %w", err)
	}
	handles := make([]vk.Image, count)
	if err := vk.Error(vk.GetSwapchainImages(device.VKDevice, swapchain.VKSwapchain, &count, handles)); err != nil {
		return nil, fmt.Errorf("enumerating swapchain images: %w", err)
	}

	keys := make([]ImageKey, count)
	for i, handle := range handles {
		keys[i] = reg.Images.Insert(func(key ImageKey) Image {
			return Image{
				Key:       key,
				VKImage:   handle,
				Swapchain: swapchainKey,
				Format:    swapchain.Format,
			}
		})
	}
	return keys, nil
}

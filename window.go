package titan

import (
	vk "github.com/vulkan-go/vulkan"
)

// WindowSurface is the renderer's view of the windowing layer. The event
// loop, visibility handling and resize/close delivery stay with the caller;
// the renderer only needs the surface itself and the pixel size of its
// backing framebuffer.
type WindowSurface interface {
	// RequiredExtensions returns the instance extensions the windowing
	// system needs for presentation.
	RequiredExtensions() []string

	// CreateSurface creates the native surface for the given instance.
	CreateSurface(instance vk.Instance) (vk.Surface, error)

	// FramebufferSize returns the current framebuffer size in pixels.
	// Zero in either dimension means the window is minimized or hidden.
	FramebufferSize() (width, height int)
}

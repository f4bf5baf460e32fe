package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

// Renderer owns the full ordered chain of graphics resources, from the
// instance down to the per-frame synchronization primitives, and drives the
// steady-state frame loop. All native calls happen on the caller's thread;
// the renderer is not safe for concurrent use.
type Renderer struct {
	reg    *Registries
	logger *zap.Logger
	config *Config
	window WindowSurface

	instance       InstanceKey
	surface        SurfaceKey
	physicalDevice PhysicalDeviceKey
	device         DeviceKey
	graphicsQueue  QueueKey
	presentQueue   QueueKey

	chain *PresentChain
	slots []FrameSlot
	loop  *FrameLoop
}

// NewRenderer builds the whole resource chain: instance, surface, device
// selection, logical device and queues, presentation chain and frame slots.
// A failure at any step tears down everything already built, in reverse
// order, before the error is returned. A nil logger means no logging.
func NewRenderer(reg *Registries, config *Config, window WindowSurface, logger *zap.Logger) (r *Renderer, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r = &Renderer{
		reg:    reg,
		logger: logger,
		config: config,
		window: window,
	}

	var undo teardownStack
	defer func() {
		if err != nil {
			if unwindErr := undo.unwind(); unwindErr != nil {
				logger.Error("renderer unwind failed", zap.Error(unwindErr))
			}
		}
	}()

	r.instance, err = CreateInstance(reg, config, window.RequiredExtensions(), logger)
	if err != nil {
		return nil, fmt.Errorf("building renderer: %w", err)
	}
	undo.push(func() error { return DestroyInstance(reg, r.instance) })

	r.surface, err = CreateSurface(reg, r.instance, window)
	if err != nil {
		return nil, fmt.Errorf("building renderer: %w", err)
	}
	undo.push(func() error { return DestroySurface(reg, r.surface) })

	r.physicalDevice, err = SelectPhysicalDevice(reg, r.instance, r.surface, logger)
	if err != nil {
		return nil, fmt.Errorf("building renderer: %w", err)
	}
	undo.push(func() error { return RemovePhysicalDevice(reg, r.physicalDevice) })

	surface, ok := r.reg.Surfaces.Get(r.surface)
	if !ok {
		return nil, notFound("surface")
	}
	candidate, err := probeCandidate(reg, r.physicalDevice, surface.VKSurface)
	if err != nil {
		return nil, fmt.Errorf("building renderer: %w", err)
	}
	shared := candidate.sharedFamilies()
	if len(shared) == 0 {
		return nil, ErrNoSuitableDevice
	}
	family := shared[0]

	r.device, err = CreateDevice(reg, r.physicalDevice, r.surface, family, family)
	if err != nil {
		return nil, fmt.Errorf("building renderer: %w", err)
	}
	undo.push(func() error { return DestroyDevice(reg, r.device) })

	r.graphicsQueue, err = CreateQueue(reg, r.device, family)
	if err != nil {
		return nil, fmt.Errorf("building renderer: %w", err)
	}
	undo.push(func() error { return RemoveQueue(reg, r.graphicsQueue) })
	// Graphics and presentation share one queue family by selection.
	r.presentQueue = r.graphicsQueue

	width, height := window.FramebufferSize()
	extent := vk.Extent2D{Width: uint32(width), Height: uint32(height)}

	r.chain, err = BuildPresentChain(reg, r.device, r.surface, extent, config.VertexShaderSPIRV, config.FragmentShaderSPIRV, logger)
	if err != nil {
		return nil, fmt.Errorf("building renderer: %w", err)
	}
	undo.push(func() error { return DestroyPresentChain(reg, r.chain) })

	r.slots, err = CreateFrameSlots(reg, r.device, config.maxFramesInFlight())
	if err != nil {
		return nil, fmt.Errorf("building renderer: %w", err)
	}
	undo.push(func() error { return DestroyFrameSlots(reg, r.slots) })

	backend := NewVulkanFrameBackend(reg, r.device, r.chain.Swapchain, r.graphicsQueue, r.presentQueue)
	r.loop = NewFrameLoop(backend, r.slots, r.chain.CommandBuffers)

	undo.drop()
	logger.Info("renderer created",
		zap.Int("frames_in_flight", len(r.slots)),
		zap.Int("swapchain_images", len(r.chain.Images)))
	return r, nil
}

// Render draws and presents one frame. Errors are fatal to this iteration
// and must stop the caller's loop; recovery such as swapchain recreation is
// the caller's decision, via Resize.
func (r *Renderer) Render() error {
	return r.loop.RenderFrame()
}

// Wait blocks until the device is idle. Call before teardown so no GPU work
// is in flight when resources are destroyed.
func (r *Renderer) Wait() error {
	return DeviceWaitIdle(r.reg, r.device)
}

// Resize rebuilds everything that depends on the swapchain after the window
// changed size. Zero width or height means the window is minimized: the
// call is a no-op and nothing is rebuilt.
func (r *Renderer) Resize(width, height int) error {
	if width == 0 || height == 0 {
		r.logger.Debug("resize ignored, window minimized")
		return nil
	}

	if err := r.Wait(); err != nil {
		return fmt.Errorf("draining device before resize: %w", err)
	}
	if err := DestroyFrameSlots(r.reg, r.slots); err != nil {
		return fmt.Errorf("destroying frame slots: %w", err)
	}
	if err := DestroyPresentChain(r.reg, r.chain); err != nil {
		return fmt.Errorf("destroying present chain: %w", err)
	}

	extent := vk.Extent2D{Width: uint32(width), Height: uint32(height)}
	chain, err := BuildPresentChain(r.reg, r.device, r.surface, extent, r.config.VertexShaderSPIRV, r.config.FragmentShaderSPIRV, r.logger)
	if err != nil {
		return fmt.Errorf("rebuilding present chain: %w", err)
	}
	slots, err := CreateFrameSlots(r.reg, r.device, r.config.maxFramesInFlight())
	if err != nil {
		DestroyPresentChain(r.reg, chain)
		return fmt.Errorf("rebuilding frame slots: %w", err)
	}

	r.chain = chain
	r.slots = slots
	backend := NewVulkanFrameBackend(r.reg, r.device, r.chain.Swapchain, r.graphicsQueue, r.presentQueue)
	r.loop = NewFrameLoop(backend, r.slots, r.chain.CommandBuffers)

	r.logger.Info("renderer resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

// Destroy waits for the device to go idle and destroys every resource in
// reverse creation order. Each native object is destroyed exactly once; the
// first error is reported after all teardown steps have run.
func (r *Renderer) Destroy() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	keep(r.Wait())
	keep(DestroyFrameSlots(r.reg, r.slots))
	keep(DestroyPresentChain(r.reg, r.chain))
	keep(RemoveQueue(r.reg, r.graphicsQueue))
	keep(DestroyDevice(r.reg, r.device))
	keep(RemovePhysicalDevice(r.reg, r.physicalDevice))
	keep(DestroySurface(r.reg, r.surface))
	keep(DestroyInstance(r.reg, r.instance))

	r.logger.Info("renderer destroyed")
	return first
}

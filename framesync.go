package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// FrameSlot is one position in the ring of in-flight frames. Each slot owns
// its own pair of semaphores and its fence; slots are never shared between
// frames that could overlap.
type FrameSlot struct {
	// ImageAvailable is signaled when the acquired swapchain image is
	// ready to be rendered to.
	ImageAvailable SemaphoreKey
	// RenderFinished is signaled when rendering into the image completes.
	RenderFinished SemaphoreKey
	// InFlight is signaled when the slot's submission fully completes on
	// the GPU. Created signaled so a fresh slot's first wait passes.
	InFlight FenceKey
}

// CreateFrameSlots creates n frame slots. On failure everything already
// created is destroyed before the error is returned.
func CreateFrameSlots(reg *Registries, deviceKey DeviceKey, n int) (slots []FrameSlot, err error) {
	var undo teardownStack
	defer func() {
		if err != nil {
			undo.unwind()
		}
	}()

	slots = make([]FrameSlot, 0, n)
	for i := 0; i < n; i++ {
		var slot FrameSlot

		slot.ImageAvailable, err = CreateSemaphore(reg, deviceKey)
		if err != nil {
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		imageAvailable := slot.ImageAvailable
		undo.push(func() error { return DestroySemaphore(reg, imageAvailable) })

		slot.RenderFinished, err = CreateSemaphore(reg, deviceKey)
		if err != nil {
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		renderFinished := slot.RenderFinished
		undo.push(func() error { return DestroySemaphore(reg, renderFinished) })

		slot.InFlight, err = CreateFence(reg, deviceKey, true)
		if err != nil {
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		inFlight := slot.InFlight
		undo.push(func() error { return DestroyFence(reg, inFlight) })

		slots = append(slots, slot)
	}

	undo.drop()
	return slots, nil
}

// DestroyFrameSlots destroys every slot's synchronization objects. The first
// error is reported after all slots have been processed.
func DestroyFrameSlots(reg *Registries, slots []FrameSlot) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for _, slot := range slots {
		keep(DestroyFence(reg, slot.InFlight))
		keep(DestroySemaphore(reg, slot.RenderFinished))
		keep(DestroySemaphore(reg, slot.ImageAvailable))
	}
	return first
}

// FrameBackend performs the native waits and queue operations the frame
// loop needs. The production implementation resolves keys through the
// registries and talks to the device; tests substitute fakes.
type FrameBackend interface {
	// WaitFence blocks until the fence signals or timeout elapses
	// (ErrFenceWaitTimeout).
	WaitFence(fence FenceKey, timeout uint64) error
	// ResetFence returns the fence to the unsignaled state.
	ResetFence(fence FenceKey) error
	// AcquireImage acquires the next presentable swapchain image,
	// signaling the semaphore when the image is ready.
	AcquireImage(signal SemaphoreKey) (imageIndex int, err error)
	// Submit submits the command buffer to the graphics queue: wait on
	// waitSem at the color-output stage, signal signalSem on completion,
	// signal fence when the submission fully completes.
	Submit(cmd CommandBufferKey, waitSem, signalSem SemaphoreKey, fence FenceKey) error
	// Present queues the image for presentation, waiting on waitSem.
	Present(imageIndex int, waitSem SemaphoreKey) error
}

// FrameLoop drives the bounded multi-buffered frame-submission protocol: a
// ring of N frame slots overlapping CPU recording-free submission with GPU
// execution, without ever reusing a slot or a swapchain image that is still
// in flight.
type FrameLoop struct {
	backend        FrameBackend
	slots          []FrameSlot
	commandBuffers []CommandBufferKey

	// imagesInFlight records, per swapchain image index, the frame fence
	// of the submission currently drawing into that image. The image
	// count may differ from the slot count.
	imagesInFlight []FenceKey

	frameIndex int
}

// NewFrameLoop creates a frame loop over the given slots and the per-image
// pre-recorded command buffers.
func NewFrameLoop(backend FrameBackend, slots []FrameSlot, commandBuffers []CommandBufferKey) *FrameLoop {
	return &FrameLoop{
		backend:        backend,
		slots:          slots,
		commandBuffers: commandBuffers,
		imagesInFlight: make([]FenceKey, len(commandBuffers)),
	}
}

// FrameIndex returns the slot the next RenderFrame call will use.
func (l *FrameLoop) FrameIndex() int {
	return l.frameIndex
}

// RenderFrame runs one iteration of the acquire/submit/present protocol.
// Every wait on the render path is unbounded. Any failure is fatal to this
// call and left to the caller; there is no retry and no swapchain
// recreation here.
func (l *FrameLoop) RenderFrame() error {
	slot := l.slots[l.frameIndex]

	// The GPU may still be executing the submission from N frames ago on
	// this slot; its command buffer and semaphores must not be touched
	// until that completes.
	if err := l.backend.WaitFence(slot.InFlight, NoTimeout); err != nil {
		return fmt.Errorf("waiting for frame fence: %w", err)
	}

	imageIndex, err := l.backend.AcquireImage(slot.ImageAvailable)
	if err != nil {
		return fmt.Errorf("acquiring swapchain image: %w", err)
	}
	if imageIndex < 0 || imageIndex >= len(l.commandBuffers) {
		return fmt.Errorf("acquired image index %d out of range [0, %d)", imageIndex, len(l.commandBuffers))
	}

	// When the swapchain has more images than there are slots, the
	// acquired image may still be owned by an older frame's submission.
	if owner := l.imagesInFlight[imageIndex]; !owner.IsNil() {
		if err := l.backend.WaitFence(owner, NoTimeout); err != nil {
			return fmt.Errorf("waiting for image owner fence: %w", err)
		}
	}
	l.imagesInFlight[imageIndex] = slot.InFlight

	if err := l.backend.ResetFence(slot.InFlight); err != nil {
		return fmt.Errorf("resetting frame fence: %w", err)
	}
	if err := l.backend.Submit(l.commandBuffers[imageIndex], slot.ImageAvailable, slot.RenderFinished, slot.InFlight); err != nil {
		return fmt.Errorf("submitting frame: %w", err)
	}
	if err := l.backend.Present(imageIndex, slot.RenderFinished); err != nil {
		return fmt.Errorf("presenting image %d: %w", imageIndex, err)
	}

	l.frameIndex = (l.frameIndex + 1) % len(l.slots)
	return nil
}

// vulkanBackend is the production FrameBackend: keys resolve through the
// registries and every operation is a native call against the device.
type vulkanBackend struct {
	reg           *Registries
	device        DeviceKey
	swapchain     SwapchainKey
	graphicsQueue QueueKey
	presentQueue  QueueKey
}

// NewVulkanFrameBackend creates the production backend over the given
// device, swapchain and queues.
func NewVulkanFrameBackend(reg *Registries, device DeviceKey, swapchain SwapchainKey, graphicsQueue, presentQueue QueueKey) FrameBackend {
	return &vulkanBackend{
		reg:           reg,
		device:        device,
		swapchain:     swapchain,
		graphicsQueue: graphicsQueue,
		presentQueue:  presentQueue,
	}
}

func (b *vulkanBackend) WaitFence(fence FenceKey, timeout uint64) error {
	return WaitFence(b.reg, fence, timeout)
}

func (b *vulkanBackend) ResetFence(fence FenceKey) error {
	return ResetFence(b.reg, fence)
}

func (b *vulkanBackend) AcquireImage(signal SemaphoreKey) (int, error) {
	device, ok := b.reg.Devices.Get(b.device)
	if !ok {
		return 0, notFound("device")
	}
	swapchain, ok := b.reg.Swapchains.Get(b.swapchain)
	if !ok {
		return 0, notFound("swapchain")
	}
	semaphore, ok := b.reg.Semaphores.Get(signal)
	if !ok {
		return 0, notFound("semaphore")
	}

	var imageIndex uint32
	res := vk.AcquireNextImage(device.VKDevice, swapchain.VKSwapchain, NoTimeout, semaphore.VKSemaphore, vk.NullFence, &imageIndex)
	if err := vkResult(res); err != nil {
		return 0, err
	}
	return int(imageIndex), nil
}

func (b *vulkanBackend) Submit(cmd CommandBufferKey, waitSem, signalSem SemaphoreKey, fence FenceKey) error {
	queue, ok := b.reg.Queues.Get(b.graphicsQueue)
	if !ok {
		return notFound("graphics queue")
	}
	buffer, ok := b.reg.CommandBuffers.Get(cmd)
	if !ok {
		return notFound("command buffer")
	}
	wait, ok := b.reg.Semaphores.Get(waitSem)
	if !ok {
		return notFound("semaphore")
	}
	signal, ok := b.reg.Semaphores.Get(signalSem)
	if !ok {
		return notFound("semaphore")
	}
	frameFence, ok := b.reg.Fences.Get(fence)
	if !ok {
		return notFound("fence")
	}

	submits := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{wait.VKSemaphore},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{buffer.VKCommandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal.VKSemaphore},
	}}

	return vk.Error(vk.QueueSubmit(queue.VKQueue, 1, submits, frameFence.VKFence))
}

func (b *vulkanBackend) Present(imageIndex int, waitSem SemaphoreKey) error {
	queue, ok := b.reg.Queues.Get(b.presentQueue)
	if !ok {
		return notFound("present queue")
	}
	swapchain, ok := b.reg.Swapchains.Get(b.swapchain)
	if !ok {
		return notFound("swapchain")
	}
	wait, ok := b.reg.Semaphores.Get(waitSem)
	if !ok {
		return notFound("semaphore")
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.VKSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.VKSwapchain},
		PImageIndices:      []uint32{uint32(imageIndex)},
	}

	return vk.Error(vk.QueuePresent(queue.VKQueue, &presentInfo))
}

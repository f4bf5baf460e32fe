package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

// PresentChain holds the keys of every object needed to present frames, in
// creation order. The whole chain is rebuilt on resize; nothing in it is
// mutated after construction.
type PresentChain struct {
	Swapchain      SwapchainKey
	Images         []ImageKey
	ImageViews     []ImageViewKey
	RenderPass     RenderPassKey
	PipelineLayout PipelineLayoutKey
	Pipeline       GraphicsPipelineKey
	Framebuffers   []FramebufferKey
	CommandPool    CommandPoolKey
	CommandBuffers []CommandBufferKey

	Extent vk.Extent2D
}

// teardownStack collects undo steps during construction so a failure midway
// can unwind everything already built, in reverse order, before the error
// propagates. Each step runs at most once.
type teardownStack struct {
	steps []func() error
}

func (t *teardownStack) push(step func() error) {
	t.steps = append(t.steps, step)
}

// unwind runs the collected steps newest-first and clears the stack. Every
// step runs even if an earlier one fails; the first error is returned.
func (t *teardownStack) unwind() error {
	var first error
	for i := len(t.steps) - 1; i >= 0; i-- {
		if err := t.steps[i](); err != nil && first == nil {
			first = err
		}
	}
	t.steps = nil
	return first
}

// drop forgets the collected steps without running them.
func (t *teardownStack) drop() {
	t.steps = nil
}

// BuildPresentChain constructs the presentation chain in dependency order:
// swapchain, per-image views, render pass, pipeline layout, graphics
// pipeline, per-image framebuffers, command pool and per-image command
// buffers, then records the static draw once. If any step fails, everything
// already constructed is torn down in reverse before the error is returned.
func BuildPresentChain(reg *Registries, deviceKey DeviceKey, surfaceKey SurfaceKey, extent vk.Extent2D, vertexSPIRV, fragmentSPIRV []byte, logger *zap.Logger) (chain *PresentChain, err error) {
	var undo teardownStack
	defer func() {
		if err != nil {
			if unwindErr := undo.unwind(); unwindErr != nil {
				logger.Error("present chain unwind failed", zap.Error(unwindErr))
			}
		}
	}()

	device, ok := reg.Devices.Get(deviceKey)
	if !ok {
		return nil, notFound("device")
	}

	chain = &PresentChain{}

	chain.Swapchain, err = CreateSwapchain(reg, deviceKey, surfaceKey, extent)
	if err != nil {
		return nil, err
	}
	undo.push(func() error { return DestroySwapchain(reg, chain.Swapchain) })

	swapchain, ok := reg.Swapchains.Get(chain.Swapchain)
	if !ok {
		return nil, notFound("swapchain")
	}
	chain.Extent = swapchain.Extent

	chain.Images, err = EnumerateSwapchainImages(reg, chain.Swapchain)
	if err != nil {
		return nil, err
	}
	for _, imageKey := range chain.Images {
		key := imageKey
		undo.push(func() error { return RemoveImage(reg, key) })
	}

	for _, imageKey := range chain.Images {
		viewKey, viewErr := CreateImageView(reg, imageKey)
		if viewErr != nil {
			return nil, viewErr
		}
		chain.ImageViews = append(chain.ImageViews, viewKey)
		undo.push(func() error { return DestroyImageView(reg, viewKey) })
	}

	chain.RenderPass, err = CreateRenderPass(reg, deviceKey, swapchain.Format)
	if err != nil {
		return nil, err
	}
	undo.push(func() error { return DestroyRenderPass(reg, chain.RenderPass) })

	chain.PipelineLayout, err = CreatePipelineLayout(reg, deviceKey)
	if err != nil {
		return nil, err
	}
	undo.push(func() error { return DestroyPipelineLayout(reg, chain.PipelineLayout) })

	chain.Pipeline, err = CreateGraphicsPipeline(reg, chain.RenderPass, chain.PipelineLayout, chain.Extent, vertexSPIRV, fragmentSPIRV)
	if err != nil {
		return nil, err
	}
	undo.push(func() error { return DestroyGraphicsPipeline(reg, chain.Pipeline) })

	for _, viewKey := range chain.ImageViews {
		framebufferKey, fbErr := CreateFramebuffer(reg, chain.RenderPass, viewKey, chain.Extent)
		if fbErr != nil {
			return nil, fbErr
		}
		chain.Framebuffers = append(chain.Framebuffers, framebufferKey)
		undo.push(func() error { return DestroyFramebuffer(reg, framebufferKey) })
	}

	chain.CommandPool, err = CreateCommandPool(reg, deviceKey, device.GraphicsFamily)
	if err != nil {
		return nil, err
	}
	undo.push(func() error { return DestroyCommandPool(reg, chain.CommandPool) })

	chain.CommandBuffers, err = AllocateCommandBuffers(reg, chain.CommandPool, len(chain.Images))
	if err != nil {
		return nil, err
	}
	for _, bufferKey := range chain.CommandBuffers {
		key := bufferKey
		undo.push(func() error { return FreeCommandBuffer(reg, key) })
	}

	if err = recordCommands(reg, chain); err != nil {
		return nil, err
	}

	undo.drop()
	logger.Info("present chain built",
		zap.Int("images", len(chain.Images)),
		zap.Uint32("width", chain.Extent.Width),
		zap.Uint32("height", chain.Extent.Height))
	return chain, nil
}

// recordCommands records each command buffer exactly once: clear to black,
// bind the pipeline, draw three vertices. Content never changes afterwards;
// drawing anything else means rebuilding the chain.
func recordCommands(reg *Registries, chain *PresentChain) error {
	renderPass, ok := reg.RenderPasses.Get(chain.RenderPass)
	if !ok {
		return notFound("render pass")
	}
	pipeline, ok := reg.Pipelines.Get(chain.Pipeline)
	if !ok {
		return notFound("graphics pipeline")
	}

	clearValues := []vk.ClearValue{
		vk.NewClearValue([]float32{0.0, 0.0, 0.0, 1.0}),
	}

	for i, bufferKey := range chain.CommandBuffers {
		buffer, ok := reg.CommandBuffers.Get(bufferKey)
		if !ok {
			return notFound("command buffer")
		}
		framebuffer, ok := reg.Framebuffers.Get(chain.Framebuffers[i])
		if !ok {
			return notFound("framebuffer")
		}

		if err := buffer.Begin(); err != nil {
			return fmt.Errorf("beginning command buffer %d: %w", i, err)
		}

		beginInfo := vk.RenderPassBeginInfo{
			SType:       vk.StructureTypeRenderPassBeginInfo,
			RenderPass:  renderPass.VKRenderPass,
			Framebuffer: framebuffer.VKFramebuffer,
			RenderArea: vk.Rect2D{
				Extent: chain.Extent,
			},
			ClearValueCount: uint32(len(clearValues)),
			PClearValues:    clearValues,
		}
		vk.CmdBeginRenderPass(buffer.VKCommandBuffer, &beginInfo, vk.SubpassContentsInline)
		vk.CmdBindPipeline(buffer.VKCommandBuffer, vk.PipelineBindPointGraphics, pipeline.VKPipeline)
		vk.CmdDraw(buffer.VKCommandBuffer, 3, 1, 0, 0)
		vk.CmdEndRenderPass(buffer.VKCommandBuffer)

		if err := buffer.End(); err != nil {
			return fmt.Errorf("ending command buffer %d: %w", i, err)
		}
	}
	return nil
}

// DestroyPresentChain tears the chain down in strict reverse creation
// order. Every object is destroyed exactly once; the first error is
// reported after all steps have run.
func DestroyPresentChain(reg *Registries, chain *PresentChain) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	for _, key := range chain.CommandBuffers {
		keep(FreeCommandBuffer(reg, key))
	}
	keep(DestroyCommandPool(reg, chain.CommandPool))
	for _, key := range chain.Framebuffers {
		keep(DestroyFramebuffer(reg, key))
	}
	keep(DestroyGraphicsPipeline(reg, chain.Pipeline))
	keep(DestroyPipelineLayout(reg, chain.PipelineLayout))
	keep(DestroyRenderPass(reg, chain.RenderPass))
	for _, key := range chain.ImageViews {
		keep(DestroyImageView(reg, key))
	}
	for _, key := range chain.Images {
		keep(RemoveImage(reg, key))
	}
	keep(DestroySwapchain(reg, chain.Swapchain))
	return first
}

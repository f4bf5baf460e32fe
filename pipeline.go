package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// GraphicsPipelineKey identifies a GraphicsPipeline entry.
type GraphicsPipelineKey = Key[GraphicsPipeline]

// GraphicsPipeline owns the static graphics pipeline. Parents: RenderPass
// and PipelineLayout.
type GraphicsPipeline struct {
	Key        GraphicsPipelineKey
	VKPipeline vk.Pipeline

	RenderPass     RenderPassKey
	PipelineLayout PipelineLayoutKey
}

// CreateGraphicsPipeline builds the one fixed pipeline this renderer ever
// uses: the given vertex and fragment SPIR-V, no vertex input, a triangle
// list, a viewport covering the full extent, and no blending. Shader modules
// live only for the duration of this call.
func CreateGraphicsPipeline(reg *Registries, renderPassKey RenderPassKey, layoutKey PipelineLayoutKey, extent vk.Extent2D, vertexSPIRV, fragmentSPIRV []byte) (GraphicsPipelineKey, error) {
	renderPass, ok := reg.RenderPasses.Get(renderPassKey)
	if !ok {
		return GraphicsPipelineKey{}, notFound("render pass")
	}
	layout, ok := reg.PipelineLayouts.Get(layoutKey)
	if !ok {
		return GraphicsPipelineKey{}, notFound("pipeline layout")
	}
	device, ok := reg.Devices.Get(renderPass.Device)
	if !ok {
		return GraphicsPipelineKey{}, notFound("device")
	}

	vertex, err := NewShaderModule(device.VKDevice, vertexSPIRV)
	if err != nil {
		return GraphicsPipelineKey{}, fmt.Errorf("vertex shader: %w", err)
	}
	defer vertex.Destroy()
	fragment, err := NewShaderModule(device.VKDevice, fragmentSPIRV)
	if err != nil {
		return GraphicsPipelineKey{}, fmt.Errorf("fragment shader: %w", err)
	}
	defer fragment.Destroy()

	stages := []vk.PipelineShaderStageCreateInfo{
		vertex.StageCreateInfo(vk.ShaderStageVertexBit, "main"),
		fragment.StageCreateInfo(vk.ShaderStageFragmentBit, "main"),
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	viewports := []vk.Viewport{{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MaxDepth: 1.0,
	}}
	scissors := []vk.Rect2D{{Extent: extent}}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    viewports,
		ScissorCount:  1,
		PScissors:     scissors,
	}

	rasterization := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceClockwise,
		LineWidth:   1.0,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	blendAttachments := []vk.PipelineColorBlendAttachmentState{{
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
	}}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    blendAttachments,
	}

	createInfos := []vk.GraphicsPipelineCreateInfo{{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PColorBlendState:    &colorBlend,
		Layout:              layout.VKPipelineLayout,
		RenderPass:          renderPass.VKRenderPass,
	}}

	pipelines := make([]vk.Pipeline, 1)
	err = vk.Error(vk.CreateGraphicsPipelines(device.VKDevice, vk.NullPipelineCache, 1, createInfos, nil, pipelines))
	if err != nil {
		return GraphicsPipelineKey{}, fmt.Errorf("creating graphics pipeline: %w", err)
	}

	key := reg.Pipelines.Insert(func(key GraphicsPipelineKey) GraphicsPipeline {
		return GraphicsPipeline{
			Key:            key,
			VKPipeline:     pipelines[0],
			RenderPass:     renderPassKey,
			PipelineLayout: layoutKey,
		}
	})
	return key, nil
}

// DestroyGraphicsPipeline destroys the native pipeline and removes the
// entry.
func DestroyGraphicsPipeline(reg *Registries, key GraphicsPipelineKey) error {
	pipeline, ok := reg.Pipelines.Remove(key)
	if !ok {
		return notFound("graphics pipeline")
	}
	renderPass, ok := reg.RenderPasses.Get(pipeline.RenderPass)
	if !ok {
		return notFound("render pass")
	}
	device, ok := reg.Devices.Get(renderPass.Device)
	if !ok {
		return notFound("device")
	}
	vk.DestroyPipeline(device.VKDevice, pipeline.VKPipeline, nil)
	return nil
}

package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ShaderModule is a transient wrapper around a compiled SPIR-V module. It is
// not registry-backed: modules are only needed while the pipeline is being
// created and are destroyed right after.
type ShaderModule struct {
	VKShaderModule vk.ShaderModule

	device vk.Device
}

// NewShaderModule creates a shader module from SPIR-V bytes.
func NewShaderModule(device vk.Device, code []byte) (*ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V code length %d is not a positive multiple of 4", len(code))
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}

	var handle vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(device, &createInfo, nil, &handle)); err != nil {
		return nil, fmt.Errorf("creating shader module: %w", err)
	}
	return &ShaderModule{VKShaderModule: handle, device: device}, nil
}

// StageCreateInfo describes this module as one pipeline shader stage.
func (s *ShaderModule) StageCreateInfo(stage vk.ShaderStageFlagBits, entryPoint string) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: s.VKShaderModule,
		PName:  safeString(entryPoint),
	}
}

// Destroy releases the native module.
func (s *ShaderModule) Destroy() {
	vk.DestroyShaderModule(s.device, s.VKShaderModule, nil)
}

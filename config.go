package titan

import (
	vk "github.com/vulkan-go/vulkan"
)

// EngineName identifies this engine to the Vulkan driver.
const EngineName = "titan"

// EngineVersion is the version reported alongside EngineName.
var EngineVersion = Version{Major: 0, Minor: 1, Patch: 0}

// DefaultMaxFramesInFlight is used when Config.MaxFramesInFlight is zero.
const DefaultMaxFramesInFlight = 2

// Version is a semantic version triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

// VKVersion packs the version into the Vulkan encoding.
func (v Version) VKVersion() uint32 {
	return vk.MakeVersion(v.Major, v.Minor, v.Patch)
}

// Config carries everything the renderer consumes at construction time.
// It is not read again afterwards.
type Config struct {
	// AppName is the application name handed to the driver.
	AppName string
	// AppVersion is the application version handed to the driver.
	AppVersion Version
	// Validation enables the Khronos validation layer and its debug
	// report extension. Meant for debug builds only.
	Validation bool
	// MaxFramesInFlight is the number of frame slots the renderer cycles
	// through. Zero means DefaultMaxFramesInFlight.
	MaxFramesInFlight int

	// VertexShaderSPIRV and FragmentShaderSPIRV are the precompiled
	// SPIR-V programs of the one static pipeline. Shader compilation is
	// outside this package.
	VertexShaderSPIRV   []byte
	FragmentShaderSPIRV []byte
}

func (c *Config) maxFramesInFlight() int {
	if c.MaxFramesInFlight <= 0 {
		return DefaultMaxFramesInFlight
	}
	return c.MaxFramesInFlight
}

package titan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

func TestResizeToZeroIsNoOp(t *testing.T) {
	// A minimized window reports a zero framebuffer; nothing may be
	// rebuilt until it has an extent again.
	r := &Renderer{logger: zap.NewNop()}

	require.NoError(t, r.Resize(0, 480))
	require.NoError(t, r.Resize(640, 0))
	require.NoError(t, r.Resize(0, 0))
}

func TestConfigMaxFramesInFlight(t *testing.T) {
	var config Config
	assert.Equal(t, DefaultMaxFramesInFlight, config.maxFramesInFlight())

	config.MaxFramesInFlight = 3
	assert.Equal(t, 3, config.maxFramesInFlight())

	config.MaxFramesInFlight = -1
	assert.Equal(t, DefaultMaxFramesInFlight, config.maxFramesInFlight())
}

func TestVersionPacking(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Patch: 3}
	assert.Equal(t, uint32(vk.MakeVersion(1, 2, 3)), v.VKVersion())
}

func TestVKResultMapping(t *testing.T) {
	assert.NoError(t, vkResult(vk.Success))
	assert.ErrorIs(t, vkResult(vk.Timeout), ErrFenceWaitTimeout)
	assert.Error(t, vkResult(vk.ErrorDeviceLost))
}

func TestNotFoundWrapsSentinel(t *testing.T) {
	err := notFound("swapchain")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "swapchain")
}

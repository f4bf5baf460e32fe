package titan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func physicalDeviceFixture(reg *Registries, name string, deviceType vk.PhysicalDeviceType) PhysicalDeviceKey {
	return reg.PhysicalDevices.Insert(func(key PhysicalDeviceKey) PhysicalDevice {
		return PhysicalDevice{Key: key, DeviceName: name, DeviceType: deviceType}
	})
}

func TestSelectCandidateOnlyPresentableWins(t *testing.T) {
	reg := NewRegistries()
	first := physicalDeviceFixture(reg, "gpu0", vk.PhysicalDeviceTypeDiscreteGpu)
	second := physicalDeviceFixture(reg, "gpu1", vk.PhysicalDeviceTypeIntegratedGpu)
	third := physicalDeviceFixture(reg, "gpu2", vk.PhysicalDeviceTypeDiscreteGpu)

	// Only the second device can both draw and present from one family.
	candidates := []deviceCandidate{
		{key: first, deviceType: vk.PhysicalDeviceTypeDiscreteGpu, graphicsFamilies: []uint32{0}},
		{key: second, deviceType: vk.PhysicalDeviceTypeIntegratedGpu, graphicsFamilies: []uint32{0}, presentFamilies: []uint32{0}},
		{key: third, deviceType: vk.PhysicalDeviceTypeDiscreteGpu, presentFamilies: []uint32{1}},
	}

	winner, rejected, err := selectCandidate(candidates)
	require.NoError(t, err)
	assert.Equal(t, second, winner)
	assert.ElementsMatch(t, []PhysicalDeviceKey{first, third}, rejected)

	// Pruning the rejected keys leaves exactly the winner registered.
	for _, key := range rejected {
		reg.PhysicalDevices.Remove(key)
	}
	assert.Equal(t, 1, reg.PhysicalDevices.Len())
	_, ok := reg.PhysicalDevices.Get(winner)
	assert.True(t, ok)
}

func TestSelectCandidateNoneSuitable(t *testing.T) {
	reg := NewRegistries()
	first := physicalDeviceFixture(reg, "gpu0", vk.PhysicalDeviceTypeDiscreteGpu)
	second := physicalDeviceFixture(reg, "gpu1", vk.PhysicalDeviceTypeCpu)

	candidates := []deviceCandidate{
		{key: first, deviceType: vk.PhysicalDeviceTypeDiscreteGpu, presentFamilies: []uint32{0}},
		{key: second, deviceType: vk.PhysicalDeviceTypeCpu, graphicsFamilies: []uint32{0}},
	}

	winner, rejected, err := selectCandidate(candidates)
	require.ErrorIs(t, err, ErrNoSuitableDevice)
	assert.True(t, winner.IsNil())
	assert.ElementsMatch(t, []PhysicalDeviceKey{first, second}, rejected)
}

func TestSelectCandidateRanking(t *testing.T) {
	integrated := deviceCandidate{
		key:              PhysicalDeviceKey{index: 0, generation: 1},
		deviceType:       vk.PhysicalDeviceTypeIntegratedGpu,
		graphicsFamilies: []uint32{0},
		presentFamilies:  []uint32{0},
	}
	discrete := deviceCandidate{
		key:              PhysicalDeviceKey{index: 1, generation: 1},
		deviceType:       vk.PhysicalDeviceTypeDiscreteGpu,
		graphicsFamilies: []uint32{0},
		presentFamilies:  []uint32{0},
	}

	winner, _, err := selectCandidate([]deviceCandidate{integrated, discrete})
	require.NoError(t, err)
	assert.Equal(t, discrete.key, winner, "discrete outranks integrated")

	winner, _, err = selectCandidate([]deviceCandidate{discrete, integrated})
	require.NoError(t, err)
	assert.Equal(t, discrete.key, winner)
}

func TestSelectCandidateTieKeepsEnumerationOrder(t *testing.T) {
	first := deviceCandidate{
		key:              PhysicalDeviceKey{index: 0, generation: 1},
		deviceType:       vk.PhysicalDeviceTypeDiscreteGpu,
		graphicsFamilies: []uint32{0},
		presentFamilies:  []uint32{0},
	}
	second := deviceCandidate{
		key:              PhysicalDeviceKey{index: 1, generation: 1},
		deviceType:       vk.PhysicalDeviceTypeDiscreteGpu,
		graphicsFamilies: []uint32{0},
		presentFamilies:  []uint32{0},
	}

	for i := 0; i < 3; i++ {
		winner, _, err := selectCandidate([]deviceCandidate{first, second})
		require.NoError(t, err)
		assert.Equal(t, first.key, winner, "equal scores resolve to the first candidate")
	}
}

func TestSharedFamilies(t *testing.T) {
	candidate := deviceCandidate{
		graphicsFamilies: []uint32{0, 1, 3},
		presentFamilies:  []uint32{1, 2, 3},
	}
	assert.Equal(t, []uint32{1, 3}, candidate.sharedFamilies())
	assert.True(t, candidate.presentable())

	separate := deviceCandidate{
		graphicsFamilies: []uint32{0},
		presentFamilies:  []uint32{1},
	}
	assert.Empty(t, separate.sharedFamilies())
	assert.False(t, separate.presentable())
}

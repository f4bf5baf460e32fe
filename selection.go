package titan

import (
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

// deviceCandidate is the capability snapshot of one physical device that
// selection decides on: which queue families can do graphics, and which can
// present to the target surface.
type deviceCandidate struct {
	key              PhysicalDeviceKey
	deviceType       vk.PhysicalDeviceType
	graphicsFamilies []uint32
	presentFamilies  []uint32
}

// suitable reports whether the device exposes at least one graphics-capable
// queue family.
func (c *deviceCandidate) suitable() bool {
	return len(c.graphicsFamilies) > 0
}

// sharedFamilies returns the queue families that are both graphics-capable
// and presentation-capable, in family order.
func (c *deviceCandidate) sharedFamilies() []uint32 {
	var shared []uint32
	for _, g := range c.graphicsFamilies {
		for _, p := range c.presentFamilies {
			if g == p {
				shared = append(shared, g)
				break
			}
		}
	}
	return shared
}

// presentable reports whether the device can present to the surface from a
// graphics-capable family.
func (c *deviceCandidate) presentable() bool {
	return len(c.presentFamilies) > 0 && len(c.sharedFamilies()) > 0
}

// deviceTypeScore ranks device types, preferring discrete hardware. Ties
// between equal scores resolve to enumeration order.
func deviceTypeScore(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 4
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 3
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 2
	case vk.PhysicalDeviceTypeCpu:
		return 1
	default:
		return 0
	}
}

// selectCandidate picks the winning candidate and reports every other key as
// rejected. Candidates failing either predicate are rejected outright; among
// the survivors the highest-ranked device type wins, first in enumeration
// order on ties. With no survivors every key is rejected and
// ErrNoSuitableDevice is returned.
func selectCandidate(candidates []deviceCandidate) (winner PhysicalDeviceKey, rejected []PhysicalDeviceKey, err error) {
	best := -1
	for i := range candidates {
		c := &candidates[i]
		if !c.suitable() || !c.presentable() {
			continue
		}
		if best < 0 || deviceTypeScore(c.deviceType) > deviceTypeScore(candidates[best].deviceType) {
			best = i
		}
	}

	for i := range candidates {
		if i != best {
			rejected = append(rejected, candidates[i].key)
		}
	}
	if best < 0 {
		return PhysicalDeviceKey{}, rejected, ErrNoSuitableDevice
	}
	return candidates[best].key, rejected, nil
}

// probeCandidate queries the queue-family capabilities of one registered
// physical device against the surface.
func probeCandidate(reg *Registries, key PhysicalDeviceKey, surface vk.Surface) (deviceCandidate, error) {
	physical, ok := reg.PhysicalDevices.Get(key)
	if !ok {
		return deviceCandidate{}, notFound("physical device")
	}

	candidate := deviceCandidate{key: key, deviceType: physical.DeviceType}
	for family, properties := range physical.QueueFamilyProperties() {
		if properties.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			candidate.graphicsFamilies = append(candidate.graphicsFamilies, uint32(family))
		}
		if physical.SupportsPresent(uint32(family), surface) {
			candidate.presentFamilies = append(candidate.presentFamilies, uint32(family))
		}
	}
	return candidate, nil
}

// SelectPhysicalDevice enumerates the instance's physical devices, filters
// them against the graphics and presentation predicates and keeps exactly
// one: the highest-ranked survivor. Every rejected device is removed from
// the registry before this returns; on failure the registry holds no
// physical devices at all.
func SelectPhysicalDevice(reg *Registries, instanceKey InstanceKey, surfaceKey SurfaceKey, logger *zap.Logger) (PhysicalDeviceKey, error) {
	surface, ok := reg.Surfaces.Get(surfaceKey)
	if !ok {
		return PhysicalDeviceKey{}, notFound("surface")
	}

	keys, err := EnumeratePhysicalDevices(reg, instanceKey)
	if err != nil {
		return PhysicalDeviceKey{}, err
	}

	candidates := make([]deviceCandidate, 0, len(keys))
	for _, key := range keys {
		candidate, err := probeCandidate(reg, key, surface.VKSurface)
		if err != nil {
			for _, k := range keys {
				reg.PhysicalDevices.Remove(k)
			}
			return PhysicalDeviceKey{}, err
		}
		candidates = append(candidates, candidate)
	}

	winner, rejected, err := selectCandidate(candidates)
	for _, key := range rejected {
		reg.PhysicalDevices.Remove(key)
	}
	if err != nil {
		return PhysicalDeviceKey{}, err
	}

	selected, _ := reg.PhysicalDevices.Get(winner)
	logger.Info("physical device selected",
		zap.String("device", selected.DeviceName),
		zap.Int("enumerated", len(keys)),
		zap.Int("rejected", len(rejected)))
	return winner, nil
}

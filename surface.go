package titan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// SurfaceKey identifies a Surface entry.
type SurfaceKey = Key[Surface]

// Surface owns the native window surface. Parent: Instance.
type Surface struct {
	Key       SurfaceKey
	VKSurface vk.Surface

	Instance InstanceKey
}

// CreateSurface asks the windowing layer for a native surface on the given
// instance and inserts it into the registry.
func CreateSurface(reg *Registries, instanceKey InstanceKey, window WindowSurface) (SurfaceKey, error) {
	instance, ok := reg.Instances.Get(instanceKey)
	if !ok {
		return SurfaceKey{}, notFound("instance")
	}

	handle, err := window.CreateSurface(instance.VKInstance)
	if err != nil {
		return SurfaceKey{}, fmt.Errorf("creating window surface: %w", err)
	}

	key := reg.Surfaces.Insert(func(key SurfaceKey) Surface {
		return Surface{
			Key:       key,
			VKSurface: handle,
			Instance:  instanceKey,
		}
	})
	return key, nil
}

// DestroySurface destroys the native surface and removes the entry. The
// parent instance must still be alive.
func DestroySurface(reg *Registries, key SurfaceKey) error {
	surface, ok := reg.Surfaces.Remove(key)
	if !ok {
		return notFound("surface")
	}
	instance, ok := reg.Instances.Get(surface.Instance)
	if !ok {
		return notFound("instance")
	}
	vk.DestroySurface(instance.VKInstance, surface.VKSurface, nil)
	return nil
}

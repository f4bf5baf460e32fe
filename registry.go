package titan

import (
	"sync"
)

// Key identifies one live entry inside a Registry of the same T. Keys are
// opaque, copyable and cheap; they carry a generation counter so a key kept
// past its entry's removal can never alias a reused slot. The zero Key is
// never valid.
type Key[T any] struct {
	index      uint32
	generation uint32
}

// IsNil reports whether k is the zero Key.
func (k Key[T]) IsNil() bool {
	return k.generation == 0
}

type slot[T any] struct {
	generation uint32
	occupied   bool
	value      T
}

// Registry is a lock-protected slot arena mapping keys to live resource
// entries. Many readers may resolve keys concurrently; insertion and removal
// take the write lock. Registries of different resource types are independent
// locks; code that must lock two registries at once acquires them in
// parent-to-child order. That ordering is a program-wide convention, the
// registry does not enforce it.
type Registry[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
}

// Insert allocates a key, builds the entry with it and stores the result.
// The build callback runs under the write lock and must not touch the
// registry.
func (r *Registry[T]) Insert(build func(key Key[T]) T) Key[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	var index uint32
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		index = uint32(len(r.slots))
		r.slots = append(r.slots, slot[T]{})
	}

	s := &r.slots[index]
	s.generation++
	s.occupied = true

	key := Key[T]{index: index, generation: s.generation}
	s.value = build(key)
	return key
}

// Get resolves key to a copy of its entry. A stale or removed key yields
// ok == false rather than an error.
func (r *Registry[T]) Get(key Key[T]) (value T, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(key.index) >= len(r.slots) {
		return value, false
	}
	s := &r.slots[key.index]
	if !s.occupied || s.generation != key.generation {
		return value, false
	}
	return s.value, true
}

// Remove deletes the entry for key and returns it, so the caller can still
// reach parent data needed for native teardown. Removing an already-removed
// or stale key is a no-op with ok == false.
func (r *Registry[T]) Remove(key Key[T]) (value T, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(key.index) >= len(r.slots) {
		return value, false
	}
	s := &r.slots[key.index]
	if !s.occupied || s.generation != key.generation {
		return value, false
	}

	value = s.value
	var zero T
	s.value = zero
	s.occupied = false
	r.free = append(r.free, key.index)
	return value, true
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots) - len(r.free)
}

// Keys returns the keys of all live entries in slot order.
func (r *Registry[T]) Keys() []Key[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]Key[T], 0, len(r.slots)-len(r.free))
	for i := range r.slots {
		s := &r.slots[i]
		if s.occupied {
			keys = append(keys, Key[T]{index: uint32(i), generation: s.generation})
		}
	}
	return keys
}

// Registries bundles one registry per resource type. It is built once and
// passed explicitly to every component that needs it, which keeps the
// registries injectable in tests.
type Registries struct {
	Instances       Registry[Instance]
	Surfaces        Registry[Surface]
	PhysicalDevices Registry[PhysicalDevice]
	Devices         Registry[Device]
	Queues          Registry[Queue]
	Swapchains      Registry[Swapchain]
	Images          Registry[Image]
	ImageViews      Registry[ImageView]
	RenderPasses    Registry[RenderPass]
	PipelineLayouts Registry[PipelineLayout]
	Pipelines       Registry[GraphicsPipeline]
	Framebuffers    Registry[Framebuffer]
	CommandPools    Registry[CommandPool]
	CommandBuffers  Registry[CommandBuffer]
	Semaphores      Registry[Semaphore]
	Fences          Registry[Fence]
}

// NewRegistries creates an empty registry bundle.
func NewRegistries() *Registries {
	return &Registries{}
}

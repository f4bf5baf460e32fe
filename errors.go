package titan

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

var (
	// ErrNotFound is returned when a key does not resolve to a live entry
	// in its registry. A parent disappearing underneath a child is a
	// contract violation by the calling code, so it is surfaced rather
	// than ignored.
	ErrNotFound = errors.New("entry not found in registry")

	// ErrNoSuitableDevice is returned by device selection when no physical
	// device passes both the capability and the presentation predicates.
	ErrNoSuitableDevice = errors.New("no suitable physical device found")

	// ErrFenceWaitTimeout is returned by a fence wait that ran out of the
	// given timeout. Distinct from a failed wait: the caller decides
	// whether a timeout is fatal.
	ErrFenceWaitTimeout = errors.New("fence wait timed out")
)

// notFound wraps ErrNotFound with the resource type that missed.
func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

// vkResult maps a native result to an error, keeping vk.Timeout separate
// from real failures.
func vkResult(res vk.Result) error {
	if res == vk.Timeout {
		return ErrFenceWaitTimeout
	}
	return vk.Error(res)
}

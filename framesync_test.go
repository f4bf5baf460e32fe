package titan

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFrameBackend scripts acquire results and records every protocol step,
// checking the fence discipline as it goes: a fence handed to Submit must
// have been reset since its last wait, and a reset must follow a wait.
type fakeFrameBackend struct {
	t *testing.T

	// script holds the image index returned by each successive AcquireImage.
	script   []int
	acquires int

	ops []string

	// signaled mirrors fence state: slots start signaled, Submit re-arms
	// the fence, WaitFence completes it.
	signaled map[FenceKey]bool

	waitErr    error
	acquireErr error
	submitErr  error
	presentErr error
}

func newFakeFrameBackend(t *testing.T, slots []FrameSlot, script ...int) *fakeFrameBackend {
	backend := &fakeFrameBackend{
		t:        t,
		script:   script,
		signaled: make(map[FenceKey]bool),
	}
	for _, slot := range slots {
		backend.signaled[slot.InFlight] = true
	}
	return backend
}

func (b *fakeFrameBackend) WaitFence(fence FenceKey, timeout uint64) error {
	b.ops = append(b.ops, fmt.Sprintf("wait f%d", fence.index))
	if b.waitErr != nil {
		return b.waitErr
	}
	require.Equal(b.t, NoTimeout, timeout, "render path waits are unbounded")
	// Waiting simulates the GPU finishing whatever the fence guards.
	b.signaled[fence] = true
	return nil
}

func (b *fakeFrameBackend) ResetFence(fence FenceKey) error {
	b.ops = append(b.ops, fmt.Sprintf("reset f%d", fence.index))
	require.True(b.t, b.signaled[fence], "fence reset before its wait completed")
	b.signaled[fence] = false
	return nil
}

func (b *fakeFrameBackend) AcquireImage(signal SemaphoreKey) (int, error) {
	b.ops = append(b.ops, fmt.Sprintf("acquire s%d", signal.index))
	if b.acquireErr != nil {
		return 0, b.acquireErr
	}
	require.Less(b.t, b.acquires, len(b.script), "unscripted acquire")
	index := b.script[b.acquires]
	b.acquires++
	return index, nil
}

func (b *fakeFrameBackend) Submit(cmd CommandBufferKey, waitSem, signalSem SemaphoreKey, fence FenceKey) error {
	b.ops = append(b.ops, fmt.Sprintf("submit c%d f%d", cmd.index, fence.index))
	if b.submitErr != nil {
		return b.submitErr
	}
	require.False(b.t, b.signaled[fence], "fence submitted without a reset")
	return nil
}

func (b *fakeFrameBackend) Present(imageIndex int, waitSem SemaphoreKey) error {
	b.ops = append(b.ops, fmt.Sprintf("present i%d", imageIndex))
	return b.presentErr
}

// testFrameSlots builds n slots with distinct fabricated keys. Fence index i
// belongs to slot i, so op logs read directly as slot numbers.
func testFrameSlots(n int) []FrameSlot {
	slots := make([]FrameSlot, n)
	for i := range slots {
		slots[i] = FrameSlot{
			ImageAvailable: SemaphoreKey{index: uint32(2 * i), generation: 1},
			RenderFinished: SemaphoreKey{index: uint32(2*i + 1), generation: 1},
			InFlight:       FenceKey{index: uint32(i), generation: 1},
		}
	}
	return slots
}

func testCommandBuffers(n int) []CommandBufferKey {
	buffers := make([]CommandBufferKey, n)
	for i := range buffers {
		buffers[i] = CommandBufferKey{index: uint32(i), generation: 1}
	}
	return buffers
}

func TestFrameLoopProtocolOrder(t *testing.T) {
	slots := testFrameSlots(2)
	backend := newFakeFrameBackend(t, slots, 0)
	loop := NewFrameLoop(backend, slots, testCommandBuffers(2))

	require.NoError(t, loop.RenderFrame())

	// Wait own fence, acquire, reset, submit, present. No image-owner wait
	// on a first-time image.
	assert.Equal(t, []string{
		"wait f0",
		"acquire s0",
		"reset f0",
		"submit c0 f0",
		"present i0",
	}, backend.ops)
	assert.Equal(t, 1, loop.FrameIndex())
}

func TestFrameLoopCyclesSlots(t *testing.T) {
	slots := testFrameSlots(2)
	backend := newFakeFrameBackend(t, slots, 0, 1, 0, 1)
	loop := NewFrameLoop(backend, slots, testCommandBuffers(2))

	for i := 0; i < 4; i++ {
		assert.Equal(t, i%2, loop.FrameIndex())
		require.NoError(t, loop.RenderFrame())
	}
	assert.Equal(t, 0, loop.FrameIndex())
}

func TestFrameLoopWaitsImageOwnerFence(t *testing.T) {
	// Two slots over a three-image swapchain. The fourth frame (slot 1)
	// reacquires image 0, still owned by slot 0's submission from frame
	// one: the loop must wait on that owner fence before resubmitting
	// into the image.
	slots := testFrameSlots(2)
	backend := newFakeFrameBackend(t, slots, 0, 1, 2, 0)
	loop := NewFrameLoop(backend, slots, testCommandBuffers(3))

	for i := 0; i < 3; i++ {
		require.NoError(t, loop.RenderFrame())
	}
	backend.ops = nil

	require.NoError(t, loop.RenderFrame())
	assert.Equal(t, []string{
		"wait f1",    // own slot fence
		"acquire s2", // slot 1's image-available semaphore
		"wait f0",    // image 0 is still owned by slot 0's submission
		"reset f1",
		"submit c0 f1",
		"present i0",
	}, backend.ops)
}

func TestFrameLoopNoOwnerWaitAfterOwnershipMovesOn(t *testing.T) {
	// Same slot reacquiring the image it already owns needs no second
	// owner wait beyond its own fence wait.
	slots := testFrameSlots(2)
	backend := newFakeFrameBackend(t, slots, 0, 1, 0)
	loop := NewFrameLoop(backend, slots, testCommandBuffers(3))

	for i := 0; i < 2; i++ {
		require.NoError(t, loop.RenderFrame())
	}
	backend.ops = nil

	// Frame three runs on slot 0 and reacquires image 0, whose recorded
	// owner is slot 0's own fence: the ring wait already covered it, the
	// owner wait is a second wait on an already-signaled fence.
	require.NoError(t, loop.RenderFrame())
	assert.Equal(t, []string{
		"wait f0",
		"acquire s0",
		"wait f0",
		"reset f0",
		"submit c0 f0",
		"present i0",
	}, backend.ops)
}

func TestFrameLoopFenceTimeoutIsDistinct(t *testing.T) {
	slots := testFrameSlots(2)
	backend := newFakeFrameBackend(t, slots, 0)
	backend.waitErr = ErrFenceWaitTimeout
	loop := NewFrameLoop(backend, slots, testCommandBuffers(2))

	err := loop.RenderFrame()
	require.ErrorIs(t, err, ErrFenceWaitTimeout)
	assert.Equal(t, []string{"wait f0"}, backend.ops, "no acquire after a failed fence wait")
	assert.Equal(t, 0, loop.FrameIndex(), "frame index does not advance on failure")
}

func TestFrameLoopAcquireErrorPropagates(t *testing.T) {
	slots := testFrameSlots(2)
	backend := newFakeFrameBackend(t, slots)
	backend.acquireErr = errors.New("surface lost")
	loop := NewFrameLoop(backend, slots, testCommandBuffers(2))

	err := loop.RenderFrame()
	require.ErrorContains(t, err, "acquiring swapchain image")
	require.ErrorIs(t, err, backend.acquireErr)
	assert.Equal(t, []string{"wait f0", "acquire s0"}, backend.ops)
}

func TestFrameLoopSubmitErrorStopsBeforePresent(t *testing.T) {
	slots := testFrameSlots(2)
	backend := newFakeFrameBackend(t, slots, 0)
	backend.submitErr = errors.New("device lost")
	loop := NewFrameLoop(backend, slots, testCommandBuffers(2))

	err := loop.RenderFrame()
	require.ErrorContains(t, err, "submitting frame")
	require.ErrorIs(t, err, backend.submitErr)
	assert.NotContains(t, backend.ops, "present i0")
	assert.Equal(t, 0, loop.FrameIndex())
}

func TestFrameLoopPresentErrorPropagates(t *testing.T) {
	slots := testFrameSlots(2)
	backend := newFakeFrameBackend(t, slots, 0)
	backend.presentErr = errors.New("swapchain out of date")
	loop := NewFrameLoop(backend, slots, testCommandBuffers(2))

	err := loop.RenderFrame()
	require.ErrorContains(t, err, "presenting image 0")
	require.ErrorIs(t, err, backend.presentErr)
	assert.Equal(t, 0, loop.FrameIndex())
}

func TestFrameLoopRejectsOutOfRangeImageIndex(t *testing.T) {
	slots := testFrameSlots(2)
	backend := newFakeFrameBackend(t, slots, 5)
	loop := NewFrameLoop(backend, slots, testCommandBuffers(2))

	err := loop.RenderFrame()
	require.ErrorContains(t, err, "out of range")
	assert.NotContains(t, backend.ops, "reset f0", "no submission after a bogus image index")
}

package titan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeardownStackUnwindsInReverse(t *testing.T) {
	var undo teardownStack
	var order []int
	for i := 1; i <= 3; i++ {
		step := i
		undo.push(func() error {
			order = append(order, step)
			return nil
		})
	}

	require.NoError(t, undo.unwind())
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestTeardownStackRunsEveryStepAndReportsFirstError(t *testing.T) {
	var undo teardownStack
	var order []string
	secondErr := errors.New("second step failed")
	thirdErr := errors.New("third step failed")

	undo.push(func() error {
		order = append(order, "first")
		return nil
	})
	undo.push(func() error {
		order = append(order, "second")
		return secondErr
	})
	undo.push(func() error {
		order = append(order, "third")
		return thirdErr
	})

	err := undo.unwind()
	require.ErrorIs(t, err, thirdErr, "first error in unwind order wins")
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestTeardownStackUnwindRunsStepsOnce(t *testing.T) {
	var undo teardownStack
	calls := 0
	undo.push(func() error {
		calls++
		return nil
	})

	require.NoError(t, undo.unwind())
	require.NoError(t, undo.unwind())
	assert.Equal(t, 1, calls)
}

func TestTeardownStackDrop(t *testing.T) {
	var undo teardownStack
	calls := 0
	undo.push(func() error {
		calls++
		return nil
	})

	undo.drop()
	require.NoError(t, undo.unwind())
	assert.Equal(t, 0, calls)
}

package titan

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEntry struct {
	key  Key[testEntry]
	name string
}

func TestRegistryInsertGetRemove(t *testing.T) {
	var reg Registry[testEntry]

	key := reg.Insert(func(key Key[testEntry]) testEntry {
		return testEntry{key: key, name: "first"}
	})
	require.False(t, key.IsNil())

	entry, ok := reg.Get(key)
	require.True(t, ok)
	assert.Equal(t, "first", entry.name)
	assert.Equal(t, key, entry.key)
	assert.Equal(t, 1, reg.Len())

	removed, ok := reg.Remove(key)
	require.True(t, ok)
	assert.Equal(t, "first", removed.name)
	assert.Equal(t, 0, reg.Len())

	_, ok = reg.Get(key)
	assert.False(t, ok, "removed key must not resolve")

	_, ok = reg.Remove(key)
	assert.False(t, ok, "double remove must be a no-op")
}

func TestRegistryStaleKeyAfterSlotReuse(t *testing.T) {
	var reg Registry[testEntry]

	old := reg.Insert(func(key Key[testEntry]) testEntry {
		return testEntry{key: key, name: "old"}
	})
	_, ok := reg.Remove(old)
	require.True(t, ok)

	// The freed slot is reused, but under a new generation.
	reused := reg.Insert(func(key Key[testEntry]) testEntry {
		return testEntry{key: key, name: "reused"}
	})
	require.NotEqual(t, old, reused)

	_, ok = reg.Get(old)
	assert.False(t, ok, "stale key must not alias the reused slot")

	entry, ok := reg.Get(reused)
	require.True(t, ok)
	assert.Equal(t, "reused", entry.name)
}

func TestRegistryKeysStableUnderUnrelatedLifecycles(t *testing.T) {
	var reg Registry[testEntry]

	keys := make([]Key[testEntry], 5)
	for i := range keys {
		name := string(rune('a' + i))
		keys[i] = reg.Insert(func(key Key[testEntry]) testEntry {
			return testEntry{key: key, name: name}
		})
	}

	// Removing and inserting other entries must not disturb survivors.
	_, ok := reg.Remove(keys[1])
	require.True(t, ok)
	_, ok = reg.Remove(keys[3])
	require.True(t, ok)
	reg.Insert(func(key Key[testEntry]) testEntry {
		return testEntry{key: key, name: "new"}
	})

	for _, i := range []int{0, 2, 4} {
		entry, ok := reg.Get(keys[i])
		require.True(t, ok)
		assert.Equal(t, string(rune('a'+i)), entry.name)
	}
	for _, i := range []int{1, 3} {
		_, ok := reg.Get(keys[i])
		assert.False(t, ok)
	}
}

func TestRegistryKeys(t *testing.T) {
	var reg Registry[testEntry]

	first := reg.Insert(func(key Key[testEntry]) testEntry { return testEntry{key: key} })
	second := reg.Insert(func(key Key[testEntry]) testEntry { return testEntry{key: key} })
	_, ok := reg.Remove(first)
	require.True(t, ok)

	assert.Equal(t, []Key[testEntry]{second}, reg.Keys())
}

func TestRegistryConcurrentReaders(t *testing.T) {
	var reg Registry[testEntry]

	keys := make([]Key[testEntry], 100)
	for i := range keys {
		keys[i] = reg.Insert(func(key Key[testEntry]) testEntry {
			return testEntry{key: key, name: "entry"}
		})
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := keys[i%len(keys)]
				if _, ok := reg.Get(key); !ok {
					t.Error("live key failed to resolve")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestZeroKeyIsNil(t *testing.T) {
	var key Key[testEntry]
	assert.True(t, key.IsNil())

	var reg Registry[testEntry]
	_, ok := reg.Get(key)
	assert.False(t, ok)
}

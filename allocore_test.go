package allocore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeap_AllocFreeRoundTrip(t *testing.T) {
	a, err := NewDefault()
	require.NoError(t, err)

	p := a.Alloc(64)
	require.NotNil(t, p)
	a.Free(p)

	assert.True(t, a.Verify())
}

func TestHeap_IndependentInstancesDoNotShareState(t *testing.T) {
	a, err := New(Options{ArenaSize: 4096, NumLists: 59, MaxChunks: 16})
	require.NoError(t, err)
	b, err := New(Options{ArenaSize: 4096, NumLists: 59, MaxChunks: 16})
	require.NoError(t, err)

	p := a.Alloc(32)
	require.NotNil(t, p)

	statsA := a.Stats()
	statsB := b.Stats()
	assert.Equal(t, uint64(1), statsA.AllocCount)
	assert.Equal(t, uint64(0), statsB.AllocCount)
}

func TestPackageLevelDefaultHeap(t *testing.T) {
	p := Alloc(16)
	require.NotNil(t, p)
	Free(p)

	assert.True(t, Verify())
}

func TestCallocZeroesMemory(t *testing.T) {
	a, err := NewDefault()
	require.NoError(t, err)

	p := a.Calloc(8, 8)
	require.NotNil(t, p)

	buf := (*[64]byte)(p)
	for _, b := range buf {
		assert.Zero(t, b)
	}
}

func TestReallocGrowsAndShrinks(t *testing.T) {
	a, err := NewDefault()
	require.NoError(t, err)

	p := a.Alloc(16)
	require.NotNil(t, p)

	grown := a.Realloc(p, 128)
	require.NotNil(t, grown)
	assert.True(t, a.Verify())

	shrunk := a.Realloc(grown, 4)
	require.NotNil(t, shrunk)
	assert.True(t, a.Verify())
}

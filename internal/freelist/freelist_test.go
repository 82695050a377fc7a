package freelist

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boundarytag/allocore/internal/block"
)

func newBlock(t *testing.T, size uint64) *block.Header {
	t.Helper()
	buf := make([]byte, max(size, block.UnallocHeaderSize))
	h := block.At(unsafe.Pointer(&buf[0]))
	h.SetSize(size)
	h.SetState(block.Unallocated)
	return h
}

func TestIndex_EmptyOnConstruction(t *testing.T) {
	idx := New(8)
	for c := 0; c < idx.NumLists(); c++ {
		assert.True(t, idx.Empty(c), "class %d should start empty", c)
	}
}

func TestIndex_ClassOf(t *testing.T) {
	idx := New(8)

	// payload (24 total minus the 16-byte header) for class 0 is exactly 8 bytes.
	assert.Equal(t, 0, idx.ClassOf(block.AllocHeaderSize+8))
	assert.Equal(t, 1, idx.ClassOf(block.AllocHeaderSize+16))

	// Oversized payloads clamp to the catch-all, the last class.
	assert.Equal(t, idx.NumLists()-1, idx.ClassOf(block.AllocHeaderSize+8*1000))
}

func TestIndex_InsertAndRemove_LIFO(t *testing.T) {
	idx := New(4)
	a := newBlock(t, block.AllocHeaderSize+8)
	b := newBlock(t, block.AllocHeaderSize+8)

	idx.Insert(a)
	idx.Insert(b)

	class := idx.ClassOf(a.Size())
	sentinel := idx.Sentinel(class)

	require.Same(t, b, sentinel.Next, "most recently inserted block should be at the head")
	require.Same(t, a, sentinel.Next.Next)
	require.Same(t, sentinel, sentinel.Next.Next.Next)

	idx.Remove(b)
	assert.Same(t, a, sentinel.Next)
	assert.Nil(t, b.Next)
	assert.Nil(t, b.Prev)

	idx.Remove(a)
	assert.True(t, idx.Empty(class))
}

func TestIndex_Reclassify(t *testing.T) {
	idx := New(4)
	h := newBlock(t, block.AllocHeaderSize+8)

	idx.Insert(h)
	oldClass := idx.ClassOf(h.Size())
	assert.False(t, idx.Empty(oldClass))

	h.SetSize(block.AllocHeaderSize + 32)
	idx.Reclassify(h)

	newClass := idx.ClassOf(h.Size())
	assert.True(t, idx.Empty(oldClass))
	assert.False(t, idx.Empty(newClass))
}

func TestIndex_CatchAllHoldsMixedSizes(t *testing.T) {
	idx := New(4)
	small := newBlock(t, block.AllocHeaderSize+8*10)
	large := newBlock(t, block.AllocHeaderSize+8*50)

	idx.Insert(small)
	idx.Insert(large)

	last := idx.NumLists() - 1
	assert.Equal(t, last, idx.ClassOf(small.Size()))
	assert.Equal(t, last, idx.ClassOf(large.Size()))

	sentinel := idx.Sentinel(last)
	count := 0
	for n := sentinel.Next; n != sentinel; n = n.Next {
		count++
	}
	assert.Equal(t, 2, count)
}

package block

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArena(t *testing.T, size int) []byte {
	t.Helper()
	return make([]byte, size)
}

func TestHeader_SizeAndStateShareTheWord(t *testing.T) {
	buf := newArena(t, 64)
	h := At(unsafe.Pointer(&buf[0]))

	h.SetSize(48)
	h.SetState(Allocated)

	assert.Equal(t, uint64(48), h.Size())
	assert.Equal(t, Allocated, h.State())

	h.SetState(Unallocated)
	assert.Equal(t, uint64(48), h.Size(), "changing state must not disturb size")
	assert.Equal(t, Unallocated, h.State())
}

func TestHeader_SetSizeRejectsUnaligned(t *testing.T) {
	buf := newArena(t, 64)
	h := At(unsafe.Pointer(&buf[0]))

	assert.Panics(t, func() { h.SetSize(17) })
}

func TestHeader_Neighbors(t *testing.T) {
	buf := newArena(t, 96)
	base := unsafe.Pointer(&buf[0])

	left := At(base)
	left.SetSize(32)
	left.SetState(Unallocated)

	mid := At(unsafe.Add(base, 32))
	mid.SetSize(32)
	mid.SetState(Allocated)
	mid.SetLeftSize(32)

	right := At(unsafe.Add(base, 64))
	right.SetSize(32)
	right.SetState(Unallocated)
	right.SetLeftSize(32)

	assert.Same(t, mid, left.RightNeighbor())
	assert.Same(t, left, mid.LeftNeighbor())
	assert.Same(t, right, mid.RightNeighbor())
	assert.Same(t, mid, right.LeftNeighbor())
}

func TestHeader_UserPtrRoundTrip(t *testing.T) {
	buf := newArena(t, 64)
	h := At(unsafe.Pointer(&buf[0]))
	h.SetSize(32)
	h.SetState(Allocated)

	p := h.UserPtr()
	back := HeaderOf(p)
	require.Same(t, h, back)
}

func TestHeader_LayoutConstants(t *testing.T) {
	assert.EqualValues(t, unsafe.Sizeof(Header{}), UnallocHeaderSize)
	assert.EqualValues(t, unsafe.Offsetof(Header{}.Next), AllocHeaderSize)
}

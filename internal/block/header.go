// Package block implements the allocator's single in-band metadata record:
// the boundary-tag header shared by allocated blocks, free blocks, and
// fenceposts. A Header is never allocated by Go's runtime on its own — it is
// always a typed view, obtained via unsafe.Pointer, onto a slot inside a
// region acquired from internal/osmem. Neighbor blocks are found by offset
// arithmetic on that raw memory, the same way other_examples/alewtschuk-balloc
// and other_examples/warawara28-tlsf-go walk their own mmap'd arenas.
package block

import "unsafe"

// State is the low 2 bits of Header.size.
type State uint64

const (
	Unallocated State = 0
	Allocated   State = 1
	Fencepost   State = 2
)

const stateMask = uint64(0x3)

// Header is the boundary tag. Its layout is load-bearing: ALLOC_HEADER_SIZE
// (16 bytes) is exactly the size+leftSize prefix, and UNALLOC_HEADER_SIZE
// (32 bytes) is the whole struct. Both are asserted in init().
//
// When the block is Allocated, the bytes backing Next/Prev belong to the
// user; this package never reads them in that state.
type Header struct {
	size     uint64
	leftSize uint64
	Next     *Header
	Prev     *Header
}

const (
	// AllocHeaderSize is the portion of the header that survives an
	// allocation: size and leftSize only (spec.md §3).
	AllocHeaderSize = 16
	// UnallocHeaderSize is the full free-block footprint including the
	// free-list links, and therefore the minimum allocation granularity.
	UnallocHeaderSize = 32
)

func init() {
	if unsafe.Sizeof(Header{}) != UnallocHeaderSize {
		panic("block: Header layout does not match UnallocHeaderSize")
	}
	if unsafe.Offsetof(Header{}.Next) != AllocHeaderSize {
		panic("block: Header layout does not match AllocHeaderSize")
	}
}

// At views the memory starting at p as a Header. p must be 8-byte aligned.
func At(p unsafe.Pointer) *Header {
	return (*Header)(p)
}

// Addr returns h's address as an unsafe.Pointer, for offset arithmetic.
func (h *Header) Addr() unsafe.Pointer {
	return unsafe.Pointer(h)
}

// Size returns the block's total size in bytes, header included, with the
// state bits masked off.
func (h *Header) Size() uint64 {
	return h.size &^ stateMask
}

// SetSize sets the block's total size, preserving the current state. n must
// be a multiple of 8.
func (h *Header) SetSize(n uint64) {
	if n%8 != 0 {
		panic("block: size must be a multiple of 8")
	}
	h.size = n | (h.size & stateMask)
}

// State returns the block's state.
func (h *Header) State() State {
	return State(h.size & stateMask)
}

// SetState sets the block's state, preserving the current size.
func (h *Header) SetState(s State) {
	h.size = (h.size &^ stateMask) | uint64(s)
}

// LeftSize returns the recorded size of the immediate left neighbor.
func (h *Header) LeftSize() uint64 {
	return h.leftSize
}

// SetLeftSize records the size of the immediate left neighbor.
func (h *Header) SetLeftSize(n uint64) {
	h.leftSize = n
}

// RightNeighbor returns the header immediately to the right of h in memory.
func (h *Header) RightNeighbor() *Header {
	return At(unsafe.Add(h.Addr(), h.Size()))
}

// LeftNeighbor returns the header immediately to the left of h in memory.
func (h *Header) LeftNeighbor() *Header {
	return At(unsafe.Add(h.Addr(), -int(h.leftSize)))
}

// UserPtr returns the address handed back to the caller for an allocated
// block: AllocHeaderSize bytes past the header.
func (h *Header) UserPtr() unsafe.Pointer {
	return unsafe.Add(h.Addr(), AllocHeaderSize)
}

// HeaderOf recovers the block header from a user pointer previously
// returned by UserPtr.
func HeaderOf(p unsafe.Pointer) *Header {
	return At(unsafe.Add(p, -AllocHeaderSize))
}

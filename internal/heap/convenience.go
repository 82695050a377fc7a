package heap

import (
	"unsafe"

	"github.com/boundarytag/allocore/internal/block"
	"github.com/boundarytag/allocore/internal/diag"
)

// MustAlloc calls Alloc and terminates the process if it returns nil for a
// non-zero request, e.g. on OS memory exhaustion.
func (h *Heap) MustAlloc(size uint64) unsafe.Pointer {
	p := h.Alloc(size)
	if p == nil && size != 0 {
		diag.Fatal("allocation failed", diag.Uint64("size", size))
	}
	return p
}

// Calloc allocates space for n elements of sz bytes each and zero-fills it,
// mirroring libc calloc. It returns nil if n*sz overflows or if the
// underlying Alloc fails.
func (h *Heap) Calloc(n, sz uint64) unsafe.Pointer {
	if n == 0 || sz == 0 {
		return nil
	}

	total := n * sz
	if total/n != sz {
		return nil
	}

	p := h.Alloc(total)
	if p == nil {
		return nil
	}

	zero(p, total)
	return p
}

func zero(p unsafe.Pointer, n uint64) {
	buf := unsafe.Slice((*byte)(p), int(n))
	for i := range buf {
		buf[i] = 0
	}
}

// Realloc resizes the allocation at p to newSize bytes, preserving the
// lesser of its old payload size and newSize bytes of content. Per
// spec.md's own recommendation for the shrink case, it always allocates a
// fresh block and copies rather than attempting an in-place resize.
//
// Realloc(nil, n) behaves as Alloc(n); Realloc(p, 0) frees p and returns
// nil.
func (h *Heap) Realloc(p unsafe.Pointer, newSize uint64) unsafe.Pointer {
	if p == nil {
		return h.Alloc(newSize)
	}
	if newSize == 0 {
		h.Free(p)
		return nil
	}

	oldHeader := block.HeaderOf(p)
	oldPayload := oldHeader.Size() - block.AllocHeaderSize

	newPtr := h.Alloc(newSize)
	if newPtr == nil {
		return nil
	}

	n := oldPayload
	if newSize < n {
		n = newSize
	}

	copyBytes(newPtr, p, n)
	h.Free(p)
	return newPtr
}

func copyBytes(dst, src unsafe.Pointer, n uint64) {
	d := unsafe.Slice((*byte)(dst), int(n))
	s := unsafe.Slice((*byte)(src), int(n))
	copy(d, s)
}

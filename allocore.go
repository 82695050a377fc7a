// Package allocore is a general-purpose, boundary-tag heap allocator: a
// single process-wide arena grown from the OS on demand, segregated
// free lists for fast first-fit allocation, three-way neighbor coalescing
// on free, and a structural verifier for tests and diagnostics.
//
// The package-level functions operate on one lazily-initialized default
// Heap, mirroring how a libc malloc exposes one process-wide heap. Callers
// needing multiple independent heaps (tests, sandboxing) should use New or
// NewDefault instead.
package allocore

import (
	"sync"
	"unsafe"

	"github.com/boundarytag/allocore/internal/heap"
)

// Heap is an independent allocator instance. The zero value is not usable;
// construct one with New or NewDefault.
type Heap struct {
	h *heap.Heap
}

// Options configures a Heap's arena size, free-list class count, and
// verifier region-registry capacity.
type Options = heap.Options

// DefaultOptions returns the allocator's default knob values.
func DefaultOptions() Options { return heap.DefaultOptions() }

// New constructs an independent Heap with the given options, acquiring its
// first region from the OS immediately.
func New(opts Options) (*Heap, error) {
	h, err := heap.New(opts)
	if err != nil {
		return nil, err
	}
	return &Heap{h: h}, nil
}

// NewDefault constructs an independent Heap using DefaultOptions.
func NewDefault() (*Heap, error) {
	return New(DefaultOptions())
}

// Alloc returns a pointer to at least size bytes of 8-byte-aligned memory,
// or nil if size is zero or the underlying OS region growth failed.
func (a *Heap) Alloc(size uint64) unsafe.Pointer { return a.h.Alloc(size) }

// MustAlloc is Alloc but terminates the process on allocation failure for a
// non-zero request.
func (a *Heap) MustAlloc(size uint64) unsafe.Pointer { return a.h.MustAlloc(size) }

// Calloc allocates space for n elements of sz bytes each, zero-filled.
func (a *Heap) Calloc(n, sz uint64) unsafe.Pointer { return a.h.Calloc(n, sz) }

// Realloc resizes the allocation at p to newSize bytes.
func (a *Heap) Realloc(p unsafe.Pointer, newSize uint64) unsafe.Pointer {
	return a.h.Realloc(p, newSize)
}

// Free releases the allocation at p. Freeing nil is a no-op. Freeing an
// already-freed pointer is a detected double free and terminates the
// process.
func (a *Heap) Free(p unsafe.Pointer) { a.h.Free(p) }

// Verify walks every free list and every registered region checking
// structural invariants, returning false at the first violation found.
func (a *Heap) Verify() bool { return a.h.Verify() }

// Stats returns a snapshot of allocation counters.
func (a *Heap) Stats() heap.Stats { return a.h.Stats() }

// DumpFreeLists logs the population of every non-empty size class.
func (a *Heap) DumpFreeLists() { a.h.DumpFreeLists() }

// DumpRegions logs the boundary-tag layout of every registered region.
func (a *Heap) DumpRegions() { a.h.DumpRegions() }

var (
	defaultOnce sync.Once
	defaultHeap *Heap
	defaultErr  error
)

func defaultInstance() *Heap {
	defaultOnce.Do(func() {
		defaultHeap, defaultErr = NewDefault()
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultHeap
}

// Alloc allocates from the process-wide default Heap.
func Alloc(size uint64) unsafe.Pointer { return defaultInstance().Alloc(size) }

// MustAlloc allocates from the process-wide default Heap, terminating the
// process on failure for a non-zero request.
func MustAlloc(size uint64) unsafe.Pointer { return defaultInstance().MustAlloc(size) }

// Calloc allocates zero-filled space from the process-wide default Heap.
func Calloc(n, sz uint64) unsafe.Pointer { return defaultInstance().Calloc(n, sz) }

// Realloc resizes an allocation from the process-wide default Heap.
func Realloc(p unsafe.Pointer, newSize uint64) unsafe.Pointer {
	return defaultInstance().Realloc(p, newSize)
}

// Free releases an allocation from the process-wide default Heap.
func Free(p unsafe.Pointer) { defaultInstance().Free(p) }

// Verify checks the process-wide default Heap's structural invariants.
func Verify() bool { return defaultInstance().Verify() }

// Stats returns a snapshot of the process-wide default Heap's counters.
func Stats() heap.Stats { return defaultInstance().Stats() }

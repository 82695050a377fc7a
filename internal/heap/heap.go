// Package heap implements spec.md §4.4-§4.7: the Allocator, the
// Deallocator, the structural Verifier, and the one-time Lifecycle that
// ties internal/block, internal/region, and internal/freelist together
// behind a single mutex-guarded engine.
//
// Grounded on kernel/threads/arena/allocator.go's HybridAllocator: one
// struct owning the sub-allocators and a single sync.Mutex serializing
// Allocate/Free, with atomic counters for stats (spec.md §5 "single
// critical section").
package heap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/boundarytag/allocore/internal/block"
	"github.com/boundarytag/allocore/internal/diag"
	"github.com/boundarytag/allocore/internal/freelist"
	"github.com/boundarytag/allocore/internal/region"
)

// Heap is one instance of the allocator engine. The zero value is not
// usable; construct with New.
type Heap struct {
	mu sync.Mutex

	opts    Options
	lists   *freelist.Index
	regions *region.Manager

	totalAllocated uint64
	totalFreed     uint64
	allocCount     uint64
	freeCount      uint64
}

// New builds a Heap and performs spec.md §4.7's one-time initialization:
// acquire the first region, register it, remember its right fencepost, and
// place its interior block straight into the catch-all class.
func New(opts Options) (*Heap, error) {
	opts = opts.withDefaults()

	h := &Heap{
		opts:    opts,
		lists:   freelist.New(opts.NumLists),
		regions: region.New(opts.ArenaSize, opts.MaxChunks),
	}

	interior, err := h.regions.AllocChunk(opts.ArenaSize)
	if err != nil {
		return nil, diag.WrapError(err, "heap: acquire initial region")
	}

	left := interior.LeftNeighbor()
	right := interior.RightNeighbor()

	h.regions.RegisterChunk(left)
	h.regions.SetLastFencepost(right)
	h.lists.InsertClass(h.lists.NumLists()-1, interior)

	return h, nil
}

// Alloc implements spec.md §4.4. It returns nil for a zero-size request and
// nil if OS growth fails; otherwise it returns a pointer to at least size
// bytes of 8-byte-aligned memory.
func (h *Heap) Alloc(size uint64) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	actualSize := roundUp8(size) + block.AllocHeaderSize
	if actualSize < block.UnallocHeaderSize {
		actualSize = block.UnallocHeaderSize
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		if p := h.search(actualSize); p != nil {
			atomic.AddUint64(&h.totalAllocated, actualSize)
			atomic.AddUint64(&h.allocCount, 1)
			return p
		}

		if err := h.grow(); err != nil {
			diag.Error("heap: region growth failed", diag.Err(err))
			return nil
		}
	}
}

// search performs one first-fit pass over classes [classOf(actualSize),
// last], splitting the chosen block when the remainder would still be a
// usable free block. It returns nil if no class yields a fit.
func (h *Heap) search(actualSize uint64) unsafe.Pointer {
	start := h.lists.ClassOf(actualSize)
	last := h.lists.NumLists() - 1

	for k := start; k <= last; k++ {
		// Every class but the catch-all holds blocks of one exact size;
		// skipping an empty one is safe. The catch-all mixes sizes and
		// must always be walked (spec.md §4.4 step 5).
		if k != last && h.lists.Empty(k) {
			continue
		}

		sentinel := h.lists.Sentinel(k)
		for c := sentinel.Next; c != sentinel; c = c.Next {
			if c.Size() < actualSize {
				continue
			}

			remainder := c.Size() - actualSize
			if remainder < block.UnallocHeaderSize {
				h.lists.Remove(c)
				c.SetState(block.Allocated)
				return c.UserPtr()
			}

			return h.split(c, actualSize, remainder)
		}
	}

	return nil
}

// split carves an ALLOCATED block of actualSize out of the low address of
// c, leaving a new UNALLOCATED remainder block at c's former high edge
// (spec.md §4.4 step 5, "Otherwise split"; the allocated portion keeps c's
// address so two successive splits of the same block hand out addresses
// in increasing order).
func (h *Heap) split(c *block.Header, actualSize, remainder uint64) unsafe.Pointer {
	h.lists.Remove(c)

	rem := block.At(unsafe.Add(c.Addr(), actualSize))
	rem.SetState(block.Unallocated)
	rem.SetSize(remainder)
	rem.SetLeftSize(actualSize)
	rem.RightNeighbor().SetLeftSize(remainder)

	c.SetSize(actualSize)
	c.SetState(block.Allocated)

	h.lists.Insert(rem)

	return c.UserPtr()
}

// grow acquires one more region and either stitches it onto the previously
// acquired region (if physically adjacent) or registers it standalone,
// per spec.md §4.4 step 6.
func (h *Heap) grow() error {
	interior, err := h.regions.AllocChunk(h.opts.ArenaSize)
	if err != nil {
		return err
	}

	left := interior.LeftNeighbor()
	right := interior.RightNeighbor()

	if h.regions.IsAdjacent(left) {
		h.stitch(interior, right)
	} else {
		h.regions.RegisterChunk(left)
		h.lists.Insert(interior)
	}

	h.regions.SetLastFencepost(right)
	return nil
}

// stitch merges a newly adjacent region into the previous one across their
// shared fencepost boundary, per spec.md §4.4's "Adjacent" case.
func (h *Heap) stitch(interior, newRight *block.Header) {
	prevRight := h.regions.LastFencepost()
	p := prevRight.LeftNeighbor()

	diag.Debug("stitching adjacent region", diag.Bool("left_free", p.State() == block.Unallocated))

	if p.State() == block.Unallocated {
		oldClass := h.lists.ClassOf(p.Size())
		newSize := p.Size() + interior.Size() + 2*block.AllocHeaderSize
		p.SetSize(newSize)
		if h.lists.ClassOf(newSize) != oldClass {
			h.lists.Reclassify(p)
		}
		newRight.SetLeftSize(newSize)
		return
	}

	mergedSize := interior.Size() + 2*block.AllocHeaderSize
	prevRight.SetState(block.Unallocated)
	prevRight.SetSize(mergedSize)
	h.lists.Insert(prevRight)
	newRight.SetLeftSize(mergedSize)
}

// Free implements spec.md §4.5. Freeing nil is a no-op; freeing an already
// UNALLOCATED block is a detected double free and terminates the process.
func (h *Heap) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	b := block.HeaderOf(p)
	if b.State() == block.Unallocated {
		diag.Fatal("double free detected", diag.Uint64("addr", uint64(uintptr(p))))
		return
	}

	l := b.LeftNeighbor()
	r := b.RightNeighbor()
	leftFree := l.State() == block.Unallocated
	rightFree := r.State() == block.Unallocated
	b.SetState(block.Unallocated)

	switch {
	case leftFree && rightFree:
		oldClass := h.lists.ClassOf(l.Size())
		h.lists.Remove(r)
		newSize := l.Size() + b.Size() + r.Size()
		r.RightNeighbor().SetLeftSize(newSize)
		l.SetSize(newSize)
		if h.lists.ClassOf(newSize) != oldClass {
			h.lists.Reclassify(l)
		}

	case leftFree:
		oldClass := h.lists.ClassOf(l.Size())
		newSize := l.Size() + b.Size()
		l.SetSize(newSize)
		r.SetLeftSize(newSize)
		if h.lists.ClassOf(newSize) != oldClass {
			h.lists.Reclassify(l)
		}

	case rightFree:
		h.lists.Remove(r)
		newSize := b.Size() + r.Size()
		r.RightNeighbor().SetLeftSize(newSize)
		b.SetSize(newSize)
		h.lists.Insert(b)

	default:
		h.lists.Insert(b)
	}

	atomic.AddUint64(&h.totalFreed, 1)
	atomic.AddUint64(&h.freeCount, 1)
}

// Verify implements spec.md §4.6: cycle detection and pointer consistency
// for every free list, plus boundary-tag consistency for every registered
// region.
func (h *Heap) Verify() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.verifyLists() && h.verifyRegions()
}

func (h *Heap) verifyLists() bool {
	for c := 0; c < h.lists.NumLists(); c++ {
		sentinel := h.lists.Sentinel(c)

		if hasCycle(sentinel) {
			diag.Error("verify: cycle detected in free list", diag.Int("class", c))
			return false
		}

		for n := sentinel.Next; n != sentinel; n = n.Next {
			if n.Next.Prev != n || n.Prev.Next != n {
				diag.Error("verify: broken link in free list", diag.Int("class", c))
				return false
			}
		}
	}
	return true
}

// hasCycle runs tortoise-and-hare from sentinel and reports whether the
// slow and fast pointers meet before either reaches the sentinel, which
// would indicate a cycle not passing through it.
func hasCycle(sentinel *block.Header) bool {
	slow, fast := sentinel, sentinel
	for {
		slow = slow.Next
		fast = fast.Next
		if fast == sentinel {
			return false
		}
		fast = fast.Next
		if fast == sentinel {
			return false
		}
		if slow == fast {
			return true
		}
	}
}

func (h *Heap) verifyRegions() bool {
	for _, left := range h.regions.Regions() {
		if left.State() != block.Fencepost {
			diag.Error("verify: region does not begin with a fencepost")
			return false
		}

		cur := left
		for {
			right := cur.RightNeighbor()
			if right.LeftSize() != cur.Size() {
				diag.Error("verify: boundary tag mismatch",
					diag.Uint64("cur_size", cur.Size()),
					diag.Uint64("right_leftsize", right.LeftSize()))
				return false
			}
			cur = right
			if cur.State() == block.Fencepost {
				break
			}
		}
	}
	return true
}

// Stats is a point-in-time snapshot of allocator activity, in the style of
// kernel/threads/arena's GetStats methods.
type Stats struct {
	TotalAllocated uint64
	TotalFreed     uint64
	AllocCount     uint64
	FreeCount      uint64
	RegionCount    int
}

// Stats returns a snapshot of the heap's counters.
func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Stats{
		TotalAllocated: atomic.LoadUint64(&h.totalAllocated),
		TotalFreed:     atomic.LoadUint64(&h.totalFreed),
		AllocCount:     atomic.LoadUint64(&h.allocCount),
		FreeCount:      atomic.LoadUint64(&h.freeCount),
		RegionCount:    len(h.regions.Regions()),
	}
}

// String renders a Stats snapshot for human consumption (cmd/allocbench).
func (s Stats) String() string {
	return fmt.Sprintf("allocs=%d frees=%d bytes_granted=%d regions=%d",
		s.AllocCount, s.FreeCount, s.TotalAllocated, s.RegionCount)
}

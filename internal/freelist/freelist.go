// Package freelist implements spec.md §4.3, the segregated free-list index:
// NUM_LISTS sentinel-headed circular doubly-linked lists keyed by size
// class, with LIFO insertion and head-to-tail first-fit search support.
//
// Grounded on other_examples/alewtschuk-balloc/balloc.go's avail-array
// (`pool.avail[kval]` sentinels linked to themselves on init, `insertBlock`/
// `removeFirst` splicing) and kernel/threads/arena/buddy.go's
// addToFreeList/removeFromFreeList pair, generalized from power-of-two
// buckets to the spec's per-word-size classes plus a catch-all.
package freelist

import "github.com/boundarytag/allocore/internal/block"

// Index is an array of sentinel-headed circular free lists.
type Index struct {
	sentinels []block.Header
}

// New builds an Index with numLists empty classes. Per spec.md §3, class i
// (0-indexed) holds free blocks whose user-payload size is (i+1)*8 bytes,
// except the last class, which is a catch-all for every payload size
// >= numLists*8.
func New(numLists int) *Index {
	idx := &Index{sentinels: make([]block.Header, numLists)}
	for i := range idx.sentinels {
		s := &idx.sentinels[i]
		s.Next = s
		s.Prev = s
	}
	return idx
}

// NumLists returns the number of size classes.
func (idx *Index) NumLists() int { return len(idx.sentinels) }

// ClassOf returns the size class for a free block of total size
// totalSize (header included), per spec.md §4.3.
func (idx *Index) ClassOf(totalSize uint64) int {
	payload := totalSize - block.AllocHeaderSize
	class := int(payload/8) - 1
	last := len(idx.sentinels) - 1
	if class > last {
		return last
	}
	if class < 0 {
		return 0
	}
	return class
}

// Sentinel returns the sentinel node of class c. Its size/leftSize fields
// are never meaningful — only Next/Prev are, per spec.md §9.
func (idx *Index) Sentinel(c int) *block.Header {
	return &idx.sentinels[c]
}

// Empty reports whether class c currently holds no free blocks.
func (idx *Index) Empty(c int) bool {
	s := idx.Sentinel(c)
	return s.Next == s
}

// Insert links h at the head of the class computed from its current size
// (LIFO insertion, spec.md §4.3).
func (idx *Index) Insert(h *block.Header) {
	idx.insertInto(idx.ClassOf(h.Size()), h)
}

// InsertClass links h at the head of an explicitly chosen class. Used by
// initialization (spec.md §4.7), which places the first region's interior
// block straight into the catch-all class by direct linkage.
func (idx *Index) InsertClass(c int, h *block.Header) {
	idx.insertInto(c, h)
}

func (idx *Index) insertInto(c int, h *block.Header) {
	sentinel := idx.Sentinel(c)
	h.Next = sentinel.Next
	h.Prev = sentinel
	sentinel.Next.Prev = h
	sentinel.Next = h
}

// Remove unlinks h from whichever class it currently occupies, using its
// own Next/Prev pointers.
func (idx *Index) Remove(h *block.Header) {
	h.Prev.Next = h.Next
	h.Next.Prev = h.Prev
	h.Next = nil
	h.Prev = nil
}

// Reclassify removes h and reinserts it under the class matching its
// current size. Call after a size change that may have moved h to a
// different class (spec.md §4.3).
func (idx *Index) Reclassify(h *block.Header) {
	idx.Remove(h)
	idx.Insert(h)
}

package heap

import (
	"github.com/boundarytag/allocore/internal/block"
	"github.com/boundarytag/allocore/internal/diag"
)

// DumpFreeLists logs every non-empty size class and the number of blocks
// it currently holds, for interactive debugging (cmd/allocbench -dump).
func (h *Heap) DumpFreeLists() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := 0; c < h.lists.NumLists(); c++ {
		if h.lists.Empty(c) {
			continue
		}

		sentinel := h.lists.Sentinel(c)
		count := 0
		for n := sentinel.Next; n != sentinel; n = n.Next {
			count++
		}
		diag.Info("free list class", diag.Int("class", c), diag.Int("count", count))
	}
}

// DumpRegions logs the boundary-tag layout of every registered region.
func (h *Heap) DumpRegions() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, left := range h.regions.Regions() {
		count := 0
		for cur := left; ; {
			count++
			right := cur.RightNeighbor()
			if right.State() == block.Fencepost {
				break
			}
			cur = right
		}
		diag.Info("region", diag.Int("index", i), diag.Int("blocks", count))
	}
}

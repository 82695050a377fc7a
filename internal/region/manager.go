// Package region implements spec.md §4.2, the Region Manager: acquiring
// fixed-size spans from the OS, fencing them, tracking them for the
// verifier, and detecting physical adjacency between consecutively acquired
// regions so the allocator can stitch them into one contiguous free span.
package region

import (
	"fmt"
	"unsafe"

	"github.com/boundarytag/allocore/internal/block"
	"github.com/boundarytag/allocore/internal/diag"
	"github.com/boundarytag/allocore/internal/osmem"
)

// Manager owns the region registry and the "last fencepost" adjacency
// pointer (spec.md §3 "Last-Fencepost Pointer", "Region Registry").
type Manager struct {
	arenaSize uint64
	maxChunks int

	regions   []*block.Header // left fenceposts, in acquisition order
	lastRight *block.Header   // right fencepost of the most recently acquired region

	live      [][]byte // keeps mmap'd/fallback region backing storage reachable
	overflown bool     // logged once, per spec.md §9 "region-registry overflow"
}

// New creates a Manager. arenaSize is the fixed size of every region
// acquired via AllocChunk; maxChunks bounds the verifier-visible registry.
func New(arenaSize uint64, maxChunks int) *Manager {
	return &Manager{
		arenaSize: arenaSize,
		maxChunks: maxChunks,
	}
}

// AllocChunk acquires `size` bytes from the OS and lays out
// [LEFT-FENCEPOST | interior free block | RIGHT-FENCEPOST] inside it,
// per spec.md §4.2. It returns the interior block's header.
func (m *Manager) AllocChunk(size uint64) (*block.Header, error) {
	if size < 2*block.AllocHeaderSize+block.UnallocHeaderSize {
		return nil, fmt.Errorf("region: chunk size %d too small for two fenceposts and a block", size)
	}

	data, err := osmem.Extend(int(size))
	if err != nil {
		return nil, err
	}
	m.live = append(m.live, data)

	base := unsafe.Pointer(&data[0])

	left := block.At(base)
	left.SetState(block.Fencepost)
	left.SetSize(block.AllocHeaderSize)

	interiorSize := size - 2*block.AllocHeaderSize
	interior := block.At(unsafe.Add(base, block.AllocHeaderSize))
	interior.SetState(block.Unallocated)
	interior.SetSize(interiorSize)
	interior.SetLeftSize(block.AllocHeaderSize)

	right := block.At(unsafe.Add(base, size-block.AllocHeaderSize))
	right.SetState(block.Fencepost)
	right.SetSize(block.AllocHeaderSize)
	right.SetLeftSize(interiorSize)

	return interior, nil
}

// ArenaSize is the fixed region size this Manager grows by.
func (m *Manager) ArenaSize() uint64 { return m.arenaSize }

// RegisterChunk appends leftFencepost to the region registry unless it is
// full. Overflow is not reported to the caller (spec.md §4.2/§9): later
// regions remain fully functional but invisible to the verifier. A single
// WARN is logged the first time a region is dropped.
func (m *Manager) RegisterChunk(leftFencepost *block.Header) {
	if len(m.regions) >= m.maxChunks {
		if !m.overflown {
			m.overflown = true
			diag.Warn("region registry full, further regions are unverifiable",
				diag.Int("max_chunks", m.maxChunks))
		}
		return
	}
	m.regions = append(m.regions, leftFencepost)
}

// Regions returns every registered region's left fencepost, for the
// verifier (spec.md §4.6).
func (m *Manager) Regions() []*block.Header {
	return m.regions
}

// PreviousRightFencepost returns the header that would be the right
// fencepost of the region physically preceding one whose left fencepost is
// at newLeft, per spec.md §4.2's adjacency rule.
func PreviousRightFencepost(newLeft *block.Header) *block.Header {
	return block.At(unsafe.Add(newLeft.Addr(), -block.AllocHeaderSize))
}

// IsAdjacent reports whether a region whose left fencepost is newLeft is
// physically contiguous with the most recently acquired region.
func (m *Manager) IsAdjacent(newLeft *block.Header) bool {
	if m.lastRight == nil {
		return false
	}
	return PreviousRightFencepost(newLeft) == m.lastRight
}

// LastFencepost returns the right fencepost of the most recently acquired
// region, or nil if no region has been acquired yet.
func (m *Manager) LastFencepost() *block.Header { return m.lastRight }

// SetLastFencepost records the right fencepost of the most recently
// acquired region, for the next adjacency check.
func (m *Manager) SetLastFencepost(right *block.Header) { m.lastRight = right }

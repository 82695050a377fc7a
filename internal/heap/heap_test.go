package heap

import (
	"os"
	"os/exec"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boundarytag/allocore/internal/block"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()
	h, err := New(Options{ArenaSize: 4096, NumLists: 59, MaxChunks: 16})
	require.NoError(t, err)
	return h
}

func TestHeap_AllocZeroReturnsNil(t *testing.T) {
	h := newTestHeap(t)
	assert.Nil(t, h.Alloc(0))
}

func TestHeap_AllocIsAlignedAndVerifies(t *testing.T) {
	h := newTestHeap(t)

	p1 := h.Alloc(8)
	require.NotNil(t, p1)
	p2 := h.Alloc(8)
	require.NotNil(t, p2)

	assert.Zero(t, uintptr(p1)%8)
	assert.Zero(t, uintptr(p2)%8)

	diff := uintptr(p2) - uintptr(p1)
	assert.Contains(t, []uintptr{24, 32}, diff)

	assert.True(t, h.Verify())
}

func TestHeap_FreeThenAllocReusesAddress(t *testing.T) {
	h := newTestHeap(t)

	p := h.Alloc(16)
	require.NotNil(t, p)
	h.Free(p)

	q := h.Alloc(16)
	require.NotNil(t, q)
	assert.Equal(t, p, q)
}

func TestHeap_CoalescesBothNeighbors(t *testing.T) {
	h := newTestHeap(t)

	a := h.Alloc(32)
	b := h.Alloc(32)
	c := h.Alloc(32)
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)

	h.Free(b)
	h.Free(a)
	h.Free(c)

	assert.True(t, h.Verify())

	// A single free block should now span the whole interior: the next
	// large allocation should come back at a's old address.
	d := h.Alloc(4096 - 2*block.AllocHeaderSize - block.AllocHeaderSize)
	require.NotNil(t, d)
	assert.Equal(t, a, d)
}

func TestHeap_GrowsOnExhaustion(t *testing.T) {
	h := newTestHeap(t)

	// Drain the initial 4096-byte region with 32-byte payload allocations.
	var ptrs []unsafe.Pointer
	for i := 0; i < 200; i++ {
		p := h.Alloc(32)
		if p == nil {
			break
		}
		ptrs = append(ptrs, p)
	}

	p := h.Alloc(8)
	require.NotNil(t, p, "allocation must succeed by growing a new region")
	assert.True(t, h.Verify())
	assert.GreaterOrEqual(t, len(h.regions.Regions()), 1)

	for _, q := range ptrs {
		h.Free(q)
	}
	h.Free(p)
}

func TestHeap_SplitAvoidsUndersizedRemainder(t *testing.T) {
	h := newTestHeap(t)

	// The initial interior block is large; allocating all but less than
	// UnallocHeaderSize of it must allocate the whole block, not split it.
	full := h.regions.Regions()
	require.Len(t, full, 1)

	p := h.Alloc(4096 - 2*block.AllocHeaderSize - block.AllocHeaderSize - (block.UnallocHeaderSize - 8))
	require.NotNil(t, p)

	assert.Equal(t, uint64(4096-2*block.AllocHeaderSize), block.HeaderOf(p).Size())
	assert.True(t, h.Verify())
}

func TestHeap_FreedBlockDiscoverableByClass(t *testing.T) {
	h := newTestHeap(t)

	p := h.Alloc(24)
	_ = h.Alloc(8)
	require.NotNil(t, p)

	h.Free(p)

	q := h.Alloc(24)
	require.NotNil(t, q)
	assert.Equal(t, p, q)
}

func TestHeap_VerifyDetectsNothingWrongOnFreshHeap(t *testing.T) {
	h := newTestHeap(t)
	assert.True(t, h.Verify())
}

// TestHeap_DoubleFreeTerminatesProcess re-executes this test binary in a
// child process to observe the process-terminating behavior of a detected
// double free without killing the test runner itself.
func TestHeap_DoubleFreeTerminatesProcess(t *testing.T) {
	if os.Getenv("ALLOCORE_DOUBLE_FREE_SUBPROCESS") == "1" {
		h, err := New(DefaultOptions())
		require.NoError(t, err)
		p := h.Alloc(16)
		h.Free(p)
		h.Free(p)
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestHeap_DoubleFreeTerminatesProcess")
	cmd.Env = append(os.Environ(), "ALLOCORE_DOUBLE_FREE_SUBPROCESS=1")
	err := cmd.Run()

	exitErr, ok := err.(*exec.ExitError)
	require.True(t, ok, "expected the subprocess to exit with an error, got %v", err)
	assert.Equal(t, 1, exitErr.ExitCode())
}

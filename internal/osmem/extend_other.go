//go:build !unix

package osmem

import (
	"fmt"
	"sync"
)

// pinned retains every region ever handed out so the Go garbage collector
// never reclaims memory the allocator still references by raw pointer —
// the non-unix analogue of an mmap'd region never being munmap'd.
var (
	pinnedMu sync.Mutex
	pinned   [][]byte
)

// Extend requests size bytes of fresh, zeroed memory. On platforms without
// an anonymous-mmap syscall this falls back to a pinned Go allocation,
// mirroring the native/non-native split kernel/utils keeps for its logger.
func Extend(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("osmem: size must be positive, got %d", size)
	}

	data := make([]byte, size)

	pinnedMu.Lock()
	pinned = append(pinned, data)
	pinnedMu.Unlock()

	return data, nil
}

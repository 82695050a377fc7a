package heap

// Compile-time configuration knobs, externalized as spec.md §6 describes.
const (
	// DefaultArenaSize is the fixed size of a region obtained from the OS
	// (spec.md §3 ARENA_SIZE).
	DefaultArenaSize = 4096
	// DefaultNumLists is the number of segregated free-list size classes;
	// the last is the catch-all (spec.md §3 NUM_LISTS).
	DefaultNumLists = 59
	// DefaultMaxChunks bounds the regions tracked for the verifier
	// (spec.md §3 MAX_NUM_CHUNKS).
	DefaultMaxChunks = 1024
)

// Options configures a Heap instance. The teacher's arena allocators
// (BuddyAllocator, SlabAllocator) take their sizes as constructor
// parameters rather than global constants so tests can build independent,
// differently-sized instances (buddy_test.go); Heap follows the same
// pattern, with the root package allocore's package-level functions
// wrapping one instance built from DefaultOptions() to match spec.md's
// process-global model.
type Options struct {
	ArenaSize uint64
	NumLists  int
	MaxChunks int
}

// DefaultOptions returns the spec's default knob values.
func DefaultOptions() Options {
	return Options{
		ArenaSize: DefaultArenaSize,
		NumLists:  DefaultNumLists,
		MaxChunks: DefaultMaxChunks,
	}
}

func (o Options) withDefaults() Options {
	if o.ArenaSize == 0 {
		o.ArenaSize = DefaultArenaSize
	}
	if o.NumLists == 0 {
		o.NumLists = DefaultNumLists
	}
	if o.MaxChunks == 0 {
		o.MaxChunks = DefaultMaxChunks
	}
	return o
}

func roundUp8(n uint64) uint64 {
	return (n + 7) &^ 7
}

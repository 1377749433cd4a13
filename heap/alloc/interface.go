package alloc

import "github.com/joshuapare/heapkit/heap/dirty"

// DirtyTracker is a type alias for the canonical interface defined in heap/dirty.
type DirtyTracker = dirty.DirtyTracker

// Ptr is a payload offset into the arena.
type Ptr int

// Nil is the null pointer.
const Nil Ptr = 0

// Allocator defines the interface shared by the heap implementations.
//
// Implementations:
//   - Implicit: boundary-tag allocator with coalescing
//   - Naive: bump allocator, Free is a no-op
type Allocator interface {
	// Alloc returns a pointer to at least n bytes. Alloc(0) returns Nil and no error.
	Alloc(n int) (Ptr, error)

	// Free releases p. Free(Nil) is a no-op.
	Free(p Ptr) error

	// Realloc resizes p to n bytes, preserving the first min(n, old) bytes.
	// Realloc(Nil, n) is Alloc(n); Realloc(p, 0) is Free(p) and returns Nil.
	// On failure p is left untouched.
	Realloc(p Ptr, n int) (Ptr, error)

	// Payload returns the n bytes requested for p, capacity clipped to n.
	Payload(p Ptr) []byte

	// Check validates the heap without modifying it.
	Check() error

	// Stats returns a snapshot of allocator counters.
	Stats() Stats

	// HeapSize returns the number of arena bytes the heap spans.
	HeapSize() int
}

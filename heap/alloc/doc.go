// Package alloc provides block allocation over a single growable arena using an
// implicit free list with boundary-tag coalescing.
//
// # Overview
//
// The heap image is a contiguous sequence of blocks bounded by two sentinels:
//
//	[prologue 16B][block][block]...[block][epilogue 16B]
//
// Every block carries an 8-byte header and an 8-byte footer holding the same
// tag (size | allocated bit), plus an 8-byte shadow word recording the
// caller's original request. Free blocks are found by walking the headers
// (the implicit list); freeing a block merges it with free neighbours in O(1)
// using the footer of the previous block and the header of the next.
//
// # Allocator Interface
//
//   - Alloc(n): return a 16-byte aligned payload of at least n bytes
//   - Free(p): release a payload and coalesce
//   - Realloc(p, n): resize, preserving min(n, original) bytes
//   - Check(): validate every heap invariant (read-only)
//
// # Implementations
//
// Implicit: the boundary-tag allocator
//
//   - First-fit search (best-fit selectable via Options.Fit)
//   - Split when the remainder can hold a 32-byte minimum block
//   - Four-case coalescing on every Free
//   - Grows by max(request, ChunkSize) when no block fits
//
// Naive: bump-pointer allocator that never reuses memory
//
//   - Free is a no-op
//   - Useful as a utilization/throughput baseline in trace replays
//
// # Usage Example
//
//	ar, _ := arena.NewMem(arena.DefaultLimit)
//	h, err := alloc.NewImplicit(ar, alloc.Options{})
//	if err != nil {
//	    return err
//	}
//
//	p, err := h.Alloc(100)
//	if err != nil {
//	    return err // errors.Is(err, alloc.ErrNoSpace) when the arena is exhausted
//	}
//	copy(h.Payload(p), data)
//	_ = h.Free(p)
//
// # Pointers
//
// Ptr values are payload byte offsets into the arena. Nil (0) never names a
// payload because offset 0 always holds the prologue.
//
// # Debugging
//
// Options.Debug keeps a set of live pointers. Releasing a pointer that is not
// live is refused and recorded, and the next Check reports it. Setting
// HEAP_LOG_ALLOC in the environment logs growth and refusals to stderr when
// no Logger is configured.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. A concurrent wrapper has to
// serialize every call behind one lock, since any call may split or merge
// arbitrary blocks.
package alloc

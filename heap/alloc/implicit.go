package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/format"
)

// Alloc returns a pointer to a 16-byte aligned payload of at least n bytes.
//
// Algorithm:
//  1. Compute the block size: n plus 24 bytes of metadata, rounded up to 16
//  2. Search for a free block (first-fit unless Options.Fit says otherwise)
//  3. If none fits, grow the heap by max(block size, ChunkSize)
//  4. Place the block, splitting off the tail when it is at least 32 bytes
//
// Alloc(0) returns Nil. On ErrNoSpace the heap is unchanged.
func (h *Implicit) Alloc(n int) (Ptr, error) {
	h.stats.AllocCalls++
	if n == 0 {
		return Nil, nil
	}
	if n < 0 {
		return Nil, ErrBadSize
	}
	asize, ok := adjustedSize(n)
	if !ok {
		return Nil, fmt.Errorf("%w: request of %d bytes", ErrNoSpace, n)
	}

	b, found := h.findFit(asize)
	if found {
		h.stats.AllocFastPath++
	} else {
		var err error
		b, err = h.extend(max(asize, h.chunk) / format.WordSize)
		if err != nil {
			return Nil, err
		}
		h.stats.AllocSlowPath++
	}

	h.place(b, asize, n)
	p := b.ptr()
	if h.debug {
		h.live[p] = struct{}{}
	}
	h.stats.addLive(n)
	return p, nil
}

// Free releases p and coalesces it with free neighbours. Free(Nil) is a no-op.
//
// Returns ErrBadPointer for pointers that cannot name a block and
// ErrNotAllocated for blocks that are already free; the heap is not modified
// in either case. Without Options.Debug, detecting a repeated release is best
// effort.
func (h *Implicit) Free(p Ptr) error {
	h.stats.FreeCalls++
	if p == Nil {
		return nil
	}
	b, err := h.liveBlock(p)
	if err != nil {
		return h.refuse(p, err)
	}
	h.release(p, b)
	return nil
}

func (h *Implicit) release(p Ptr, b block) {
	if h.debug {
		delete(h.live, p)
	}
	h.stats.dropLive(h.request(b))
	h.setTags(b, h.size(b), false)
	h.setRequest(b, 0)
	h.coalesce(b)
}

// Realloc resizes p to n bytes and returns the (possibly moved) pointer.
// The first min(n, old request) payload bytes are preserved.
//
// Shrinking, or growing into a free next block (growing the arena when p's
// block ends the heap), keeps the pointer. Otherwise a new block is
// allocated, the payload copied, and p released. On error p is untouched.
func (h *Implicit) Realloc(p Ptr, n int) (Ptr, error) {
	h.stats.ReallocCalls++
	switch {
	case p == Nil:
		return h.Alloc(n)
	case n < 0:
		return Nil, ErrBadSize
	case n == 0:
		return Nil, h.Free(p)
	}

	b, err := h.liveBlock(p)
	if err != nil {
		return Nil, fmt.Errorf("realloc %d: %w", p, err)
	}
	asize, ok := adjustedSize(n)
	if !ok {
		return Nil, fmt.Errorf("%w: request of %d bytes", ErrNoSpace, n)
	}

	old := h.request(b)
	if h.resizeInPlace(b, asize) {
		h.setRequest(b, n)
		h.markDirty(int(p), n)
		h.stats.resizeLive(old, n)
		h.stats.ReallocInPlace++
		return p, nil
	}

	q, err := h.Alloc(n)
	if err != nil {
		return Nil, err
	}
	keep := min(n, old)
	data := h.data()
	copy(data[int(q):int(q)+keep], data[int(p):int(p)+keep])
	h.markDirty(int(q), keep)
	h.release(p, b)
	h.stats.ReallocMoved++
	return q, nil
}

// resizeInPlace makes the allocated block b exactly asize bytes (or slightly
// more when the tail is too small to split) without moving its payload.
func (h *Implicit) resizeInPlace(b block, asize int) bool {
	size := h.size(b)
	if asize <= size {
		h.shrink(b, asize)
		return true
	}

	next := b + block(size)
	avail, tail := size, next
	if !h.allocated(next) {
		avail += h.size(next)
		tail = next + block(h.size(next))
	}
	if avail < asize && int(tail) == h.epilogue {
		if _, err := h.extend(max(asize-avail, h.chunk) / format.WordSize); err != nil {
			return false
		}
		avail = size + h.size(next)
	}
	if avail < asize {
		return false
	}

	h.scrub(int(next))
	h.setTags(b, avail, true)
	h.shrink(b, asize)
	return true
}

// shrink trims the allocated block b to asize bytes, returning the tail to
// the heap when it can stand as its own block.
func (h *Implicit) shrink(b block, asize int) {
	size := h.size(b)
	if size-asize < format.MinBlockSize {
		return
	}
	h.setTags(b, asize, true)
	rest := b + block(asize)
	h.setTags(rest, size-asize, false)
	h.setRequest(rest, 0)
	h.stats.SplitCount++
	h.coalesce(rest)
}

// liveBlock resolves p to an allocated block whose shadow word fits it.
func (h *Implicit) liveBlock(p Ptr) (block, error) {
	b, err := h.lookup(p)
	if err != nil {
		return 0, err
	}
	if !h.allocated(b) {
		return 0, ErrNotAllocated
	}
	if n := h.request(b); n <= 0 || n > h.size(b)-format.Overhead {
		return 0, ErrBadPointer
	}
	if h.debug {
		if _, ok := h.live[p]; !ok {
			return 0, ErrNotAllocated
		}
	}
	return b, nil
}

func (h *Implicit) refuse(p Ptr, err error) error {
	h.stats.Refused++
	h.log.Warn("release refused", "ptr", int(p), "err", err)
	if h.debug {
		h.faults = append(h.faults, &verify.ValidationError{
			Type:    verify.TypeRelease,
			Message: fmt.Sprintf("release of %d refused: %v", p, err),
			Offset:  int(p),
		})
	}
	return fmt.Errorf("free %d: %w", p, err)
}

// Payload returns the requested bytes of p, or nil if p is not allocated.
// The slice aliases the heap and stays valid until p is released or resized.
func (h *Implicit) Payload(p Ptr) []byte {
	b, err := h.liveBlock(p)
	if err != nil {
		return nil
	}
	start, n := int(p), h.request(b)
	return h.data()[start : start+n : start+n]
}

// Capacity returns the usable payload bytes of p's block, or 0 if p is not
// allocated. It is at least the requested size.
func (h *Implicit) Capacity(p Ptr) int {
	b, err := h.liveBlock(p)
	if err != nil {
		return 0
	}
	return h.size(b) - format.Overhead
}

// Check validates every heap invariant without modifying the heap. In debug
// mode it also reports refused releases and live pointers whose blocks are
// no longer allocated.
func (h *Implicit) Check() error {
	if h.epilogue+format.EpilogueSize != h.ar.Len() {
		return &verify.ValidationError{
			Type:    verify.TypePartition,
			Message: fmt.Sprintf("epilogue at %d but arena holds %d bytes", h.epilogue, h.ar.Len()),
			Offset:  h.epilogue,
		}
	}
	if err := verify.Heap(h.data()); err != nil {
		return err
	}
	if len(h.faults) > 0 {
		return h.faults[0]
	}
	for p := range h.live {
		if b := blockOf(p); !h.allocated(b) {
			return &verify.ValidationError{
				Type:    verify.TypeRelease,
				Message: fmt.Sprintf("live pointer %d names a free block", p),
				Offset:  int(b),
			}
		}
	}
	return nil
}

// Walk visits every ordinary block in address order.
func (h *Implicit) Walk(fn func(format.Block) error) error {
	return verify.Walk(h.data(), fn)
}

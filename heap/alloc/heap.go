package alloc

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/heapkit/heap/arena"
	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// Implicit is the boundary-tag allocator. Free blocks are found by walking
// block headers from the first block; there is no separate free list.
type Implicit struct {
	ar    arena.Arena
	dt    DirtyTracker
	log   *slog.Logger
	fit   Fit
	chunk int

	// epilogue is the offset of the epilogue header. The arena length is
	// always epilogue + format.EpilogueSize.
	epilogue int

	debug  bool
	live   map[Ptr]struct{}
	faults []*verify.ValidationError

	stats Stats
}

var _ Allocator = (*Implicit)(nil)

// NewImplicit lays out the prologue and epilogue on an empty arena and grows
// the heap by one chunk.
//
// Returns ErrNoSpace if the arena cannot hold the initial layout.
func NewImplicit(ar arena.Arena, opts Options) (*Implicit, error) {
	if ar.Len() != 0 {
		return nil, ErrArenaInUse
	}
	opts = opts.withDefaults()

	h := &Implicit{
		ar:    ar,
		dt:    opts.Dirty,
		log:   opts.Logger,
		fit:   opts.Fit,
		chunk: opts.ChunkSize,
		debug: opts.Debug,
	}
	if h.debug {
		h.live = make(map[Ptr]struct{})
	}

	if _, err := ar.Extend(format.InitialSize); err != nil {
		h.log.Warn("arena refused initial layout", "bytes", format.InitialSize, "err", err)
		return nil, fmt.Errorf("%w: initial layout: %w", ErrNoSpace, err)
	}
	data := h.data()
	prologue := format.Pack(format.PrologueSize, true)
	format.PutTag(data, 0, prologue)
	format.PutTag(data, format.TagWidth, prologue)
	h.epilogue = format.FirstBlock
	format.PutTag(data, h.epilogue, format.Pack(0, true))
	h.markDirty(0, format.InitialSize)

	if _, err := h.extend(h.chunk / format.WordSize); err != nil {
		return nil, err
	}
	return h, nil
}

// extend grows the heap by words 8-byte words, rounded up to keep blocks
// aligned. The new free block starts where the old epilogue was and is
// coalesced with a free predecessor. Nothing is written if the arena refuses.
func (h *Implicit) extend(words int) (block, error) {
	size, ok := buf.MulOverflowSafe(words, format.WordSize)
	if !ok || size <= 0 || size > format.MaxBlockSize-format.AlignmentMask {
		h.stats.GrowFailures++
		return 0, fmt.Errorf("%w: cannot extend by %d words", ErrNoSpace, words)
	}
	size = format.Align16(size)

	if _, err := h.ar.Extend(size); err != nil {
		h.stats.GrowFailures++
		h.log.Warn("arena refused growth",
			"bytes", size,
			"heap_size", h.ar.Len(),
			"limit", h.ar.Limit(),
			"err", err)
		return 0, fmt.Errorf("%w: extend by %d bytes: %w", ErrNoSpace, size, err)
	}

	b := block(h.epilogue)
	h.setTags(b, size, false)
	h.setRequest(b, 0)
	h.epilogue += size
	format.PutTag(h.data(), h.epilogue, format.Pack(0, true))
	h.markDirty(h.epilogue, format.TagWidth)

	h.stats.GrowCalls++
	h.stats.GrowBytes += int64(size)
	h.log.Debug("heap extended",
		"grow", h.stats.GrowCalls,
		"bytes", size,
		"heap_size", h.ar.Len())

	return h.coalesce(b), nil
}

// HeapSize returns the number of arena bytes the heap spans.
func (h *Implicit) HeapSize() int { return h.ar.Len() }

// Stats returns a snapshot of allocator counters.
func (h *Implicit) Stats() Stats {
	s := h.stats
	s.HeapSize = h.ar.Len()
	return s
}

// Bytes returns the heap image. The slice aliases the arena.
func (h *Implicit) Bytes() []byte { return h.data() }

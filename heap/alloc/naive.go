package alloc

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/heapkit/heap/arena"
	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/format"
)

// naivePrefix is the per-allocation prefix holding the request size.
const naivePrefix = format.PayloadOffset

// naiveFreed is set in the prefix word once a region has been released.
const naiveFreed = uint64(1) << 63

// Naive is a bump allocator: every Alloc extends the arena, Free never
// reclaims memory, and Realloc always moves. It is the utilization floor
// other allocators are measured against.
//
// Layout per allocation: [request size:8][pad:8][payload, rounded to 16].
// The top bit of the size word marks a released region.
type Naive struct {
	ar  arena.Arena
	dt  DirtyTracker
	log *slog.Logger

	debug  bool
	live   map[Ptr]struct{}
	faults []*verify.ValidationError

	stats Stats
}

var _ Allocator = (*Naive)(nil)

// NewNaive returns a bump allocator over an empty arena.
func NewNaive(ar arena.Arena, opts Options) (*Naive, error) {
	if ar.Len() != 0 {
		return nil, ErrArenaInUse
	}
	opts = opts.withDefaults()
	n := &Naive{ar: ar, dt: opts.Dirty, log: opts.Logger, debug: opts.Debug}
	if n.debug {
		n.live = make(map[Ptr]struct{})
	}
	return n, nil
}

// Alloc bumps the arena by the aligned request plus prefix.
func (a *Naive) Alloc(n int) (Ptr, error) {
	a.stats.AllocCalls++
	if n == 0 {
		return Nil, nil
	}
	if n < 0 {
		return Nil, ErrBadSize
	}
	if n > format.MaxBlockSize-naivePrefix-format.AlignmentMask {
		return Nil, fmt.Errorf("%w: request of %d bytes", ErrNoSpace, n)
	}
	size := format.Align16(n + naivePrefix)

	off, err := a.ar.Extend(size)
	if err != nil {
		a.stats.GrowFailures++
		a.log.Warn("arena refused growth", "bytes", size, "heap_size", a.ar.Len(), "err", err)
		return Nil, fmt.Errorf("%w: extend by %d bytes: %w", ErrNoSpace, size, err)
	}
	format.PutU64(a.ar.Bytes(), off, uint64(n))
	if a.dt != nil {
		a.dt.Add(off, size)
	}

	a.stats.GrowCalls++
	a.stats.GrowBytes += int64(size)
	a.stats.AllocSlowPath++
	a.stats.addLive(n)

	p := Ptr(off + naivePrefix)
	if a.debug {
		a.live[p] = struct{}{}
	}
	return p, nil
}

// Free validates p and forgets it. Memory is never reused.
func (a *Naive) Free(p Ptr) error {
	a.stats.FreeCalls++
	if p == Nil {
		return nil
	}
	n, err := a.lookup(p)
	if err != nil {
		return a.refuse(p, err)
	}
	if a.debug {
		delete(a.live, p)
	}
	off := int(p) - naivePrefix
	format.PutU64(a.ar.Bytes(), off, uint64(n)|naiveFreed)
	if a.dt != nil {
		a.dt.Add(off, format.WordSize)
	}
	a.stats.dropLive(n)
	return nil
}

// Realloc allocates a new region, copies min(n, old) bytes, and frees p.
func (a *Naive) Realloc(p Ptr, n int) (Ptr, error) {
	a.stats.ReallocCalls++
	switch {
	case p == Nil:
		return a.Alloc(n)
	case n < 0:
		return Nil, ErrBadSize
	case n == 0:
		return Nil, a.Free(p)
	}

	old, err := a.lookup(p)
	if err != nil {
		return Nil, fmt.Errorf("realloc %d: %w", p, err)
	}
	q, err := a.Alloc(n)
	if err != nil {
		return Nil, err
	}
	keep := min(n, old)
	data := a.ar.Bytes()
	copy(data[int(q):int(q)+keep], data[int(p):int(p)+keep])
	if err := a.Free(p); err != nil {
		return Nil, err
	}
	a.stats.ReallocMoved++
	return q, nil
}

// Payload returns the requested bytes of p, or nil for an invalid pointer.
func (a *Naive) Payload(p Ptr) []byte {
	n, err := a.lookup(p)
	if err != nil {
		return nil
	}
	start := int(p)
	return a.ar.Bytes()[start : start+n : start+n]
}

// lookup returns the request size stored ahead of p.
func (a *Naive) lookup(p Ptr) (int, error) {
	if p < naivePrefix || int(p) >= a.ar.Len() || !format.IsAligned(int(p)) {
		return 0, ErrBadPointer
	}
	w := format.ReadU64(a.ar.Bytes(), int(p)-naivePrefix)
	n := int(w &^ naiveFreed)
	if n <= 0 || n > a.ar.Len()-int(p) {
		return 0, ErrBadPointer
	}
	if w&naiveFreed != 0 {
		return 0, ErrNotAllocated
	}
	if a.debug {
		if _, ok := a.live[p]; !ok {
			return 0, ErrNotAllocated
		}
	}
	return n, nil
}

func (a *Naive) refuse(p Ptr, err error) error {
	a.stats.Refused++
	a.log.Warn("release refused", "ptr", int(p), "err", err)
	if a.debug {
		a.faults = append(a.faults, &verify.ValidationError{
			Type:    verify.TypeRelease,
			Message: fmt.Sprintf("release of %d refused: %v", p, err),
			Offset:  int(p),
		})
	}
	return fmt.Errorf("free %d: %w", p, err)
}

// Check walks the bump chain and verifies it tiles the arena exactly.
func (a *Naive) Check() error {
	data := a.ar.Bytes()
	off := 0
	for off < len(data) {
		if !format.IsAligned(off) {
			return &verify.ValidationError{
				Type:    verify.TypeAlignment,
				Message: fmt.Sprintf("region at %d is not %d-byte aligned", off, format.Alignment),
				Offset:  off,
			}
		}
		if len(data)-off < naivePrefix {
			break
		}
		n := int(format.ReadU64(data, off) &^ naiveFreed)
		if n <= 0 || n > len(data)-off-naivePrefix {
			return &verify.ValidationError{
				Type:    verify.TypeSize,
				Message: fmt.Sprintf("region size %d does not fit the arena", n),
				Offset:  off,
			}
		}
		off += format.Align16(n + naivePrefix)
	}
	if off != len(data) {
		return &verify.ValidationError{
			Type:    verify.TypePartition,
			Message: fmt.Sprintf("regions end at %d, arena holds %d bytes", off, len(data)),
			Offset:  off,
		}
	}
	if len(a.faults) > 0 {
		return a.faults[0]
	}
	return nil
}

// HeapSize returns the number of arena bytes handed out.
func (a *Naive) HeapSize() int { return a.ar.Len() }

// Stats returns a snapshot of allocator counters.
func (a *Naive) Stats() Stats {
	s := a.stats
	s.HeapSize = a.ar.Len()
	return s
}

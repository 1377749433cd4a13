package trace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
)

var (
	// ErrCorrupt indicates a payload changed while the caller owned it.
	ErrCorrupt = errors.New("trace: payload corrupted")

	// ErrMisaligned indicates the allocator returned an unaligned pointer.
	ErrMisaligned = errors.New("trace: misaligned payload")

	// ErrCapacity indicates a payload shorter than the request.
	ErrCapacity = errors.New("trace: payload shorter than request")

	// ErrState indicates an op that does not match the id's state, such as
	// releasing an id that was never allocated.
	ErrState = errors.New("trace: id state mismatch")
)

// ctxCheckInterval is how many ops run between context checks.
const ctxCheckInterval = 256

// Options configures Replay.
type Options struct {
	// CheckEvery runs the allocator's Check after every N ops. Zero checks
	// only once, after the last op.
	CheckEvery int

	// Logger receives progress events. Nil means logger.L.
	Logger *slog.Logger
}

// Result summarizes a replay.
type Result struct {
	Ops      int
	PeakLive int64 // High-water mark of live requested bytes
	HeapSize int   // Arena bytes at the end
	Elapsed  time.Duration
	Stats    alloc.Stats
}

// Utilization is peak live bytes over final heap size.
func (r Result) Utilization() float64 {
	if r.HeapSize == 0 {
		return 0
	}
	return float64(r.PeakLive) / float64(r.HeapSize)
}

// Throughput is ops per second.
func (r Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// OpError wraps a failure with the op that caused it.
type OpError struct {
	Index int
	Op    Op
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("op %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

type slot struct {
	p    alloc.Ptr
	n    int
	sum  uint64
	live bool
}

type replayer struct {
	a     alloc.Allocator
	slots []slot
	live  int64
	peak  int64
}

// Replay runs every op of t against a, filling each payload with a pattern
// and verifying its xxhash checksum whenever the block is resized or
// released, and for every live block at the end. The first failure stops the
// replay and is returned as an *OpError.
func Replay(ctx context.Context, a alloc.Allocator, t *Trace, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = logger.L
	}

	r := &replayer{a: a, slots: make([]slot, t.NumIDs)}
	start := time.Now()

	for i, op := range t.Ops {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		if err := r.step(i, op); err != nil {
			log.Warn("replay failed", "op", i, "kind", op.Kind.String(), "id", op.ID, "err", err)
			return Result{}, &OpError{Index: i, Op: op, Err: err}
		}
		if opts.CheckEvery > 0 && (i+1)%opts.CheckEvery == 0 {
			if err := a.Check(); err != nil {
				return Result{}, &OpError{Index: i, Op: op, Err: err}
			}
		}
	}
	elapsed := time.Since(start)

	for id := range r.slots {
		if err := r.verify(id); err != nil {
			return Result{}, fmt.Errorf("final sweep, id %d: %w", id, err)
		}
	}
	if err := a.Check(); err != nil {
		return Result{}, fmt.Errorf("final check: %w", err)
	}

	res := Result{
		Ops:      len(t.Ops),
		PeakLive: r.peak,
		HeapSize: a.HeapSize(),
		Elapsed:  elapsed,
		Stats:    a.Stats(),
	}
	log.Debug("replay finished",
		"ops", res.Ops,
		"peak_live", res.PeakLive,
		"heap_size", res.HeapSize,
		"utilization", res.Utilization(),
		"elapsed", res.Elapsed)
	return res, nil
}

func (r *replayer) step(i int, op Op) error {
	s := &r.slots[op.ID]
	switch op.Kind {
	case OpAlloc:
		if s.live {
			return fmt.Errorf("%w: id already allocated", ErrState)
		}
		p, err := r.a.Alloc(op.Size)
		if err != nil {
			return err
		}
		return r.bind(op.ID, p, op.Size, i)

	case OpRealloc:
		if err := r.verify(op.ID); err != nil {
			return err
		}
		keep := min(op.Size, s.n)
		var want uint64
		if keep > 0 {
			want = xxhash.Sum64(r.a.Payload(s.p)[:keep])
		}
		p, err := r.a.Realloc(s.p, op.Size)
		if err != nil {
			return err
		}
		r.unbind(op.ID)
		if op.Size == 0 {
			return nil
		}
		if keep > 0 && xxhash.Sum64(r.a.Payload(p)[:keep]) != want {
			return fmt.Errorf("%w: first %d bytes not preserved by resize", ErrCorrupt, keep)
		}
		return r.bind(op.ID, p, op.Size, i)

	case OpFree:
		if !s.live {
			return fmt.Errorf("%w: id not allocated", ErrState)
		}
		if err := r.verify(op.ID); err != nil {
			return err
		}
		if err := r.a.Free(s.p); err != nil {
			return err
		}
		r.unbind(op.ID)
		return nil

	default:
		return fmt.Errorf("%w: unknown operation %q", ErrSyntax, op.Kind)
	}
}

// bind records p for id and fills its payload.
func (r *replayer) bind(id int, p alloc.Ptr, n, seq int) error {
	s := &r.slots[id]
	*s = slot{p: p, n: n, live: true}
	r.live += int64(n)
	r.peak = max(r.peak, r.live)
	if n == 0 {
		return nil
	}

	if !format.IsAligned(int(p)) {
		return fmt.Errorf("%w: %d", ErrMisaligned, p)
	}
	buf := r.a.Payload(p)
	if len(buf) < n {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrCapacity, len(buf), n)
	}
	buf = buf[:n]
	fillPattern(buf, id, seq)
	s.sum = xxhash.Sum64(buf)
	return nil
}

func (r *replayer) unbind(id int) {
	s := &r.slots[id]
	if s.live {
		r.live -= int64(s.n)
	}
	*s = slot{}
}

// verify recomputes the checksum of a live id.
func (r *replayer) verify(id int) error {
	s := r.slots[id]
	if !s.live || s.n == 0 {
		return nil
	}
	buf := r.a.Payload(s.p)
	if len(buf) < s.n {
		return fmt.Errorf("%w: id %d payload now %d bytes, want %d", ErrCapacity, id, len(buf), s.n)
	}
	if got := xxhash.Sum64(buf[:s.n]); got != s.sum {
		return fmt.Errorf("%w: id %d checksum %016x, want %016x", ErrCorrupt, id, got, s.sum)
	}
	return nil
}

// fillPattern writes bytes that differ per id and per op, so a block that
// overlaps another shows up as a checksum mismatch.
func fillPattern(buf []byte, id, seq int) {
	x := (uint64(id)*0x9e3779b97f4a7c15 ^ uint64(seq)) | 1
	for i := range buf {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		buf[i] = byte(x)
	}
}

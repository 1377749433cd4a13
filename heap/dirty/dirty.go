package dirty

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/joshuapare/heapkit/internal/format"
)

// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
const defaultRangeCapacity = 64

// Range represents a dirty byte range (absolute image offsets).
type Range struct {
	Off int64 // Absolute offset in image
	Len int64 // Length in bytes
}

// End returns the exclusive end offset.
func (r Range) End() int64 { return r.Off + r.Len }

// truncater is satisfied by *os.File.
type truncater interface {
	Truncate(size int64) error
}

// Tracker accumulates dirty ranges and flushes them to an image file.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	ranges   []Range // raw ranges, coalesced at flush time
	pageSize int64
}

var _ DirtyTracker = (*Tracker)(nil)

// NewTracker creates an empty tracker using 4KB pages.
func NewTracker() *Tracker {
	return &Tracker{
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: format.PageSize,
	}
}

// Add records a dirty range. Non-positive lengths are ignored.
//
// The range is page-aligned and coalesced with other ranges at flush time,
// so Add itself is a slice append.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// Pending reports whether any range has been recorded since the last flush.
func (t *Tracker) Pending() bool {
	return len(t.ranges) > 0
}

// Flush writes every dirty page of data to w and clears the tracker.
//
// Pages are clipped to len(data). When w can be truncated (an *os.File), it is
// truncated to len(data) afterwards so the file mirrors the image exactly.
//
// The context is checked between ranges. If cancelled mid-way, some pages may
// have been written; the tracker keeps its ranges so a retry rewrites them.
func (t *Tracker) Flush(ctx context.Context, w io.WriterAt, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	limit := int64(len(data))
	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		start, end := r.Off, r.End()
		if start >= limit {
			continue
		}
		if end > limit {
			end = limit
		}
		if _, err := w.WriteAt(data[start:end], start); err != nil {
			return fmt.Errorf("dirty: write [%d,%d): %w", start, end, err)
		}
	}

	if tr, ok := w.(truncater); ok {
		if err := tr.Truncate(limit); err != nil {
			return fmt.Errorf("dirty: truncate to %d: %w", limit, err)
		}
	}

	t.ranges = t.ranges[:0]
	return nil
}

// Reset clears all tracked ranges.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// Ranges returns the coalesced dirty ranges that the next Flush will write.
func (t *Tracker) Ranges() []Range {
	return t.coalesce()
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping/adjacent ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize

		end := r.End()
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}

		aligned[i] = Range{
			Off: start,
			Len: end - start,
		}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]

	for _, next := range aligned[1:] {
		if next.Off <= current.End() {
			if next.End() > current.End() {
				current.Len = next.End() - current.Off
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}

	return append(merged, current)
}

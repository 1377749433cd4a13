// Package dirty provides page-level tracking of modified heap image bytes.
//
// # Overview
//
// The allocator reports every metadata and payload write it performs through
// the DirtyTracker interface. The Tracker records those ranges and, at flush
// time, page-aligns, sorts, and merges them so an image file on disk can be
// brought up to date by writing only the pages that changed.
//
// # Usage
//
//	dt := dirty.NewTracker()
//	a, err := alloc.NewImplicit(ar, alloc.Options{Dirty: dt})
//	// ... allocate and free ...
//	if err := dt.Flush(ctx, f, ar.Bytes()); err != nil {
//	    return err
//	}
//
// # Range Coalescing
//
// Consecutive dirty pages are merged into single ranges:
//
//	Dirty pages: [0, 1, 2, 5, 6] → Ranges: [0x0-0x3000, 0x5000-0x7000]
//
// # Thread Safety
//
// Tracker instances are not thread-safe.
package dirty

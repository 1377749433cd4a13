package alloc

// Stats holds allocator counters. Byte counts of live data use the caller's
// request sizes, not block sizes.
type Stats struct {
	AllocCalls     int   // Total Alloc() calls, including those made by Realloc
	AllocFastPath  int   // Allocations satisfied without growing the heap
	AllocSlowPath  int   // Allocations that required growth
	FreeCalls      int   // Total Free() calls, including those made by Realloc
	ReallocCalls   int   // Total Realloc() calls
	ReallocInPlace int   // Resizes that kept the same pointer
	ReallocMoved   int   // Resizes that allocated, copied, and released
	Refused        int   // Releases rejected as bad or not allocated
	GrowCalls      int   // Successful heap extensions
	GrowBytes      int64 // Total bytes added by extensions
	GrowFailures   int   // Extensions the arena refused
	SplitCount     int   // Block splits
	FitProbes      int64 // Blocks inspected by the fit search

	CoalesceNone     int // Frees with both neighbours allocated
	CoalesceForward  int // Merges with the next block only
	CoalesceBackward int // Merges with the previous block only
	CoalesceBoth     int // Merges with both neighbours

	LiveBlocks    int   // Blocks currently allocated
	LiveBytes     int64 // Sum of live request sizes
	PeakLiveBytes int64 // High-water mark of LiveBytes
	HeapSize      int   // Arena bytes spanned by the heap
}

func (s *Stats) addLive(n int) {
	s.LiveBlocks++
	s.LiveBytes += int64(n)
	if s.LiveBytes > s.PeakLiveBytes {
		s.PeakLiveBytes = s.LiveBytes
	}
}

func (s *Stats) dropLive(n int) {
	s.LiveBlocks--
	s.LiveBytes -= int64(n)
}

// resizeLive swaps a live request size without touching the block count.
func (s *Stats) resizeLive(from, to int) {
	s.LiveBytes += int64(to - from)
	if s.LiveBytes > s.PeakLiveBytes {
		s.PeakLiveBytes = s.LiveBytes
	}
}

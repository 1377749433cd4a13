package verify

import "github.com/joshuapare/heapkit/internal/format"

// Summary aggregates block counts over a heap image.
type Summary struct {
	HeapSize       int // Image length in bytes
	Blocks         int // Ordinary blocks (sentinels excluded)
	FreeBlocks     int
	FreeBytes      int // Sum of free block sizes
	AllocBlocks    int
	AllocBytes     int // Sum of allocated block sizes
	RequestedBytes int // Sum of shadow request sizes
	LargestFree    int
}

// Utilization is requested bytes over heap size.
func (s Summary) Utilization() float64 {
	if s.HeapSize == 0 {
		return 0
	}
	return float64(s.RequestedBytes) / float64(s.HeapSize)
}

// Summarize validates the image and tallies its blocks.
func Summarize(data []byte) (Summary, error) {
	s := Summary{HeapSize: len(data)}
	if err := Prologue(data); err != nil {
		return s, err
	}
	err := Walk(data, func(blk format.Block) error {
		s.Blocks++
		if blk.Allocated {
			s.AllocBlocks++
			s.AllocBytes += blk.Size
			s.RequestedBytes += blk.Request
			return nil
		}
		s.FreeBlocks++
		s.FreeBytes += blk.Size
		s.LargestFree = max(s.LargestFree, blk.Size)
		return nil
	})
	return s, err
}

package alloc

import "github.com/joshuapare/heapkit/internal/format"

// adjustedSize is the block size serving a request of n bytes: payload plus
// header, shadow, and footer, rounded up to the alignment.
func adjustedSize(n int) (int, bool) {
	if n <= 0 || n > format.MaxBlockSize-format.Overhead-format.AlignmentMask {
		return 0, false
	}
	return format.Align16(n + format.Overhead), true
}

// findFit searches the implicit list for a free block of at least asize bytes.
func (h *Implicit) findFit(asize int) (block, bool) {
	if h.fit == BestFit {
		return h.bestFit(asize)
	}
	for b, ok := block(format.FirstBlock), true; ok; b, ok = h.next(b) {
		h.stats.FitProbes++
		if !h.allocated(b) && h.size(b) >= asize {
			return b, true
		}
	}
	return 0, false
}

func (h *Implicit) bestFit(asize int) (block, bool) {
	var (
		best     block
		bestSize int
		found    bool
	)
	for b, ok := block(format.FirstBlock), true; ok; b, ok = h.next(b) {
		h.stats.FitProbes++
		size := h.size(b)
		if h.allocated(b) || size < asize {
			continue
		}
		if !found || size < bestSize {
			best, bestSize, found = b, size, true
			if size == asize {
				break
			}
		}
	}
	return best, found
}

// place marks b allocated for a request of n bytes (block size asize),
// splitting off the tail when it can stand as its own block.
func (h *Implicit) place(b block, asize, n int) {
	csize := h.size(b)
	if csize-asize >= format.MinBlockSize {
		h.setTags(b, asize, true)
		rest := b + block(asize)
		h.setTags(rest, csize-asize, false)
		h.setRequest(rest, 0)
		h.stats.SplitCount++
	} else {
		h.setTags(b, csize, true)
	}
	h.setRequest(b, n)
	h.markDirty(int(b.ptr()), n)
}

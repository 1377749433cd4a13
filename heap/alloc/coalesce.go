package alloc

import "github.com/joshuapare/heapkit/internal/format"

// coalesce merges the free block b with free physical neighbours and returns
// the header offset of the merged block. The prologue and epilogue are
// always allocated, so no boundary checks are needed.
func (h *Implicit) coalesce(b block) block {
	size := h.size(b)
	prevFree := !format.TagAllocated(h.prevFooter(b))
	next := b + block(size)
	nextFree := !h.allocated(next)

	switch {
	case !prevFree && !nextFree:
		h.stats.CoalesceNone++
		return b

	case !prevFree && nextFree:
		size += h.size(next)
		h.scrub(int(next))
		h.setTags(b, size, false)
		h.stats.CoalesceForward++

	case prevFree && !nextFree:
		prev, _ := h.prev(b)
		size += h.size(prev)
		h.scrub(int(b))
		b = prev
		h.setTags(b, size, false)
		h.stats.CoalesceBackward++

	default:
		prev, _ := h.prev(b)
		size += h.size(prev) + h.size(next)
		h.scrub(int(b))
		h.scrub(int(next))
		b = prev
		h.setTags(b, size, false)
		h.stats.CoalesceBoth++
	}

	h.setRequest(b, 0)
	return b
}

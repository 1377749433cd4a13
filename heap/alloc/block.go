package alloc

import "github.com/joshuapare/heapkit/internal/format"

// block is the offset of a block header in the arena.
type block int

func (b block) ptr() Ptr { return Ptr(b) + format.PayloadOffset }

func blockOf(p Ptr) block { return block(p) - format.PayloadOffset }

func (h *Implicit) data() []byte { return h.ar.Bytes() }

func (h *Implicit) tag(b block) uint64 { return format.ReadTag(h.data(), int(b)) }

func (h *Implicit) size(b block) int { return format.TagSize(h.tag(b)) }

func (h *Implicit) allocated(b block) bool { return format.TagAllocated(h.tag(b)) }

// prevFooter is the tag of the block physically before b (the prologue for
// the first block).
func (h *Implicit) prevFooter(b block) uint64 {
	return format.ReadTag(h.data(), int(b)-format.TagWidth)
}

func (h *Implicit) request(b block) int {
	return int(format.ReadU64(h.data(), int(b)+format.ShadowOffset))
}

func (h *Implicit) setRequest(b block, n int) {
	format.PutU64(h.data(), int(b)+format.ShadowOffset, uint64(n))
	h.markDirty(int(b)+format.ShadowOffset, format.WordSize)
}

// setTags writes matching header and footer tags for a block of size bytes at b.
func (h *Implicit) setTags(b block, size int, allocated bool) {
	tag := format.Pack(size, allocated)
	data := h.data()
	format.PutTag(data, int(b), tag)
	format.PutTag(data, int(b)+size-format.TagWidth, tag)
	h.markDirty(int(b), format.TagWidth)
	h.markDirty(int(b)+size-format.TagWidth, format.TagWidth)
}

// scrub clears a tag word left inside a merged block so a stale pointer into
// the merged region reads as not allocated.
func (h *Implicit) scrub(off int) {
	format.PutTag(h.data(), off, 0)
	h.markDirty(off, format.TagWidth)
}

// next returns the block after b, or false when b is the epilogue.
func (h *Implicit) next(b block) (block, bool) {
	size := h.size(b)
	if size == 0 {
		return 0, false
	}
	nb := b + block(size)
	if int(nb) > h.epilogue {
		return 0, false
	}
	return nb, true
}

// prev returns the block before b using its footer. For the first block this
// is the prologue at offset 0.
func (h *Implicit) prev(b block) (block, bool) {
	size := format.TagSize(h.prevFooter(b))
	if size == 0 || size > int(b) {
		return 0, false
	}
	return b - block(size), true
}

func (h *Implicit) markDirty(off, n int) {
	if h.dt != nil {
		h.dt.Add(off, n)
	}
}

// lookup maps a pointer to its block, rejecting pointers that cannot name
// a block in this heap. It does not check the allocated bit.
func (h *Implicit) lookup(p Ptr) (block, error) {
	if p < format.FirstBlock+format.PayloadOffset || int(p) >= h.epilogue || !format.IsAligned(int(p)) {
		return 0, ErrBadPointer
	}
	b := blockOf(p)
	size := h.size(b)
	if size != 0 && (size < format.MinBlockSize || size%format.Alignment != 0 || size > h.epilogue-int(b)) {
		return 0, ErrBadPointer
	}
	return b, nil
}

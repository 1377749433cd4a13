package format

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
)

// Block is a decoded view of a single block (free or in use) in a heap image.
//
// Block layout (little-endian):
//
//	Offset     Size  Description
//	0x00       8     Header tag. Size includes header, shadow, and footer.
//	0x08       8     Shadow word: caller's requested size on allocated blocks.
//	0x10       ...   Payload.
//	size-0x08  8     Footer tag.
type Block struct {
	Offset    int    // Offset of the header relative to the image start
	Size      int    // Total size including metadata
	Allocated bool   // True when the header's allocated bit is set
	Footer    uint64 // Raw footer tag (equal to the header on a healthy heap)
	Request   int    // Shadow word; meaningful only when Allocated
	Payload   []byte // Payload bytes (alias of underlying buffer)
}

// Ptr returns the payload offset of the block.
func (blk Block) Ptr() int {
	return blk.Offset + PayloadOffset
}

// Header re-packs the decoded header tag.
func (blk Block) Header() uint64 {
	return Pack(blk.Size, blk.Allocated)
}

// NextBlock decodes the block whose header sits at off and returns it plus the
// offset of the following block. A zero-size header is the epilogue: it is
// returned with next == off and no error. The caller must ensure off points at
// a header.
func NextBlock(b []byte, off int) (Block, int, error) {
	if !buf.Has(b, off, TagWidth) {
		return Block{}, 0, fmt.Errorf("block at %d: %w", off, ErrTruncated)
	}
	tag := ReadTag(b, off)
	size := TagSize(tag)
	if size == 0 {
		return Block{Offset: off, Allocated: TagAllocated(tag)}, off, nil
	}
	if size%Alignment != 0 {
		return Block{}, 0, fmt.Errorf("block at %d size %d: %w", off, size, ErrMisaligned)
	}
	if size < PrologueSize {
		return Block{}, 0, fmt.Errorf("block at %d size %d: %w", off, size, ErrTruncated)
	}
	if _, err := buf.CheckSpan(len(b), off, size); err != nil {
		return Block{}, 0, fmt.Errorf("block at %d: %w: %v", off, ErrTruncated, err)
	}
	blk := Block{
		Offset:    off,
		Size:      size,
		Allocated: TagAllocated(tag),
		Footer:    ReadTag(b, off+size-TagWidth),
	}
	if size >= Overhead {
		blk.Request = int(ReadU64(b, off+ShadowOffset))
		blk.Payload = b[off+PayloadOffset : off+size-TagWidth]
	}
	return blk, off + size, nil
}

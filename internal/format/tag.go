package format

import "math"

// Tag layout (one little-endian word):
//
//	bits 63..3  block size (always a multiple of Alignment, so the low bits are free)
//	bits  2..1  reserved, always zero
//	bit      0  allocated flag
const (
	// FlagMask covers the low bits reserved for flags.
	FlagMask = uint64(0x7)

	// AllocatedBit marks a block as in use.
	AllocatedBit = uint64(0x1)

	// MaxBlockSize is the largest size a tag can carry.
	MaxBlockSize = math.MaxInt &^ int(FlagMask)
)

// Pack combines a block size and the allocated flag into a tag.
// size must already be a multiple of 8; stray low bits are dropped.
func Pack(size int, allocated bool) uint64 {
	tag := uint64(size) & ^FlagMask
	if allocated {
		tag |= AllocatedBit
	}
	return tag
}

// TagSize extracts the block size from a tag.
func TagSize(tag uint64) int {
	return int(tag & ^FlagMask)
}

// TagAllocated reports whether the tag's allocated bit is set.
func TagAllocated(tag uint64) bool {
	return tag&AllocatedBit != 0
}

// ReadTag reads the tag word stored at off.
func ReadTag(b []byte, off int) uint64 {
	return ReadU64(b, off)
}

// PutTag writes tag at off.
func PutTag(b []byte, off int, tag uint64) {
	PutU64(b, off, tag)
}

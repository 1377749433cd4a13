// Package format houses the low-level layout of a boundary-tag heap image:
// word encoding, alignment helpers, and the header/footer tag codec. Higher
// level packages (alloc, verify) never touch tag bits directly; they go
// through the helpers here so the layout is defined in exactly one place.
package format

const (
	// WordSize is the width of every metadata word (header, shadow, footer).
	WordSize = 8

	// Alignment is the required alignment of block starts and payloads.
	Alignment = 16

	// AlignmentMask is the bitmask used for aligning to Alignment boundaries.
	AlignmentMask = Alignment - 1

	// TagWidth is the width of a header or footer tag.
	TagWidth = WordSize

	// ShadowOffset is the offset of the request-size shadow word from the
	// block start. It holds the caller's original request on allocated blocks.
	ShadowOffset = TagWidth

	// PayloadOffset is the offset of the payload from the block start.
	//
	// Layout (little-endian words):
	//
	//	Offset      Size  Description
	//	0x00        8     Header tag: size | flags
	//	0x08        8     Shadow: requested byte count (0 when free)
	//	0x10        ...   Payload
	//	size-0x08   8     Footer tag, identical to the header
	PayloadOffset = TagWidth + WordSize

	// Overhead is the number of metadata bytes per block.
	Overhead = PayloadOffset + TagWidth

	// MinBlockSize is the smallest block that can stand on its own:
	// header, shadow, footer, rounded up to Alignment.
	MinBlockSize = (Overhead + AlignmentMask) & ^AlignmentMask

	// PrologueSize is the size of the permanently allocated prologue block
	// (a header/footer pair with no payload).
	PrologueSize = 2 * TagWidth

	// EpilogueSize is the number of bytes the epilogue occupies at the end of
	// the image: one zero-size header plus padding up to Alignment.
	EpilogueSize = Alignment

	// InitialSize is the image size before the first extension: prologue
	// followed by the epilogue slot.
	InitialSize = PrologueSize + EpilogueSize

	// FirstBlock is the offset of the first ordinary block.
	FirstBlock = PrologueSize

	// DefaultChunkSize is the default number of bytes requested from the
	// arena when the heap has to grow.
	DefaultChunkSize = 4096

	// PageSize is the granularity used for dirty tracking and mmap commits.
	PageSize = 4096
)

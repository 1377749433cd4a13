package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrMisaligned indicates a block start or size off the alignment grid.
	ErrMisaligned = errors.New("format: misaligned block")
)

package verify

import (
	"errors"
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// Validation error types.
const (
	TypePrologue     = "Prologue"
	TypeEpilogue     = "Epilogue"
	TypeAlignment    = "Alignment"
	TypeSize         = "Size"
	TypeTagMismatch  = "TagMismatch"
	TypeAdjacentFree = "AdjacentFree"
	TypePartition    = "Partition"
	TypeRelease      = "Release"
)

// ValidationError describes one broken heap invariant.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// IsType reports whether err is a *ValidationError of the given type.
func IsType(err error, typ string) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Type == typ
}

// Heap validates every invariant of a heap image.
// Returns the first error encountered, or nil if all checks pass.
func Heap(data []byte) error {
	if err := Prologue(data); err != nil {
		return err
	}
	return Walk(data, nil)
}

// Prologue validates the size of the image and the prologue sentinel.
func Prologue(data []byte) error {
	if len(data) < format.InitialSize {
		return &ValidationError{
			Type:    TypePartition,
			Message: fmt.Sprintf("image too small: %d bytes (need %d)", len(data), format.InitialSize),
			Offset:  -1,
		}
	}
	if len(data)%format.Alignment != 0 {
		return &ValidationError{
			Type:    TypeAlignment,
			Message: fmt.Sprintf("image length %d is not a multiple of %d", len(data), format.Alignment),
			Offset:  -1,
		}
	}

	want := format.Pack(format.PrologueSize, true)
	hdr := format.ReadTag(data, 0)
	ftr := format.ReadTag(data, format.TagWidth)
	if hdr != want || ftr != want {
		return &ValidationError{
			Type:    TypePrologue,
			Message: fmt.Sprintf("prologue tags 0x%X/0x%X, want 0x%X", hdr, ftr, want),
			Offset:  0,
			Details: map[string]interface{}{"header": hdr, "footer": ftr},
		}
	}
	return nil
}

// Walk visits every ordinary block from the first block to the epilogue,
// checking per-block invariants as it goes. fn may be nil; a non-nil error
// from fn stops the walk and is returned unchanged.
func Walk(data []byte, fn func(format.Block) error) error {
	off := format.FirstBlock
	prevFree := false
	for {
		if off > len(data)-format.EpilogueSize {
			return &ValidationError{
				Type:    TypePartition,
				Message: fmt.Sprintf("walk ran past the epilogue slot (image %d bytes)", len(data)),
				Offset:  off,
			}
		}

		blk, next, err := format.NextBlock(data, off)
		if err != nil {
			typ := TypeSize
			if errors.Is(err, format.ErrMisaligned) {
				typ = TypeAlignment
			}
			return &ValidationError{Type: typ, Message: err.Error(), Offset: off}
		}

		if blk.Size == 0 {
			return epilogue(data, blk)
		}
		if err := block(blk, prevFree); err != nil {
			return err
		}
		if fn != nil {
			if err := fn(blk); err != nil {
				return err
			}
		}

		prevFree = !blk.Allocated
		off = next
	}
}

func epilogue(data []byte, blk format.Block) error {
	if !blk.Allocated {
		return &ValidationError{
			Type:    TypeEpilogue,
			Message: "epilogue header is not marked allocated",
			Offset:  blk.Offset,
		}
	}
	if blk.Offset+format.EpilogueSize != len(data) {
		return &ValidationError{
			Type:    TypePartition,
			Message: fmt.Sprintf("epilogue at %d does not end the image (%d bytes)", blk.Offset, len(data)),
			Offset:  blk.Offset,
		}
	}
	return nil
}

func block(blk format.Block, prevFree bool) error {
	if !format.IsAligned(blk.Ptr()) {
		return &ValidationError{
			Type:    TypeAlignment,
			Message: fmt.Sprintf("payload at %d is not %d-byte aligned", blk.Ptr(), format.Alignment),
			Offset:  blk.Offset,
		}
	}
	if blk.Size < format.MinBlockSize {
		return &ValidationError{
			Type:    TypeSize,
			Message: fmt.Sprintf("block size %d below minimum %d", blk.Size, format.MinBlockSize),
			Offset:  blk.Offset,
		}
	}
	if blk.Footer != blk.Header() {
		return &ValidationError{
			Type:    TypeTagMismatch,
			Message: fmt.Sprintf("header 0x%X != footer 0x%X", blk.Header(), blk.Footer),
			Offset:  blk.Offset,
			Details: map[string]interface{}{"header": blk.Header(), "footer": blk.Footer},
		}
	}
	if !blk.Allocated && prevFree {
		return &ValidationError{
			Type:    TypeAdjacentFree,
			Message: "free block follows another free block",
			Offset:  blk.Offset,
		}
	}
	if blk.Allocated && (blk.Request <= 0 || blk.Request > blk.Size-format.Overhead) {
		return &ValidationError{
			Type:    TypeSize,
			Message: fmt.Sprintf("request %d does not fit block of %d bytes", blk.Request, blk.Size),
			Offset:  blk.Offset,
			Details: map[string]interface{}{"request": blk.Request, "size": blk.Size},
		}
	}
	return nil
}

package alloc

import "errors"

var (
	// ErrNoSpace indicates the heap could not satisfy a request and growth failed.
	ErrNoSpace = errors.New("alloc: out of memory")

	// ErrBadPointer indicates a pointer outside the heap or off the alignment grid.
	ErrBadPointer = errors.New("alloc: bad pointer")

	// ErrNotAllocated indicates an attempt to release or resize a block that is not in use.
	ErrNotAllocated = errors.New("alloc: block not allocated")

	// ErrBadSize indicates a negative request size.
	ErrBadSize = errors.New("alloc: negative size")

	// ErrArenaInUse indicates the arena handed to a constructor already holds data.
	ErrArenaInUse = errors.New("alloc: arena not empty")
)

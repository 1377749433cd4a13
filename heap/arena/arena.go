// Package arena provides the contiguous, growable memory region a heap is
// carved from.
//
// An Arena only ever grows. Extend hands back the offset where the new bytes
// begin; every byte previously handed out keeps its address for the lifetime
// of the arena (no move-on-grow), so the heap above it may cache slices.
//
// Two implementations are provided:
//
//   - Mem: a Go byte slice with its full capacity preallocated.
//   - Mmap: an anonymous mapping reserved PROT_NONE up front, with pages
//     committed read/write on demand (unix only; other platforms fall back
//     to Mem).
//
// Arenas are not thread-safe.
package arena

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExhausted indicates the arena refused to grow past its limit.
	ErrExhausted = errors.New("arena: exhausted")

	// ErrClosed indicates use of an arena after Close.
	ErrClosed = errors.New("arena: closed")

	// ErrBadLimit indicates a non-positive or unrepresentable limit.
	ErrBadLimit = errors.New("arena: invalid limit")
)

// DefaultLimit is the arena cap used when none is configured (20 MiB, the
// malloc-lab platform limit).
const DefaultLimit = 20 * 1024 * 1024

// Arena is the extension primitive a heap is built on.
type Arena interface {
	// Extend grows the arena by n bytes and returns the offset of the first
	// new byte. New bytes are zeroed. On failure the arena is unchanged.
	Extend(n int) (int, error)

	// Bytes returns the committed region. The slice header may be re-fetched
	// after Extend; addresses of existing bytes never change.
	Bytes() []byte

	// Len returns the number of committed bytes.
	Len() int

	// Limit returns the maximum number of bytes the arena will ever commit.
	Limit() int

	// Close releases the backing memory.
	Close() error
}

// Kind names an arena implementation for configuration.
type Kind string

const (
	KindMem  Kind = "mem"
	KindMmap Kind = "mmap"
)

// ParseKind maps a configuration string to a Kind. Empty means mem.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindMem, nil
	case KindMem, KindMmap:
		return k, nil
	default:
		return "", fmt.Errorf("arena: unknown kind %q", s)
	}
}

// New builds an arena of the given kind and limit.
func New(kind Kind, limit int) (Arena, error) {
	switch kind {
	case KindMem, "":
		m, err := NewMem(limit)
		if err != nil {
			return nil, err
		}
		return m, nil
	case KindMmap:
		m, err := NewMmap(limit)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("arena: unknown kind %q", kind)
	}
}

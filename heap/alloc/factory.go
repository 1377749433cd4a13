package alloc

import (
	"fmt"
	"strings"

	"github.com/joshuapare/heapkit/heap/arena"
)

// Kind names an allocator implementation.
type Kind string

const (
	KindImplicit Kind = "implicit"
	KindNaive    Kind = "naive"
)

// ParseKind maps a configuration string to a Kind. Empty means implicit.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindImplicit, nil
	case KindImplicit, KindNaive:
		return k, nil
	default:
		return "", fmt.Errorf("alloc: unknown allocator %q", s)
	}
}

// New builds the allocator named by kind over ar.
func New(kind Kind, ar arena.Arena, opts Options) (Allocator, error) {
	switch kind {
	case KindImplicit, "":
		return NewImplicit(ar, opts)
	case KindNaive:
		return NewNaive(ar, opts)
	default:
		return nil, fmt.Errorf("alloc: unknown allocator %q", kind)
	}
}

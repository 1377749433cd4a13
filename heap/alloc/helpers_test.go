package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/arena"
	"github.com/joshuapare/heapkit/internal/format"
)

// ============================================================================
// Heap Creation Utilities
// ============================================================================

// newTestHeap creates an Implicit heap over a Mem arena capped at limit bytes.
func newTestHeap(t testing.TB, limit int, opts Options) *Implicit {
	t.Helper()

	ar, err := arena.NewMem(limit)
	require.NoError(t, err)
	h, err := NewImplicit(ar, opts)
	require.NoError(t, err)
	requireConsistent(t, h)
	return h
}

// requireConsistent fails the test if the heap breaks an invariant.
func requireConsistent(t testing.TB, a Allocator) {
	t.Helper()
	require.NoError(t, a.Check(), "heap must be consistent")
}

// requireAligned fails the test if p is not 16-byte aligned.
func requireAligned(t testing.TB, p Ptr) {
	t.Helper()
	require.True(t, format.IsAligned(int(p)), "pointer %d not aligned", p)
}

// collectBlocks returns every ordinary block in address order.
func collectBlocks(t testing.TB, h *Implicit) []format.Block {
	t.Helper()
	var out []format.Block
	require.NoError(t, h.Walk(func(b format.Block) error {
		out = append(out, b)
		return nil
	}))
	return out
}

// freeBlocks returns the free blocks in address order.
func freeBlocks(t testing.TB, h *Implicit) []format.Block {
	t.Helper()
	var out []format.Block
	for _, b := range collectBlocks(t, h) {
		if !b.Allocated {
			out = append(out, b)
		}
	}
	return out
}

// fill writes a recognisable pattern into p's payload.
func fill(a Allocator, p Ptr, seed byte) {
	buf := a.Payload(p)
	for i := range buf {
		buf[i] = seed + byte(i)
	}
}

// requirePattern checks the first n payload bytes of p against fill's pattern.
func requirePattern(t testing.TB, a Allocator, p Ptr, seed byte, n int) {
	t.Helper()
	buf := a.Payload(p)
	require.GreaterOrEqual(t, len(buf), n)
	for i := range n {
		if buf[i] != seed+byte(i) {
			require.Failf(t, "payload corrupted", "ptr %d byte %d: got %d want %d", p, i, buf[i], seed+byte(i))
		}
	}
}

package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/arena"
	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/format"
)

func newTestNaive(t *testing.T, limit int, opts Options) *Naive {
	t.Helper()
	ar, err := arena.NewMem(limit)
	require.NoError(t, err)
	a, err := NewNaive(ar, opts)
	require.NoError(t, err)
	return a
}

// TestNaive_BumpsAndNeverReuses verifies consecutive regions and no reuse
// after Free.
func TestNaive_BumpsAndNeverReuses(t *testing.T) {
	a := newTestNaive(t, arena.DefaultLimit, Options{})

	p1, err := a.Alloc(1)
	require.NoError(t, err)
	p2, err := a.Alloc(24)
	require.NoError(t, err)
	require.Equal(t, Ptr(16), p1)
	require.Equal(t, Ptr(48), p2, "1 byte + 16 prefix rounds to 32")

	require.NoError(t, a.Free(p1))
	p3, err := a.Alloc(1)
	require.NoError(t, err)
	require.Greater(t, p3, p2)
	require.Equal(t, 112, a.HeapSize())
	requireConsistent(t, a)
}

// TestNaive_ReallocCopies verifies Realloc always moves and keeps the prefix.
func TestNaive_ReallocCopies(t *testing.T) {
	a := newTestNaive(t, arena.DefaultLimit, Options{})

	p, _ := a.Alloc(40)
	fill(a, p, 21)

	q, err := a.Realloc(p, 10)
	require.NoError(t, err)
	require.NotEqual(t, p, q)
	require.Len(t, a.Payload(q), 10)
	requirePattern(t, a, q, 21, 10)
	require.Equal(t, 1, a.Stats().ReallocMoved)
	requireConsistent(t, a)
}

// TestNaive_Exhaustion verifies a refused extension surfaces as ErrNoSpace.
func TestNaive_Exhaustion(t *testing.T) {
	a := newTestNaive(t, 64, Options{})

	_, err := a.Alloc(32)
	require.NoError(t, err)
	_, err = a.Alloc(32)
	require.ErrorIs(t, err, ErrNoSpace)
	require.Equal(t, 48, a.HeapSize())
	requireConsistent(t, a)
}

// TestNaive_CheckDetectsCorruption verifies Check notices a clobbered size prefix.
func TestNaive_CheckDetectsCorruption(t *testing.T) {
	ar, err := arena.NewMem(arena.DefaultLimit)
	require.NoError(t, err)
	a, err := NewNaive(ar, Options{})
	require.NoError(t, err)

	p, _ := a.Alloc(8)
	_, _ = a.Alloc(8)
	format.PutU64(ar.Bytes(), int(p)-naivePrefix, 1<<20)

	err = a.Check()
	require.True(t, verify.IsType(err, verify.TypeSize), "got %v", err)
}

// TestNaive_DebugDoubleRelease verifies debug mode refuses a second Free.
func TestNaive_DebugDoubleRelease(t *testing.T) {
	a := newTestNaive(t, arena.DefaultLimit, Options{Debug: true})

	p, _ := a.Alloc(8)
	require.NoError(t, a.Free(p))
	require.ErrorIs(t, a.Free(p), ErrNotAllocated)
	require.True(t, verify.IsType(a.Check(), verify.TypeRelease))
}

// TestNaive_DoubleReleaseWithoutDebug verifies the released mark in the size
// prefix catches a second Free and leaves the chain intact.
func TestNaive_DoubleReleaseWithoutDebug(t *testing.T) {
	a := newTestNaive(t, arena.DefaultLimit, Options{})

	p, _ := a.Alloc(8)
	q, _ := a.Alloc(8)
	require.NoError(t, a.Free(p))
	require.ErrorIs(t, a.Free(p), ErrNotAllocated)
	require.Nil(t, a.Payload(p))
	require.Len(t, a.Payload(q), 8)
	require.Equal(t, 1, a.Stats().LiveBlocks)
	require.Equal(t, 1, a.Stats().Refused)
	requireConsistent(t, a)
}

// TestNaive_BadPointer verifies pointers outside the arena are refused.
func TestNaive_BadPointer(t *testing.T) {
	a := newTestNaive(t, arena.DefaultLimit, Options{})
	_, _ = a.Alloc(8)

	require.ErrorIs(t, a.Free(Ptr(4096)), ErrBadPointer)
	require.ErrorIs(t, a.Free(Ptr(17)), ErrBadPointer)
	require.NoError(t, a.Free(Nil))
}

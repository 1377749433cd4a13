package alloc

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/arena"
)

type liveBlock struct {
	p    Ptr
	n    int
	seed byte
}

// randomSize favours small requests with an occasional large one.
func randomSize(rng *rand.Rand) int {
	if rng.IntN(20) == 0 {
		return 1 + rng.IntN(6000)
	}
	return 1 + rng.IntN(300)
}

// runRandomOps applies a seeded mix of Alloc, Free, and Realloc, checking
// the heap and every live payload after each step.
func runRandomOps(t *testing.T, a Allocator, seed uint64, ops int) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var live []liveBlock

	for i := range ops {
		switch op := rng.IntN(10); {
		case op < 5 || len(live) == 0:
			n := randomSize(rng)
			p, err := a.Alloc(n)
			require.NoError(t, err, "op %d alloc %d", i, n)
			requireAligned(t, p)
			lb := liveBlock{p: p, n: n, seed: byte(i)}
			fill(a, p, lb.seed)
			live = append(live, lb)

		case op < 8:
			j := rng.IntN(len(live))
			require.NoError(t, a.Free(live[j].p), "op %d free", i)
			live = slices.Delete(live, j, j+1)

		default:
			j := rng.IntN(len(live))
			n := randomSize(rng)
			p, err := a.Realloc(live[j].p, n)
			require.NoError(t, err, "op %d realloc %d", i, n)
			requireAligned(t, p)
			requirePattern(t, a, p, live[j].seed, min(n, live[j].n))
			live[j] = liveBlock{p: p, n: n, seed: byte(i)}
			fill(a, p, live[j].seed)
		}

		requireConsistent(t, a)
		if i%64 == 0 {
			for _, lb := range live {
				requirePattern(t, a, lb.p, lb.seed, lb.n)
			}
		}
	}

	// Payloads never overlap.
	slices.SortFunc(live, func(x, y liveBlock) int { return int(x.p - y.p) })
	for i := 1; i < len(live); i++ {
		require.LessOrEqual(t, int(live[i-1].p)+live[i-1].n, int(live[i].p))
	}
	for _, lb := range live {
		requirePattern(t, a, lb.p, lb.seed, lb.n)
	}

	st := a.Stats()
	require.Equal(t, len(live), st.LiveBlocks)
	var want int64
	for _, lb := range live {
		want += int64(lb.n)
	}
	require.Equal(t, want, st.LiveBytes)
}

// TestProperty_RandomOps runs the same random workload against every
// allocator configuration.
func TestProperty_RandomOps(t *testing.T) {
	configs := []struct {
		name string
		kind Kind
		opts Options
	}{
		{"implicit first-fit", KindImplicit, Options{}},
		{"implicit best-fit", KindImplicit, Options{Fit: BestFit}},
		{"implicit debug small chunks", KindImplicit, Options{Debug: true, ChunkSize: 64}},
		{"naive", KindNaive, Options{Debug: true}},
	}

	for _, cfg := range configs {
		for _, seed := range []uint64{1, 42, 1337} {
			t.Run(cfg.name, func(t *testing.T) {
				ar, err := arena.NewMem(arena.DefaultLimit)
				require.NoError(t, err)
				a, err := New(cfg.kind, ar, cfg.opts)
				require.NoError(t, err)

				runRandomOps(t, a, seed, 1500)
			})
		}
	}
}

// TestProperty_FreeAllCoalesces frees everything in random order and expects
// a single free block spanning the heap.
func TestProperty_FreeAllCoalesces(t *testing.T) {
	h := newTestHeap(t, arena.DefaultLimit, Options{})
	rng := rand.New(rand.NewPCG(7, 7))

	var ptrs []Ptr
	for range 500 {
		p, err := h.Alloc(randomSize(rng))
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}
	rng.Shuffle(len(ptrs), func(i, j int) { ptrs[i], ptrs[j] = ptrs[j], ptrs[i] })
	for _, p := range ptrs {
		require.NoError(t, h.Free(p))
	}

	requireConsistent(t, h)
	blocks := collectBlocks(t, h)
	require.Len(t, blocks, 1)
	require.False(t, blocks[0].Allocated)
	require.Equal(t, h.HeapSize()-32, blocks[0].Size)
}

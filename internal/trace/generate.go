package trace

import "math/rand/v2"

// GenerateOptions shapes a random trace.
type GenerateOptions struct {
	Seed       uint64
	Ops        int // Operations before the closing releases
	MaxSize    int // Largest request size
	FreePct    int // Percent of ops that release a live id
	ReallocPct int // Percent of ops that resize a live id
}

// DefaultGenerateOptions returns a mixed workload of 1000 ops.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Seed:       1,
		Ops:        1000,
		MaxSize:    4096,
		FreePct:    35,
		ReallocPct: 15,
	}
}

// Generate builds a random trace. Every id is allocated once, and every id
// still live after opts.Ops steps is released at the end, so a correct
// allocator finishes with no live blocks. The same options always produce the
// same trace.
func Generate(opts GenerateOptions) *Trace {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 1
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5851f42d4c957f2d))
	size := func() int {
		// Skew toward small requests: half the draws come from the bottom 1/16.
		if rng.IntN(2) == 0 {
			return 1 + rng.IntN(max(opts.MaxSize/16, 1))
		}
		return 1 + rng.IntN(opts.MaxSize)
	}

	t := &Trace{Weight: 1}
	sizes := make(map[int]int)
	var live []int
	var liveBytes, peak int

	for range opts.Ops {
		roll := rng.IntN(100)
		switch {
		case len(live) == 0 || roll >= opts.FreePct+opts.ReallocPct:
			id, n := t.NumIDs, size()
			t.NumIDs++
			t.Ops = append(t.Ops, Op{Kind: OpAlloc, ID: id, Size: n})
			live = append(live, id)
			sizes[id] = n
			liveBytes += n

		case roll < opts.FreePct:
			j := rng.IntN(len(live))
			id := live[j]
			t.Ops = append(t.Ops, Op{Kind: OpFree, ID: id})
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
			liveBytes -= sizes[id]

		default:
			id, n := live[rng.IntN(len(live))], size()
			t.Ops = append(t.Ops, Op{Kind: OpRealloc, ID: id, Size: n})
			liveBytes += n - sizes[id]
			sizes[id] = n
		}
		peak = max(peak, liveBytes)
	}

	rng.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })
	for _, id := range live {
		t.Ops = append(t.Ops, Op{Kind: OpFree, ID: id})
	}

	t.HeapSize = peak
	return t
}

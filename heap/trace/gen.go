package trace

import "math/rand/v2"

// GenOptions shape a synthetic trace.
type GenOptions struct {
	Ops      int
	MaxLive  int     // Upper bound on simultaneously live ids
	MaxSize  int     // Largest request
	Realloc  float64 // Fraction of ops that resize a live id
	FreeBias float64 // Probability of freeing when both alloc and free are possible
}

// Random builds a balanced trace from seed: every id allocated is freed by
// the end, so a correct allocator finishes with an empty heap.
func Random(name string, seed uint64, opts GenOptions) *Trace {
	if opts.Ops <= 0 {
		opts.Ops = 1000
	}
	if opts.MaxLive <= 0 {
		opts.MaxLive = 100
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 4096
	}
	if opts.FreeBias <= 0 {
		opts.FreeBias = 0.45
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	size := func() int {
		// Mostly small requests with a long tail.
		if rng.IntN(8) == 0 {
			return 1 + rng.IntN(opts.MaxSize)
		}
		return 1 + rng.IntN(min(opts.MaxSize, 128))
	}

	t := &Trace{Name: name, Weight: 1}
	var live []int
	next := 0
	for len(t.Ops) < opts.Ops {
		switch {
		case len(live) > 0 && rng.Float64() < opts.Realloc:
			id := live[rng.IntN(len(live))]
			t.Ops = append(t.Ops, Op{Kind: Realloc, ID: id, Size: size()})
		case len(live) > 0 && (len(live) >= opts.MaxLive || rng.Float64() < opts.FreeBias):
			i := rng.IntN(len(live))
			t.Ops = append(t.Ops, Op{Kind: Free, ID: live[i]})
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
		default:
			t.Ops = append(t.Ops, Op{Kind: Alloc, ID: next, Size: size()})
			live = append(live, next)
			next++
		}
	}
	for _, id := range live {
		t.Ops = append(t.Ops, Op{Kind: Free, ID: id})
	}

	for i := range t.Ops {
		t.Ops[i].Line = i + 1
	}
	t.NumIDs = next
	t.NumOps = len(t.Ops)
	return t
}

package alloc

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liuzc1999/malloc-lab/internal/format"
)

type liveBlock struct {
	n    int
	seed byte
}

// randomSize favours small requests with an occasional large one.
func randomSize(rng *rand.Rand) int {
	switch rng.IntN(10) {
	case 0:
		return 1 + rng.IntN(8192)
	case 1, 2:
		return 1 + rng.IntN(512)
	default:
		return 1 + rng.IntN(96)
	}
}

func requireNoOverlap(t *testing.T, a *SegAllocator, live map[Ptr]liveBlock) {
	t.Helper()
	ptrs := make([]Ptr, 0, len(live))
	for p := range live {
		ptrs = append(ptrs, p)
	}
	sort.Slice(ptrs, func(i, j int) bool { return ptrs[i] < ptrs[j] })
	lo, hi := a.Bounds()
	for i, p := range ptrs {
		end := int(p) + a.UsableSize(p)
		require.GreaterOrEqual(t, int(p), lo)
		require.LessOrEqual(t, end, hi)
		if i+1 < len(ptrs) {
			require.LessOrEqual(t, end, int(ptrs[i+1]), "0x%X overlaps 0x%X", p, ptrs[i+1])
		}
	}
}

func TestRandomOperations(t *testing.T) {
	for _, cfg := range AllConfigs() {
		t.Run(cfg.Name, func(t *testing.T) {
			a, _ := newTestAllocator(t, &cfg)
			rng := rand.New(rand.NewPCG(42, uint64(cfg.ChunkSize)))
			live := make(map[Ptr]liveBlock)
			var order []Ptr

			pick := func() (int, Ptr) {
				i := rng.IntN(len(order))
				return i, order[i]
			}
			drop := func(i int) {
				order[i] = order[len(order)-1]
				order = order[:len(order)-1]
			}

			for op := range 3000 {
				seed := byte(op)
				switch r := rng.IntN(100); {
				case r < 45 || len(order) == 0:
					n := randomSize(rng)
					p, err := a.Alloc(n)
					require.NoError(t, err)
					require.True(t, format.IsAligned(int(p)))
					require.GreaterOrEqual(t, a.UsableSize(p), n)
					_, dup := live[p]
					require.False(t, dup, "0x%X handed out twice", p)
					fill(t, a, p, seed)
					live[p] = liveBlock{n: a.UsableSize(p), seed: seed}
					order = append(order, p)

				case r < 75:
					i, p := pick()
					requirePattern(t, a, p, live[p].seed, live[p].n)
					require.NoError(t, a.Free(p))
					delete(live, p)
					drop(i)

				case r < 95:
					i, p := pick()
					old := live[p]
					n := randomSize(rng)
					np, err := a.Realloc(p, n)
					require.NoError(t, err)
					requirePattern(t, a, np, old.seed, min(old.n, n))
					delete(live, p)
					drop(i)
					fill(t, a, np, seed)
					live[np] = liveBlock{n: a.UsableSize(np), seed: seed}
					order = append(order, np)

				default:
					n := 1 + rng.IntN(64)
					p, err := a.Calloc(n, 4)
					require.NoError(t, err)
					require.Equal(t, make([]byte, a.UsableSize(p)), a.Payload(p))
					fill(t, a, p, seed)
					live[p] = liveBlock{n: a.UsableSize(p), seed: seed}
					order = append(order, p)
				}

				require.NoError(t, a.Check(), "op %d", op)
				if op%100 == 0 {
					requireNoOverlap(t, a, live)
				}
			}

			for p, lb := range live {
				requirePattern(t, a, p, lb.seed, lb.n)
				require.NoError(t, a.Free(p))
			}
			require.NoError(t, a.Check())
			u := a.Usage()
			require.Zero(t, u.AllocatedBlocks)
			require.Equal(t, 1, u.FreeBlocks, "everything should coalesce into one block")
		})
	}
}

func TestRandomOperations_Checked(t *testing.T) {
	a, _ := newTestAllocator(t, nil)
	c := NewChecked(a)
	rng := rand.New(rand.NewPCG(7, 7))
	var live []Ptr
	for range 1000 {
		if len(live) > 0 && rng.IntN(2) == 0 {
			i := rng.IntN(len(live))
			require.NoError(t, c.Free(live[i]))
			live = append(live[:i], live[i+1:]...)
			continue
		}
		p, err := c.Alloc(randomSize(rng))
		require.NoError(t, err)
		live = append(live, p)
	}
	require.NoError(t, c.Err())
}

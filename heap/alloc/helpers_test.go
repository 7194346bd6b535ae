package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liuzc1999/malloc-lab/heap"
	"github.com/liuzc1999/malloc-lab/heap/verify"
)

// newTestAllocator returns an allocator over a 4 MiB memory region.
func newTestAllocator(t testing.TB, cfg *Config) (*SegAllocator, *heap.Region) {
	t.Helper()
	r := heap.NewMemory(4 << 20)
	a, err := New(r, nil, cfg)
	require.NoError(t, err)
	return a, r
}

// recordingTracker collects dirty ranges for assertions.
type recordingTracker struct {
	ranges [][2]int
}

func (rt *recordingTracker) Add(off, length int) {
	rt.ranges = append(rt.ranges, [2]int{off, length})
}

func (rt *recordingTracker) covers(off, length int) bool {
	for _, r := range rt.ranges {
		if off >= r[0] && off+length <= r[0]+r[1] {
			return true
		}
	}
	return false
}

// fill writes a recognizable pattern into p's payload.
func fill(t testing.TB, a Allocator, p Ptr, seed byte) {
	t.Helper()
	data := a.Payload(p)
	require.NotNil(t, data, "payload of 0x%X", p)
	for i := range data {
		data[i] = seed + byte(i)
	}
}

// requirePattern checks the first n bytes written by fill.
func requirePattern(t testing.TB, a Allocator, p Ptr, seed byte, n int) {
	t.Helper()
	data := a.Payload(p)
	require.GreaterOrEqual(t, len(data), n)
	for i := range n {
		require.Equal(t, seed+byte(i), data[i], "byte %d of 0x%X", i, p)
	}
}

func blocks(t testing.TB, a *SegAllocator) []verify.Block {
	t.Helper()
	out, err := verify.Collect(a.Bytes())
	require.NoError(t, err)
	return out
}

func freeBlocks(t testing.TB, a *SegAllocator) []verify.Block {
	t.Helper()
	var out []verify.Block
	for _, b := range blocks(t, a) {
		if !b.Allocated {
			out = append(out, b)
		}
	}
	return out
}

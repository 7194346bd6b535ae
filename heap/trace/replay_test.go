package trace

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liuzc1999/malloc-lab/heap"
	"github.com/liuzc1999/malloc-lab/heap/alloc"
	"github.com/liuzc1999/malloc-lab/heap/verify"
	"github.com/liuzc1999/malloc-lab/internal/format"
	"github.com/liuzc1999/malloc-lab/internal/logger"
)

func newSeg(t testing.TB, cfg *alloc.Config) *alloc.SegAllocator {
	t.Helper()
	a, err := alloc.New(heap.NewMemory(16<<20), nil, cfg)
	require.NoError(t, err)
	return a
}

func mustParse(t *testing.T, src string) *Trace {
	t.Helper()
	tr, err := ParseBytes("inline", []byte(src))
	require.NoError(t, err)
	return tr
}

func requireReplayError(t *testing.T, err error, reason string) *ReplayError {
	t.Helper()
	require.Error(t, err)
	var re *ReplayError
	require.True(t, errors.As(err, &re), "got %T: %v", err, err)
	require.Contains(t, re.Reason, reason)
	return re
}

func TestReplay_Testdata(t *testing.T) {
	files, err := filepath.Glob("testdata/traces/*.rep")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		tr, err := Load(path)
		require.NoError(t, err)
		for _, cfg := range alloc.AllConfigs() {
			t.Run(tr.Name+"/"+cfg.Name, func(t *testing.T) {
				a := newSeg(t, &cfg)
				res, err := Replay(context.Background(), tr, a, Options{Check: true})
				require.NoError(t, err)
				require.Equal(t, len(tr.Ops), res.Ops)
				require.Equal(t, tr.Name, res.Name)
				require.Positive(t, res.PeakPayload)
				require.Greater(t, res.Utilization, 0.0)
				require.LessOrEqual(t, res.Utilization, 1.0)

				// Every trace is balanced.
				require.Zero(t, a.Usage().AllocatedBlocks)
			})
		}
	}
}

func TestReplay_Bump(t *testing.T) {
	tr, err := Load("testdata/traces/realloc.rep")
	require.NoError(t, err)
	ba, err := alloc.NewBump(heap.NewMemory(1<<20), nil)
	require.NoError(t, err)

	res, err := Replay(context.Background(), tr, ba, Options{Check: true})
	require.NoError(t, err)
	require.Equal(t, len(tr.Ops), res.Ops)
}

func TestReplay_RandomTraces(t *testing.T) {
	for seed := range uint64(5) {
		tr := Random("rand", seed, GenOptions{Ops: 2000, MaxLive: 200, Realloc: 0.15})
		a := newSeg(t, nil)
		_, err := Replay(context.Background(), tr, a, Options{Check: seed%2 == 0})
		require.NoError(t, err, "seed %d", seed)
		require.NoError(t, a.Check())
	}
}

func TestReplay_Utilization(t *testing.T) {
	tr := mustParse(t, "a 0 1000\nf 0\n")
	res, err := Replay(context.Background(), tr, newSeg(t, nil), Options{})
	require.NoError(t, err)
	require.Equal(t, int64(1000), res.PeakPayload)
	require.Equal(t, 1072, res.HeapSize)
	require.InDelta(t, 1000.0/1072.0, res.Utilization, 1e-9)
}

func TestReplay_SkipPatterns(t *testing.T) {
	tr, err := Load("testdata/traces/binary.rep")
	require.NoError(t, err)
	res, err := Replay(context.Background(), tr, newSeg(t, nil), Options{SkipPatterns: true})
	require.NoError(t, err)
	require.Equal(t, len(tr.Ops), res.Ops)
}

func TestReplay_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Replay(ctx, mustParse(t, "a 0 8\n"), newSeg(t, nil), Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, res.Ops)
}

func TestReplay_AllocOnLiveID(t *testing.T) {
	_, err := Replay(context.Background(), mustParse(t, "a 0 8\na 0 8\n"), newSeg(t, nil), Options{})
	re := requireReplayError(t, err, "already live")
	require.Equal(t, 1, re.Index)
	require.Equal(t, 2, re.Op.Line)
}

func TestReplay_FreeUnknownIDIsNoop(t *testing.T) {
	_, err := Replay(context.Background(), mustParse(t, "f 3\nr 4 16\nf 4\n"), newSeg(t, nil), Options{Check: true})
	require.NoError(t, err)
}

func TestReplay_ZeroSizes(t *testing.T) {
	tr := mustParse(t, "a 0 0\nr 0 24\nr 0 0\nf 0\n")
	_, err := Replay(context.Background(), tr, newSeg(t, nil), Options{Check: true})
	require.NoError(t, err)
}

func TestReplay_NoSpace(t *testing.T) {
	a, err := alloc.New(heap.NewMemory(4096), nil, nil)
	require.NoError(t, err)
	_, err = Replay(context.Background(), mustParse(t, "a 0 100\na 1 8000\n"), a, Options{})
	re := requireReplayError(t, err, "alloc failed")
	require.ErrorIs(t, re, alloc.ErrNoSpace)
	require.Equal(t, 1, re.Index)
}

// sameBlock hands out one block for every request.
type sameBlock struct {
	alloc.Allocator
	p alloc.Ptr
}

func (s *sameBlock) Alloc(n int) (alloc.Ptr, error) {
	if s.p == alloc.Nil {
		p, err := s.Allocator.Alloc(4096)
		if err != nil {
			return alloc.Nil, err
		}
		s.p = p
	}
	return s.p, nil
}

// shifted returns misaligned payloads.
type shifted struct{ alloc.Allocator }

func (s shifted) Alloc(n int) (alloc.Ptr, error) {
	p, err := s.Allocator.Alloc(n)
	return p + 4, err
}

// forgetful moves on every realloc without copying.
type forgetful struct{ alloc.Allocator }

func (f forgetful) Realloc(p alloc.Ptr, n int) (alloc.Ptr, error) {
	if p == alloc.Nil {
		return f.Alloc(n)
	}
	np, err := f.Alloc(n)
	if err != nil {
		return alloc.Nil, err
	}
	clear(f.Payload(np))
	return np, f.Free(p)
}

// failingCheck reports corruption after every op.
type failingCheck struct{ alloc.Allocator }

func (failingCheck) Check() error { return errors.New("heap is corrupt") }

func TestReplay_DetectsOverlap(t *testing.T) {
	a := &sameBlock{Allocator: newSeg(t, nil)}
	_, err := Replay(context.Background(), mustParse(t, "a 0 100\na 1 100\n"), a, Options{})
	requireReplayError(t, err, "overlaps id 0")
}

func TestReplay_DetectsMisalignment(t *testing.T) {
	_, err := Replay(context.Background(), mustParse(t, "a 0 100\n"), shifted{newSeg(t, nil)}, Options{})
	requireReplayError(t, err, "not 8-byte aligned")
}

func TestReplay_DetectsLostContent(t *testing.T) {
	tr := mustParse(t, "a 0 100\nr 0 300\n")
	_, err := Replay(context.Background(), tr, forgetful{newSeg(t, nil)}, Options{})
	requireReplayError(t, err, "realloc lost content")

	// Without patterns the same allocator passes.
	_, err = Replay(context.Background(), tr, forgetful{newSeg(t, nil)}, Options{SkipPatterns: true})
	require.NoError(t, err)
}

func TestReplay_CheckFailure(t *testing.T) {
	_, err := Replay(context.Background(), mustParse(t, "a 0 8\n"), failingCheck{newSeg(t, nil)}, Options{Check: true})
	re := requireReplayError(t, err, "heap check failed")
	require.EqualError(t, re.Err, "heap is corrupt")
	require.Contains(t, re.Error(), "op 0 (line 1, a 0 8)")

	_, err = Replay(context.Background(), mustParse(t, "a 0 8\n"), failingCheck{newSeg(t, nil)}, Options{})
	require.NoError(t, err)
}

// tornFooter overwrites the footer of the first block once the nth Alloc
// has returned.
type tornFooter struct {
	*alloc.SegAllocator
	n, calls int
	first    alloc.Ptr
}

func (c *tornFooter) Alloc(size int) (alloc.Ptr, error) {
	p, err := c.SegAllocator.Alloc(size)
	c.calls++
	if c.calls == 1 {
		c.first = p
	}
	if err == nil && c.calls == c.n {
		bsize := uint32(c.UsableSize(c.first) + format.DoubleSize)
		format.PutU32(c.Bytes(), format.FooterOffset(c.first, bsize), 0xDEAD0)
	}
	return p, err
}

func TestReplay_CheckReportsTraceLine(t *testing.T) {
	var out bytes.Buffer
	cfg := alloc.DefaultConfig
	cfg.Logger = logger.New(&out, slog.LevelDebug)
	a := &tornFooter{SegAllocator: newSeg(t, &cfg), n: 2}

	tr := mustParse(t, "a 0 8\n# comment\na 1 8\nf 0\nf 1\n")
	_, err := Replay(context.Background(), tr, a, Options{Check: true})
	re := requireReplayError(t, err, "heap check failed")
	require.Equal(t, 1, re.Index)
	require.Equal(t, 3, re.Op.Line)

	var ve *verify.ValidationError
	require.True(t, errors.As(err, &ve), "got %T: %v", err, err)
	require.Contains(t, err.Error(), "checkheap (line 3)")
	require.Contains(t, out.String(), "heap check failed")
	require.Contains(t, out.String(), "line=3")
}

func TestPlayer_Step(t *testing.T) {
	a := newSeg(t, nil)
	pl := NewPlayer(mustParse(t, "a 0 100\na 1 20\nf 0\n"), a, Options{})
	require.False(t, pl.Done())

	op, err := pl.Step()
	require.NoError(t, err)
	require.Equal(t, Alloc, op.Kind)
	p, n, ok := pl.Lookup(0)
	require.True(t, ok)
	require.Equal(t, 100, n)
	require.Equal(t, pattern(0, 0), a.Payload(p)[0])

	_, err = pl.Step()
	require.NoError(t, err)
	require.Equal(t, 2, pl.LiveBlocks())
	require.Equal(t, int64(120), pl.LivePayload())

	// Scribbling over a live block is caught when it is freed.
	a.Payload(p)[50] ^= 0xFF
	_, err = pl.Step()
	requireReplayError(t, err, "payload of id 0 was overwritten")
	require.True(t, pl.Done())

	_, err = pl.Step()
	require.Error(t, err)
}

func TestPlayer_Result(t *testing.T) {
	pl := NewPlayer(mustParse(t, "a 0 64\na 1 64\nf 0\na 2 32\n"), newSeg(t, nil), Options{})
	for !pl.Done() {
		_, err := pl.Step()
		require.NoError(t, err)
	}
	res := pl.Result()
	require.Equal(t, 4, res.Ops)
	require.Equal(t, int64(128), res.PeakPayload)
	require.Equal(t, int64(96), pl.LivePayload())
}

func TestLoadAndReplayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tmp.rep")
	require.NoError(t, os.WriteFile(path, []byte("0\n1\n2\n1\na 0 5000\nf 0\n"), 0o644))
	tr, err := Load(path)
	require.NoError(t, err)
	res, err := Replay(context.Background(), tr, newSeg(t, nil), Options{Check: true})
	require.NoError(t, err)
	require.Equal(t, 2, res.Ops)
}

func BenchmarkReplay(b *testing.B) {
	tr := Random("bench", 1, GenOptions{Ops: 10000, MaxLive: 500, Realloc: 0.1})
	for _, cfg := range alloc.AllConfigs() {
		b.Run(cfg.Name, func(b *testing.B) {
			b.ReportAllocs()
			var res Result
			for range b.N {
				a := newSeg(b, &cfg)
				var err error
				res, err = Replay(context.Background(), tr, a, Options{SkipPatterns: true})
				if err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(100*res.Utilization, "util%")
		})
	}
}

package trace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/btree"

	"github.com/liuzc1999/malloc-lab/heap/alloc"
	"github.com/liuzc1999/malloc-lab/internal/buf"
	"github.com/liuzc1999/malloc-lab/internal/format"
)

// Options control validation during replay.
type Options struct {
	// Check runs the allocator's full consistency check after every op.
	// Allocators with a line-tagged boundary-tag check have it run first,
	// with the op's trace line.
	Check bool

	// SkipPatterns disables payload filling and content verification, for
	// throughput runs.
	SkipPatterns bool
}

// Result summarizes a completed replay.
type Result struct {
	Name        string        `json:"name"`
	Ops         int           `json:"ops"`
	PeakPayload int64         `json:"peak_payload"` // Largest sum of live requested bytes
	HeapSize    int           `json:"heap_size"`    // Largest heap extent seen
	Utilization float64       `json:"utilization"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Throughput  float64       `json:"ops_per_sec"`
}

// lineChecker is implemented by allocators that report the trace line of a
// failed boundary-tag walk, such as *alloc.SegAllocator.
type lineChecker interface {
	CheckHeap(line int) error
}

// ReplayError identifies the operation at which validation failed.
type ReplayError struct {
	Index  int
	Op     Op
	Reason string
	Err    error
}

func (e *ReplayError) Error() string {
	msg := fmt.Sprintf("op %d (line %d, %s): %s", e.Index, e.Op.Line, e.Op, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReplayError) Unwrap() error { return e.Err }

// span is a live block in the address index.
type span struct {
	start, end int
	id         int
}

type block struct {
	p alloc.Ptr
	n int
}

// Player executes a trace one operation at a time.
type Player struct {
	t    *Trace
	a    alloc.Allocator
	opts Options

	pos     int
	live    map[int]block
	index   *btree.BTreeG[span]
	payload int64
	peak    int64
	heap    int
	elapsed time.Duration
}

// NewPlayer prepares t for replay against a.
func NewPlayer(t *Trace, a alloc.Allocator, opts Options) *Player {
	return &Player{
		t:     t,
		a:     a,
		opts:  opts,
		live:  make(map[int]block),
		index: btree.NewG(32, func(x, y span) bool { return x.start < y.start }),
	}
}

// Done reports whether every op has run.
func (pl *Player) Done() bool { return pl.pos >= len(pl.t.Ops) }

// Pos returns the index of the next op.
func (pl *Player) Pos() int { return pl.pos }

// Trace returns the trace being played.
func (pl *Player) Trace() *Trace { return pl.t }

// LiveBlocks returns the number of ids currently holding a block.
func (pl *Player) LiveBlocks() int { return pl.index.Len() }

// LivePayload returns the sum of requested bytes of live ids.
func (pl *Player) LivePayload() int64 { return pl.payload }

// Lookup returns the block held by id.
func (pl *Player) Lookup(id int) (alloc.Ptr, int, bool) {
	b, ok := pl.live[id]
	return b.p, b.n, ok
}

// Step runs the next op and returns it. Calling Step after Done is an error.
func (pl *Player) Step() (Op, error) {
	if pl.Done() {
		return Op{}, errors.New("trace: replay finished")
	}
	i := pl.pos
	op := pl.t.Ops[i]
	pl.pos++

	start := time.Now()
	var err error
	switch op.Kind {
	case Alloc:
		err = pl.alloc(op)
	case Realloc:
		err = pl.realloc(op)
	case Free:
		err = pl.free(op)
	}
	pl.elapsed += time.Since(start)
	if err != nil {
		return op, pl.fail(i, op, err)
	}

	if pl.opts.Check {
		if lc, ok := pl.a.(lineChecker); ok {
			if cerr := lc.CheckHeap(op.Line); cerr != nil {
				return op, &ReplayError{Index: i, Op: op, Reason: "heap check failed", Err: cerr}
			}
		}
		if cerr := pl.a.Check(); cerr != nil {
			return op, &ReplayError{Index: i, Op: op, Reason: "heap check failed", Err: cerr}
		}
	}
	_, hi := pl.a.Bounds()
	pl.heap = max(pl.heap, hi)
	return op, nil
}

// Result summarizes the ops run so far.
func (pl *Player) Result() Result {
	r := Result{
		Name:        pl.t.Name,
		Ops:         pl.pos,
		PeakPayload: pl.peak,
		HeapSize:    pl.heap,
		Elapsed:     pl.elapsed,
	}
	if r.HeapSize > 0 {
		r.Utilization = float64(r.PeakPayload) / float64(r.HeapSize)
	}
	if secs := r.Elapsed.Seconds(); secs > 0 {
		r.Throughput = float64(r.Ops) / secs
	}
	return r
}

// Replay runs every op of t against a and returns the summary, or the first
// validation failure as a *ReplayError.
func Replay(ctx context.Context, t *Trace, a alloc.Allocator, opts Options) (Result, error) {
	pl := NewPlayer(t, a, opts)
	for !pl.Done() {
		if pl.pos&0xff == 0 {
			if err := ctx.Err(); err != nil {
				return pl.Result(), err
			}
		}
		if _, err := pl.Step(); err != nil {
			return pl.Result(), err
		}
	}
	return pl.Result(), nil
}

// reason is a validation failure without an underlying error.
type reason string

func (r reason) Error() string { return string(r) }

func (pl *Player) fail(i int, op Op, err error) error {
	var r reason
	if errors.As(err, &r) {
		return &ReplayError{Index: i, Op: op, Reason: string(r)}
	}
	return &ReplayError{Index: i, Op: op, Reason: op.Kind.String() + " failed", Err: err}
}

func (pl *Player) alloc(op Op) error {
	if _, ok := pl.live[op.ID]; ok {
		return reason(fmt.Sprintf("id %d is already live", op.ID))
	}
	p, err := pl.a.Alloc(op.Size)
	if err != nil {
		return err
	}
	return pl.adopt(op.ID, p, op.Size)
}

func (pl *Player) realloc(op Op) error {
	old, ok := pl.live[op.ID]
	if ok {
		if err := pl.verify(op.ID, old); err != nil {
			return err
		}
		pl.drop(op.ID, old)
	}

	p, err := pl.a.Realloc(old.p, op.Size)
	if err != nil {
		return err
	}
	if op.Size == 0 {
		return nil
	}
	if ok && !pl.opts.SkipPatterns {
		keep := min(old.n, op.Size)
		if err := pl.verifyPrefix(op.ID, p, keep); err != nil {
			return reason(fmt.Sprintf("realloc lost content: %v", err))
		}
	}
	return pl.adopt(op.ID, p, op.Size)
}

func (pl *Player) free(op Op) error {
	old, ok := pl.live[op.ID]
	if !ok {
		return pl.a.Free(alloc.Nil)
	}
	if err := pl.verify(op.ID, old); err != nil {
		return err
	}
	pl.drop(op.ID, old)
	return pl.a.Free(old.p)
}

// adopt validates a freshly returned block, indexes it and writes its pattern.
func (pl *Player) adopt(id int, p alloc.Ptr, n int) error {
	if n == 0 {
		if p != alloc.Nil {
			return reason(fmt.Sprintf("zero-byte request returned 0x%X", p))
		}
		pl.live[id] = block{}
		return nil
	}
	if p == alloc.Nil {
		return reason("allocator returned nil")
	}
	if !format.IsAligned(int(p)) {
		return reason(fmt.Sprintf("payload 0x%X is not %d-byte aligned", p, format.Alignment))
	}
	lo, hi := pl.a.Bounds()
	s := span{start: int(p), end: int(p) + n, id: id}
	if !buf.Within(lo, hi, s.start, n) {
		return reason(fmt.Sprintf("payload [0x%X, 0x%X) outside heap [0x%X, 0x%X)", s.start, s.end, lo, hi))
	}
	if other, ok := pl.overlap(s); ok {
		return reason(fmt.Sprintf("payload [0x%X, 0x%X) overlaps id %d at [0x%X, 0x%X)",
			s.start, s.end, other.id, other.start, other.end))
	}
	data := pl.a.Payload(p)
	if len(data) < n {
		return reason(fmt.Sprintf("payload 0x%X has %d usable bytes, want %d", p, len(data), n))
	}

	pl.index.ReplaceOrInsert(s)
	pl.live[id] = block{p: p, n: n}
	pl.payload += int64(n)
	pl.peak = max(pl.peak, pl.payload)

	if !pl.opts.SkipPatterns {
		for i := range n {
			data[i] = pattern(id, i)
		}
	}
	return nil
}

func (pl *Player) drop(id int, b block) {
	delete(pl.live, id)
	if b.n == 0 {
		return
	}
	pl.index.Delete(span{start: int(b.p)})
	pl.payload -= int64(b.n)
}

// overlap returns a live span intersecting s.
func (pl *Player) overlap(s span) (span, bool) {
	var hit span
	found := false
	pl.index.DescendLessOrEqual(s, func(prev span) bool {
		if buf.Overlaps(prev.start, prev.end-prev.start, s.start, s.end-s.start) {
			hit, found = prev, true
		}
		return false
	})
	if found {
		return hit, true
	}
	pl.index.AscendGreaterOrEqual(s, func(next span) bool {
		if buf.Overlaps(next.start, next.end-next.start, s.start, s.end-s.start) {
			hit, found = next, true
		}
		return false
	})
	return hit, found
}

func (pl *Player) verify(id int, b block) error {
	if pl.opts.SkipPatterns || b.n == 0 {
		return nil
	}
	if err := pl.verifyPrefix(id, b.p, b.n); err != nil {
		return reason(fmt.Sprintf("payload of id %d was overwritten: %v", id, err))
	}
	return nil
}

func (pl *Player) verifyPrefix(id int, p alloc.Ptr, n int) error {
	data := pl.a.Payload(p)
	if len(data) < n {
		return fmt.Errorf("only %d of %d bytes reachable", len(data), n)
	}
	for i := range n {
		if data[i] != pattern(id, i) {
			return fmt.Errorf("byte %d is 0x%02X, want 0x%02X", i, data[i], pattern(id, i))
		}
	}
	return nil
}

// pattern is the byte written at offset i of id's payload.
func pattern(id, i int) byte {
	return byte(id*31 + i*7 + 1)
}

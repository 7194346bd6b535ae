package alloc

import (
	"fmt"

	"github.com/liuzc1999/malloc-lab/heap/verify"
	"github.com/liuzc1999/malloc-lab/internal/buf"
	"github.com/liuzc1999/malloc-lab/internal/format"
)

// BumpAllocator is an append-only baseline: every allocation extends the
// heap, Free never reuses space, and Realloc copies unless the block already
// fits. It writes the same boundary tags as SegAllocator so the same checks
// and tools apply, and serves as the utilization floor in trace comparisons.
type BumpAllocator struct {
	p  Provider
	dt DirtyTracker

	stats Stats
}

var _ Allocator = (*BumpAllocator)(nil)

// NewBump lays out the heap prefix in an empty provider.
func NewBump(p Provider, dt DirtyTracker) (*BumpAllocator, error) {
	if len(p.Bytes()) != 0 {
		return nil, ErrProviderInUse
	}
	if _, err := p.Grow(format.InitialHeapSize); err != nil {
		return nil, fmt.Errorf("initialize: %w: %w", ErrNoSpace, err)
	}
	writeLayout(p.Bytes())
	ba := &BumpAllocator{p: p, dt: dt}
	ba.markDirty(0, format.InitialHeapSize)
	return ba, nil
}

func (ba *BumpAllocator) markDirty(off, length int) {
	if ba.dt != nil {
		ba.dt.Add(off, length)
	}
}

// Alloc appends a new block at the break.
func (ba *BumpAllocator) Alloc(size int) (Ptr, error) {
	ba.stats.AllocCalls++
	if size < 0 {
		return Nil, ErrBadSize
	}
	if size == 0 {
		return Nil, nil
	}
	asize, err := adjust(size)
	if err != nil {
		return Nil, err
	}
	if int(asize) > format.MaxHeapSize-len(ba.p.Bytes()) {
		return Nil, ErrNoSpace
	}

	old, err := ba.p.Grow(int(asize))
	if err != nil {
		return Nil, fmt.Errorf("%w: %w", ErrNoSpace, err)
	}
	b := ba.p.Bytes()
	bp := Ptr(old)
	format.PutTag(b, format.HeaderOffset(bp), asize, true)
	format.PutTag(b, format.FooterOffset(bp, asize), asize, true)
	format.PutTag(b, old+int(asize)-format.WordSize, 0, true)
	ba.markDirty(format.HeaderOffset(bp), int(asize)+format.WordSize)

	ba.stats.AllocSlowPath++
	ba.stats.ExtendCalls++
	ba.stats.ExtendBytes += int64(asize)
	ba.stats.BytesAllocated += int64(asize)
	return bp, nil
}

// Free validates p and otherwise does nothing.
func (ba *BumpAllocator) Free(p Ptr) error {
	ba.stats.FreeCalls++
	if p == Nil {
		return nil
	}
	return checkLive(ba.p.Bytes(), p)
}

// Realloc keeps p when it is already large enough, otherwise copies.
func (ba *BumpAllocator) Realloc(p Ptr, size int) (Ptr, error) {
	ba.stats.ReallocCalls++
	if p == Nil {
		return ba.Alloc(size)
	}
	if size < 0 {
		return Nil, ErrBadSize
	}
	if err := checkLive(ba.p.Bytes(), p); err != nil {
		return Nil, err
	}
	if size == 0 {
		return Nil, nil
	}
	if size <= len(payload(ba.p.Bytes(), p)) {
		ba.stats.ReallocInPlace++
		return p, nil
	}

	np, err := ba.Alloc(size)
	if err != nil {
		return Nil, err
	}
	b := ba.p.Bytes()
	n := copy(payload(b, np), payload(b, p))
	ba.markDirty(int(np), n)
	ba.stats.ReallocMove++
	return np, nil
}

// Calloc appends a zeroed block.
func (ba *BumpAllocator) Calloc(count, size int) (Ptr, error) {
	ba.stats.CallocCalls++
	if count < 0 || size < 0 {
		return Nil, ErrBadSize
	}
	n, ok := buf.Mul(count, size)
	if !ok {
		return Nil, fmt.Errorf("%w: %d x %d", ErrOverflow, count, size)
	}
	p, err := ba.Alloc(n)
	if err != nil || p == Nil {
		return p, err
	}
	data := payload(ba.p.Bytes(), p)
	clear(data)
	ba.markDirty(int(p), len(data))
	return p, nil
}

// Payload returns the usable bytes of a live block, or nil.
func (ba *BumpAllocator) Payload(p Ptr) []byte {
	b := ba.p.Bytes()
	if checkLive(b, p) != nil {
		return nil
	}
	return payload(b, p)
}

// Bounds returns the [lo, hi) byte range currently covered by the heap.
func (ba *BumpAllocator) Bounds() (lo, hi int) {
	return 0, len(ba.p.Bytes())
}

// Check validates layout and boundary tags. Bump heaps never hold free blocks.
func (ba *BumpAllocator) Check() error {
	b := ba.p.Bytes()
	if err := verify.Layout(b); err != nil {
		return err
	}
	return verify.BoundaryTags(b)
}

// Stats returns a copy of the operation counters.
func (ba *BumpAllocator) Stats() Stats {
	return ba.stats
}

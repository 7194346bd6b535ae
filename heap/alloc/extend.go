package alloc

import (
	"fmt"

	"github.com/liuzc1999/malloc-lab/internal/format"
)

// extend grows the heap by at least n bytes (rounded up to the alignment).
// The old epilogue word becomes the header of a new free block, a new
// epilogue is written at the break, and the block is coalesced with a free
// predecessor. On failure nothing in the heap has changed.
func (a *SegAllocator) extend(n int) (Ptr, error) {
	size := format.Align8(n)
	prevLen := len(a.buf())
	if size > format.MaxHeapSize-prevLen {
		return Nil, fmt.Errorf("%w: heap would exceed %d bytes", ErrNoSpace, format.MaxHeapSize)
	}

	old, err := a.p.Grow(size)
	if err != nil {
		a.log.Debug("heap extension refused", "bytes", size, "heap", prevLen, "err", err)
		return Nil, fmt.Errorf("%w: extend by %d: %w", ErrNoSpace, size, err)
	}
	if old != prevLen {
		return Nil, fmt.Errorf("%w: provider break %d, expected %d", ErrCorrupt, old, prevLen)
	}

	bp := Ptr(old)
	a.setTags(bp, uint32(size), false)
	a.setEpilogue(old + size - format.WordSize)

	a.stats.ExtendCalls++
	a.stats.ExtendBytes += int64(size)
	if a.onGrow != nil {
		a.onGrow(size)
	}
	a.log.Debug("heap extended", "bytes", size, "heap", old+size)

	a.insert(bp)
	return a.coalesce(bp), nil
}

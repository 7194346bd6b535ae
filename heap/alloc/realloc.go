package alloc

import "github.com/liuzc1999/malloc-lab/internal/format"

// Realloc resizes the block at p to hold at least size bytes and returns the
// (possibly moved) payload. A Nil p behaves like Alloc and a zero size like
// Free. The block is resized in place when possible:
//
//   - shrinking, or growing within the current block, splits off any
//     remainder of at least a minimum block
//   - a free physical successor large enough to cover the growth is absorbed
//   - a block that ends at the epilogue extends the heap and absorbs the
//     new space
//
// Otherwise the content is moved to a fresh block and p is freed. When the
// heap cannot grow, (Nil, ErrNoSpace) is returned and p is left intact.
func (a *SegAllocator) Realloc(p Ptr, size int) (Ptr, error) {
	a.stats.ReallocCalls++
	if p == Nil {
		return a.Alloc(size)
	}
	if size < 0 {
		return Nil, ErrBadSize
	}
	if err := a.checkLive(p); err != nil {
		return Nil, err
	}
	if size == 0 {
		a.stats.FreeCalls++
		a.freeBlock(p)
		return Nil, nil
	}

	asize, err := adjust(size)
	if err != nil {
		return Nil, err
	}

	oldSize := a.size(p)
	if asize <= oldSize {
		a.shrink(p, oldSize, asize)
		return p, nil
	}

	next := a.next(p)
	nextSize := a.size(next)
	if !a.allocated(next) && oldSize+nextSize >= asize {
		a.remove(next)
		a.setTags(p, oldSize+nextSize, true)
		a.stats.ReallocAbsorb++
		a.stats.BytesAllocated += int64(nextSize)
		return p, nil
	}

	if nextSize == 0 {
		return a.growTail(p, oldSize, asize)
	}
	return a.move(p, oldSize, asize)
}

// shrink keeps p in place and splits off the tail when it can stand alone as
// a block. The tail is coalesced with a free successor.
func (a *SegAllocator) shrink(p Ptr, oldSize, asize uint32) {
	a.stats.ReallocInPlace++
	rest := oldSize - asize
	if rest < format.MinBlockSize {
		return
	}

	a.setTags(p, asize, true)
	tail := p + asize
	a.setTags(tail, rest, false)
	a.insert(tail)
	a.coalesce(tail)
	a.stats.Splits++
	a.stats.BytesFreed += int64(rest)
}

// growTail handles the block that ends at the epilogue: the heap is extended
// by the deficit (at least one chunk) and the new free block is absorbed.
// Excess of a minimum block or more goes back to the free lists.
func (a *SegAllocator) growTail(p Ptr, oldSize, asize uint32) (Ptr, error) {
	deficit := int(asize - oldSize)
	if _, err := a.extend(max(deficit, a.cfg.ChunkSize)); err != nil {
		return Nil, err
	}

	// p is allocated, so the new block did not merge backwards and sits
	// right after p.
	grown := a.next(p)
	total := oldSize + a.size(grown)
	a.remove(grown)

	rest := total - asize
	if rest < format.MinBlockSize {
		a.setTags(p, total, true)
	} else {
		a.setTags(p, asize, true)
		excess := p + asize
		a.setTags(excess, rest, false)
		a.insert(excess)
	}
	a.stats.ReallocExtend++
	a.stats.BytesAllocated += int64(a.size(p) - oldSize)
	return p, nil
}

// move allocates a new block, copies the old payload and frees p.
func (a *SegAllocator) move(p Ptr, oldSize, asize uint32) (Ptr, error) {
	np, err := a.allocBlock(asize)
	if err != nil {
		return Nil, err
	}

	b := a.buf()
	n := oldSize - format.DoubleSize
	copy(b[np:np+n], b[p:p+n])
	a.markDirty(int(np), int(n))

	a.freeBlock(p)
	a.stats.ReallocMove++
	return np, nil
}

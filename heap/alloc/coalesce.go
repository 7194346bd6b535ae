package alloc

// coalesce merges the free, listed block bp with any free physical
// neighbours and reinserts the result. It returns the payload offset of the
// merged block, which moves to the predecessor when that one absorbs bp.
func (a *SegAllocator) coalesce(bp Ptr) Ptr {
	prevAlloc := a.prevAllocated(bp)
	next := a.next(bp)
	nextAlloc := a.allocated(next)
	size := a.size(bp)

	switch {
	case prevAlloc && nextAlloc:
		return bp

	case prevAlloc && !nextAlloc:
		a.remove(bp)
		a.remove(next)
		size += a.size(next)
		a.setTags(bp, size, false)
		a.stats.CoalesceForward++

	case !prevAlloc && nextAlloc:
		prev := a.prev(bp)
		a.remove(bp)
		a.remove(prev)
		size += a.size(prev)
		bp = prev
		a.setTags(bp, size, false)
		a.stats.CoalesceBackward++

	default:
		prev := a.prev(bp)
		a.remove(bp)
		a.remove(prev)
		a.remove(next)
		size += a.size(prev) + a.size(next)
		bp = prev
		a.setTags(bp, size, false)
		a.stats.CoalesceForward++
		a.stats.CoalesceBackward++
	}

	a.insert(bp)
	return bp
}

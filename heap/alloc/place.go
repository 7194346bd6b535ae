package alloc

import "github.com/liuzc1999/malloc-lab/internal/format"

// place carves an allocation of asize bytes out of the free block bp and
// returns the allocated payload. A remainder too small to be a block stays
// with the allocation. Requests below the placement threshold are put at the
// low end of the block, larger ones at the high end, so large allocations
// cluster away from the churn of small ones.
func (a *SegAllocator) place(bp Ptr, asize uint32) Ptr {
	csize := a.size(bp)
	rest := csize - asize
	a.remove(bp)

	if rest < format.MinBlockSize {
		a.setTags(bp, csize, true)
		return bp
	}
	a.stats.Splits++

	if int(asize) < a.cfg.PlacementThreshold {
		a.setTags(bp, asize, true)
		free := bp + asize
		a.setTags(free, rest, false)
		a.insert(free)
		return bp
	}

	a.setTags(bp, rest, false)
	a.insert(bp)
	used := bp + rest
	a.setTags(used, asize, true)
	return used
}

package alloc

import "github.com/liuzc1999/malloc-lab/internal/format"

// Each bucket is a doubly linked list threaded through the payloads of free
// blocks, kept in ascending size order so the first fit found by locate is
// also the best fit within the bucket.

// locate walks bucket idx and returns the neighbours between which a block
// of size belongs: pred is the last block smaller than size, succ the first
// block at least as large. Either may be Nil.
func (a *SegAllocator) locate(idx int, size uint32) (pred, succ Ptr) {
	succ = a.heads[idx]
	for succ != Nil && a.size(succ) < size {
		pred = succ
		succ = a.succ(succ)
	}
	return pred, succ
}

// insert links the free block bp into its bucket in size order.
func (a *SegAllocator) insert(bp Ptr) {
	size := a.size(bp)
	idx := format.Bucket(size)
	pred, succ := a.locate(idx, size)

	a.setPred(bp, pred)
	a.setSucc(bp, succ)
	switch {
	case pred == Nil && succ == Nil: // empty bucket
		a.heads[idx] = bp
	case pred == Nil: // new head
		a.setPred(succ, bp)
		a.heads[idx] = bp
	case succ == Nil: // tail
		a.setSucc(pred, bp)
	default: // interior
		a.setSucc(pred, bp)
		a.setPred(succ, bp)
	}
}

// remove unlinks bp from its bucket. The bucket is derived from bp's current
// header, so callers must remove before rewriting the size.
func (a *SegAllocator) remove(bp Ptr) {
	idx := format.Bucket(a.size(bp))
	pred, succ := a.pred(bp), a.succ(bp)

	switch {
	case pred == Nil && succ == Nil: // only element
		a.heads[idx] = Nil
	case pred == Nil: // head
		a.setPred(succ, Nil)
		a.heads[idx] = succ
	case succ == Nil: // tail
		a.setSucc(pred, Nil)
	default: // interior
		a.setSucc(pred, succ)
		a.setPred(succ, pred)
	}
}

// find returns a free block of at least asize bytes: the smallest fit in the
// request's own bucket, otherwise the head of the first non-empty larger
// bucket. Every block in a larger bucket is big enough by construction.
func (a *SegAllocator) find(asize uint32) Ptr {
	idx := format.Bucket(asize)
	if _, bp := a.locate(idx, asize); bp != Nil {
		return bp
	}
	for idx++; idx < format.NumBuckets; idx++ {
		if a.heads[idx] != Nil {
			return a.heads[idx]
		}
	}
	return Nil
}

package alloc

import (
	"fmt"

	"github.com/liuzc1999/malloc-lab/heap/verify"
	"github.com/liuzc1999/malloc-lab/internal/format"
)

// CheckHeap walks the heap from the prologue to the epilogue comparing every
// header with its footer. The first mismatch is logged together with the
// caller-supplied line and returned; the heap is never repaired.
func (a *SegAllocator) CheckHeap(line int) error {
	if err := verify.BoundaryTags(a.buf()); err != nil {
		a.log.Error("heap check failed", "line", line, "err", err)
		return fmt.Errorf("checkheap (line %d): %w", line, err)
	}
	return nil
}

// Check validates every structural invariant of the heap and the free-list
// index: layout, boundary tags, coalescing, and that the buckets hold
// exactly the free blocks, each in its size class, in ascending size order
// with consistent back links.
func (a *SegAllocator) Check() error {
	b := a.buf()
	if err := verify.AllInvariants(b); err != nil {
		return err
	}

	free := make(map[Ptr]bool)
	var order []Ptr
	_ = verify.Walk(b, func(blk verify.Block) error {
		if !blk.Allocated {
			free[blk.Offset] = false
			order = append(order, blk.Offset)
		}
		return nil
	})

	for idx, head := range a.heads {
		prev := Nil
		var lastSize uint32
		for bp := head; bp != Nil; bp = a.succ(bp) {
			seen, ok := free[bp]
			if !ok {
				return freeListError(idx, bp, "listed block is not a free block on the heap")
			}
			if seen {
				return freeListError(idx, bp, "block listed twice (cycle or duplicate)")
			}
			free[bp] = true

			size := a.size(bp)
			if got := format.Bucket(size); got != idx {
				return freeListError(idx, bp, fmt.Sprintf("size %d belongs in bucket %d", size, got))
			}
			if size < lastSize {
				return freeListError(idx, bp, fmt.Sprintf("size %d after %d breaks ascending order", size, lastSize))
			}
			if p := a.pred(bp); p != prev {
				return freeListError(idx, bp, fmt.Sprintf("pred link 0x%X, expected 0x%X", p, prev))
			}
			prev, lastSize = bp, size
		}
	}

	for _, bp := range order {
		if !free[bp] {
			return &verify.ValidationError{
				Type:    "FreeList",
				Message: "free block missing from every bucket",
				Offset:  int(bp),
			}
		}
	}
	return nil
}

func freeListError(bucket int, bp Ptr, msg string) error {
	return &verify.ValidationError{
		Type:    "FreeList",
		Message: msg,
		Offset:  int(bp),
		Details: map[string]any{"bucket": bucket},
	}
}

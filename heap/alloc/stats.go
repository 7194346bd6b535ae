package alloc

import (
	"fmt"
	"io"

	"github.com/liuzc1999/malloc-lab/heap/verify"
	"github.com/liuzc1999/malloc-lab/internal/buf"
	"github.com/liuzc1999/malloc-lab/internal/format"
)

// Stats holds cumulative operation counters.
type Stats struct {
	AllocCalls    int // Total Alloc() calls, including those made by Calloc/Realloc
	AllocFastPath int // Allocations served from the free lists
	AllocSlowPath int // Allocations that required extending the heap
	FreeCalls     int
	CallocCalls   int
	ReallocCalls  int

	ReallocInPlace int // Shrinks and same-size requests
	ReallocAbsorb  int // Grown by absorbing the free successor
	ReallocExtend  int // Grown by extending the heap at the tail
	ReallocMove    int // Copied to a new block

	ExtendCalls int   // Successful provider Grow() calls
	ExtendBytes int64 // Total bytes added by extension

	BytesAllocated int64 // Block bytes handed out, including tags
	BytesFreed     int64 // Block bytes returned

	Splits           int
	CoalesceForward  int
	CoalesceBackward int
}

// BucketUsage summarizes one free-list bucket.
type BucketUsage struct {
	Blocks int
	Bytes  int64
}

// Usage is a point-in-time scan of the heap.
type Usage struct {
	HeapSize        int
	AllocatedBlocks int
	AllocatedBytes  int64 // Block bytes, including tags
	PayloadBytes    int64 // Usable bytes of allocated blocks
	FreeBlocks      int
	FreeBytes       int64
	LargestFree     int
	Buckets         [format.NumBuckets]BucketUsage

	// Incomplete is set when the scan stopped early: the block walk hit a
	// malformed tag, or a bucket list was longer than the heap can hold.
	// The counts then cover only what was reached; Check reports the cause.
	Incomplete bool
}

// Fragmentation returns 1 - largest/total free bytes: 0 when all free space
// is one block, approaching 1 as it scatters.
func (u Usage) Fragmentation() float64 {
	if u.FreeBytes == 0 {
		return 0
	}
	return 1 - float64(u.LargestFree)/float64(u.FreeBytes)
}

// Stats returns a copy of the operation counters.
func (a *SegAllocator) Stats() Stats {
	return a.stats
}

// ResetStats zeroes the operation counters.
func (a *SegAllocator) ResetStats() {
	a.stats = Stats{}
}

// Usage walks the heap and the buckets. On a corrupt heap it returns the
// partial counts with Incomplete set instead of failing.
func (a *SegAllocator) Usage() Usage {
	b := a.buf()
	u := Usage{HeapSize: len(b)}
	err := verify.Walk(b, func(blk verify.Block) error {
		if blk.Allocated {
			u.AllocatedBlocks++
			u.AllocatedBytes += int64(blk.Size)
			u.PayloadBytes += int64(blk.Size) - format.DoubleSize
			return nil
		}
		u.FreeBlocks++
		u.FreeBytes += int64(blk.Size)
		u.LargestFree = max(u.LargestFree, int(blk.Size))
		return nil
	})
	u.Incomplete = err != nil

	limit := len(b) / format.MinBlockSize
	for idx, head := range a.heads {
		n := 0
		for bp := head; bp != Nil; bp = a.succ(bp) {
			// header plus both link words must be readable
			n++
			if n > limit || !buf.Within(0, len(b), int(bp)-format.WordSize, format.WordSize+format.DoubleSize) {
				u.Incomplete = true
				break
			}
			u.Buckets[idx].Blocks++
			u.Buckets[idx].Bytes += int64(a.size(bp))
		}
	}
	return u
}

// Buckets returns the payload offsets in every bucket, in list order. A list
// that leaves the heap or runs longer than the heap can hold is cut short.
func (a *SegAllocator) Buckets() [format.NumBuckets][]Ptr {
	var out [format.NumBuckets][]Ptr
	b := a.buf()
	limit := len(b) / format.MinBlockSize
	for idx, head := range a.heads {
		for bp := head; bp != Nil; bp = a.succ(bp) {
			if len(out[idx]) >= limit || !buf.Within(0, len(b), int(bp)-format.WordSize, format.WordSize+format.DoubleSize) {
				break
			}
			out[idx] = append(out[idx], bp)
		}
	}
	return out
}

// BucketRange returns the block sizes [lo, hi] held by bucket idx. The last
// bucket is open-ended and reports hi = -1.
func BucketRange(idx int) (lo, hi int) {
	if idx == format.NumBuckets-1 {
		return 1 << idx, -1
	}
	return 1 << idx, 1<<(idx+1) - 1
}

// PrintStats writes the counters and a usage summary to w.
func (a *SegAllocator) PrintStats(w io.Writer) {
	s := a.stats
	u := a.Usage()

	fmt.Fprintf(w, "=== ALLOCATOR STATISTICS (%s) ===\n", a.cfg.Name)
	fmt.Fprintf(w, "Heap size:          %d bytes (%d extensions, %d bytes added)\n",
		u.HeapSize, s.ExtendCalls, s.ExtendBytes)
	fmt.Fprintf(w, "Alloc calls:        %d (fast: %d, slow: %d)\n",
		s.AllocCalls, s.AllocFastPath, s.AllocSlowPath)
	fmt.Fprintf(w, "Free calls:         %d\n", s.FreeCalls)
	fmt.Fprintf(w, "Calloc calls:       %d\n", s.CallocCalls)
	fmt.Fprintf(w, "Realloc calls:      %d (in place: %d, absorb: %d, extend: %d, move: %d)\n",
		s.ReallocCalls, s.ReallocInPlace, s.ReallocAbsorb, s.ReallocExtend, s.ReallocMove)
	fmt.Fprintf(w, "Bytes allocated:    %d\n", s.BytesAllocated)
	fmt.Fprintf(w, "Bytes freed:        %d\n", s.BytesFreed)
	fmt.Fprintf(w, "Splits:             %d\n", s.Splits)
	fmt.Fprintf(w, "Coalesce fwd:       %d\n", s.CoalesceForward)
	fmt.Fprintf(w, "Coalesce back:      %d\n", s.CoalesceBackward)

	fmt.Fprintf(w, "\nBlocks:\n")
	fmt.Fprintf(w, "  Allocated:        %d (%d bytes, %d payload)\n",
		u.AllocatedBlocks, u.AllocatedBytes, u.PayloadBytes)
	fmt.Fprintf(w, "  Free:             %d (%d bytes, largest %d)\n",
		u.FreeBlocks, u.FreeBytes, u.LargestFree)
	fmt.Fprintf(w, "  Fragmentation:    %.1f%%\n", 100*u.Fragmentation())
	if u.Incomplete {
		fmt.Fprintf(w, "  (scan stopped early: heap is corrupt, run Check)\n")
	}

	fmt.Fprintf(w, "\nBuckets:\n")
	for idx, bu := range u.Buckets {
		if bu.Blocks == 0 {
			continue
		}
		lo, hi := BucketRange(idx)
		if hi < 0 {
			fmt.Fprintf(w, "  [%2d] %7d+        %5d blocks %10d bytes\n", idx, lo, bu.Blocks, bu.Bytes)
		} else {
			fmt.Fprintf(w, "  [%2d] %7d-%-7d %5d blocks %10d bytes\n", idx, lo, hi, bu.Blocks, bu.Bytes)
		}
	}
}

// Dump writes one line per block followed by the bucket lists.
func (a *SegAllocator) Dump(w io.Writer) {
	fmt.Fprintf(w, "heap [0x0, 0x%X) %d bytes\n", len(a.buf()), len(a.buf()))
	it := a.Blocks()
	for {
		b, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(w, "  !! %v\n", err)
			break
		}
		state := "free"
		if b.Allocated {
			state = "used"
		}
		fmt.Fprintf(w, "  0x%08X %8d %s\n", b.Offset, b.Size, state)
	}
	for idx, list := range a.Buckets() {
		if len(list) == 0 {
			continue
		}
		fmt.Fprintf(w, "  bucket %2d:", idx)
		for _, bp := range list {
			fmt.Fprintf(w, " 0x%X(%d)", bp, a.size(bp))
		}
		fmt.Fprintln(w)
	}
}

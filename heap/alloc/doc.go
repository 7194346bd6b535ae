// Package alloc implements a segregated-fit dynamic memory allocator over a
// single growable heap region.
//
// # Overview
//
// Blocks carry a 4-byte header and a 4-byte footer holding the block size
// and an allocated bit (boundary tags), so both physical neighbours of any
// block are reachable in O(1). Free blocks are kept in 16 size-class lists
// threaded through their own payloads, each list sorted by ascending size.
// Adjacent free blocks are always coalesced immediately.
//
// # Allocator Interface
//
// The Allocator interface covers the classic quartet plus inspection:
//
//   - Alloc(n): at least n usable bytes, 8-byte aligned
//   - Free(p): release; Nil is a no-op
//   - Realloc(p, n): resize, in place when possible
//   - Calloc(count, size): zeroed allocation
//   - Payload(p), Bounds(), Check()
//
// # Implementations
//
// SegAllocator: the production allocator
//
//   - Best fit within the request's size class, then the head of the first
//     non-empty larger class, then heap extension by at least ChunkSize
//   - Split placement: small requests low, large requests high
//   - In-place realloc by shrink, successor absorption or tail extension
//
// BumpAllocator: append-only baseline with the same block format
//
// Checked: wrapper running Check after every mutating call
//
// # Usage Example
//
//	r := heap.NewMemory(heap.DefaultMax)
//	a, err := alloc.New(r, nil, nil)
//	if err != nil {
//	    return err
//	}
//
//	p, err := a.Alloc(100)
//	if err != nil {
//	    return err
//	}
//	copy(a.Payload(p), data)
//
//	p, err = a.Realloc(p, 400)
//	...
//	err = a.Free(p)
//
// # Size Classes
//
// A block of size s lives in bucket floor(log2(s)), capped at 15:
//
//	Bucket  4:    16 -    31 bytes
//	Bucket  5:    32 -    63 bytes
//	Bucket  6:    64 -   127 bytes
//	...
//	Bucket 14: 16384 - 32767 bytes
//	Bucket 15: 32768+ bytes
//
// Buckets 0-3 exist but stay empty since the minimum block is 16 bytes.
//
// # Thread Safety
//
// Allocators are not safe for concurrent use. Callers must synchronize.
package alloc

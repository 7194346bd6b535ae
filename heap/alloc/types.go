package alloc

import "github.com/liuzc1999/malloc-lab/internal/format"

// Ptr is a payload offset relative to the heap base. Payload offsets are
// always multiples of 8 and never zero.
type Ptr = uint32

// Nil is the null payload offset.
const Nil Ptr = format.NilOffset

// Provider supplies the heap region. Grow extends the break by n bytes and
// returns the previous break; Bytes returns [0, break). The backing storage
// must not move between calls, since payload slices stay in caller hands.
type Provider interface {
	Grow(n int) (int, error)
	Bytes() []byte
}

// DirtyTracker records byte ranges rewritten in the heap so file-backed
// regions can flush only what changed.
type DirtyTracker interface {
	Add(off, length int)
}

// Allocator is the public allocation surface, shared by SegAllocator and
// wrappers used in tests and tools.
type Allocator interface {
	// Alloc returns a block with at least size usable bytes, or Nil for size 0.
	Alloc(size int) (Ptr, error)

	// Free releases a block returned by Alloc, Calloc or Realloc. Nil is a no-op.
	Free(p Ptr) error

	// Realloc resizes p, preserving min(old, new) bytes of content.
	Realloc(p Ptr, size int) (Ptr, error)

	// Calloc allocates count*size zeroed bytes.
	Calloc(count, size int) (Ptr, error)

	// Payload returns the usable bytes of a live block.
	Payload(p Ptr) []byte

	// Bounds returns the heap's [lo, hi) byte range.
	Bounds() (lo, hi int)

	// Check runs the full consistency check.
	Check() error
}

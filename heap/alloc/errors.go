package alloc

import "errors"

var (
	// ErrNoSpace indicates the provider refused to extend the heap.
	ErrNoSpace = errors.New("alloc: out of memory")

	// ErrBadPtr indicates a pointer that is not a live block: misaligned, out
	// of range, already free, or with inconsistent tags.
	ErrBadPtr = errors.New("alloc: invalid pointer")

	// ErrBadSize indicates a negative request.
	ErrBadSize = errors.New("alloc: negative size")

	// ErrOverflow indicates a request that cannot be represented in the heap's
	// 32-bit offset space, or a calloc product that overflows.
	ErrOverflow = errors.New("alloc: request too large")

	// ErrProviderInUse indicates New was given a provider that already holds data.
	ErrProviderInUse = errors.New("alloc: provider not empty")

	// ErrCorrupt indicates a heap image that fails consistency checks.
	ErrCorrupt = errors.New("alloc: heap corrupt")
)

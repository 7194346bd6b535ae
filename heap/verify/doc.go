// Package verify provides validation functions for heap images produced by
// heap/alloc.
//
// # Overview
//
// The checks operate on the raw heap bytes ([0, break)) and never modify
// them. They are used by the allocator's own consistency checks, by the
// trace replayer, and in tests.
//
// Validation categories:
//   - Layout: pad word, prologue tags, epilogue at the break
//   - Boundary tags: header equals footer for every block
//   - Blocks: payload alignment, minimum size, no overrun past the epilogue
//   - Coalescing: no two free blocks are adjacent
//
// # Quick Start
//
//	if err := verify.AllInvariants(a.Bytes()); err != nil {
//	    fmt.Printf("heap corrupt: %v\n", err)
//	}
//
// Walk the blocks yourself:
//
//	verify.Walk(data, func(b verify.Block) error {
//	    fmt.Printf("%#x %d %v\n", b.Offset, b.Size, b.Allocated)
//	    return nil
//	})
//
// All functions return *ValidationError describing the first violation.
package verify

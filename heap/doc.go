// Package heap provides the memory regions that back an allocator.
//
// A Region reserves a fixed maximum up front and exposes a movable break,
// like sbrk over a preallocated arena: Grow only advances the break, so the
// backing storage never moves and payload slices handed out by the
// allocator stay valid for the life of the region.
//
// Three kinds of region are available:
//
//   - NewMemory: a Go-allocated reservation, portable and the default for tests
//   - NewMapped: an anonymous private mapping (falls back to NewMemory where
//     mmap is unavailable)
//   - OpenFile: a file-backed shared mapping; the file always holds exactly
//     [0, break), so a heap image survives the process and can be reopened
//     with alloc.Attach
//
// Regions are not safe for concurrent use.
package heap

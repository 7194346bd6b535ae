// Package dirty tracks byte ranges rewritten by the allocator and flushes
// them to the file behind a file-backed heap region.
//
// The allocator reports every tag, link and epilogue word it writes through
// Add. Flush page-aligns, sorts and merges the recorded ranges and pushes
// them to storage: msync on mapped regions, WriteBack on regions that keep
// the heap in Go memory. Sync additionally flushes file metadata.
//
// Memory-only regions (FD() < 0) have nothing to flush; Flush and Sync just
// clear the ranges.
package dirty

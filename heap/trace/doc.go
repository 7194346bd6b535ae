// Package trace reads malloc-lab workload traces and replays them against an
// allocator, validating every returned block.
//
// A trace starts with up to four optional numeric header lines (suggested
// heap size, number of ids, number of ops, weight) followed by one operation
// per line:
//
//	a <id> <bytes>   allocate bytes for id
//	r <id> <bytes>   reallocate id to bytes
//	f <id>           free id
//
// Blank lines and lines starting with '#' are ignored.
//
// Replay fills each block with an id-derived byte pattern and checks, after
// every operation, that blocks are aligned, inside the heap, disjoint from
// every other live block, and that realloc preserved the old contents.
package trace

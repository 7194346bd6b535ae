package alloc

import (
	"fmt"
	"io"

	"github.com/liuzc1999/malloc-lab/heap/verify"
	"github.com/liuzc1999/malloc-lab/internal/format"
)

// BlockIterator walks the heap in address order.
type BlockIterator struct {
	a    *SegAllocator
	bp   int
	done bool
}

// Blocks returns an iterator positioned at the first block after the prologue.
func (a *SegAllocator) Blocks() *BlockIterator {
	return &BlockIterator{a: a, bp: format.FirstBlockOffset}
}

// Next returns the next block, io.EOF at the epilogue, or an error when the
// tags do not describe a well-formed block.
func (it *BlockIterator) Next() (verify.Block, error) {
	if it.done {
		return verify.Block{}, io.EOF
	}

	b := it.a.buf()
	epi := len(b) - format.WordSize
	hdr := it.bp - format.WordSize
	if hdr >= epi {
		it.done = true
		return verify.Block{}, io.EOF
	}

	size, alloc := format.ReadTag(b, hdr)
	if format.ValidateTag(size) != nil || it.bp+int(size)-format.WordSize > epi {
		it.done = true
		return verify.Block{}, fmt.Errorf("alloc: block at 0x%X has bad size %d: %w", it.bp, size, ErrCorrupt)
	}

	blk := verify.Block{Offset: uint32(it.bp), Size: size, Allocated: alloc}
	it.bp += int(size)
	return blk, nil
}

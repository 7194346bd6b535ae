package alloc

import "github.com/liuzc1999/malloc-lab/internal/format"

// Every read and write of tag and link words goes through the helpers in
// this file. Callers guarantee bp is a block payload inside the heap.

func (a *SegAllocator) buf() []byte {
	return a.p.Bytes()
}

func (a *SegAllocator) markDirty(off, length int) {
	if a.dt != nil && length > 0 {
		a.dt.Add(off, length)
	}
}

// size returns the block size recorded in bp's header.
func (a *SegAllocator) size(bp Ptr) uint32 {
	return format.TagSize(format.ReadU32(a.buf(), format.HeaderOffset(bp)))
}

// allocated reports bp's header allocated bit. The epilogue reads as allocated.
func (a *SegAllocator) allocated(bp Ptr) bool {
	return format.TagAllocated(format.ReadU32(a.buf(), format.HeaderOffset(bp)))
}

// setTags writes matching header and footer for a block of size bytes at bp.
func (a *SegAllocator) setTags(bp Ptr, size uint32, allocated bool) {
	b := a.buf()
	tag := format.Pack(size, allocated)
	hdr := format.HeaderOffset(bp)
	ftr := format.FooterOffset(bp, size)
	format.PutU32(b, hdr, tag)
	format.PutU32(b, ftr, tag)
	a.markDirty(hdr, format.WordSize)
	a.markDirty(ftr, format.WordSize)
}

// setEpilogue writes the zero-size allocated sentinel header at off.
func (a *SegAllocator) setEpilogue(off int) {
	format.PutU32(a.buf(), off, format.Pack(0, true))
	a.markDirty(off, format.WordSize)
}

// next returns the payload offset of the block physically after bp. For the
// last block this is the epilogue position.
func (a *SegAllocator) next(bp Ptr) Ptr {
	return bp + a.size(bp)
}

// prevAllocated reads the allocated bit from the footer preceding bp.
func (a *SegAllocator) prevAllocated(bp Ptr) bool {
	return format.TagAllocated(format.ReadU32(a.buf(), int(bp)-format.DoubleSize))
}

// prev returns the payload offset of the block physically before bp, using
// its footer. Only meaningful when that block is free.
func (a *SegAllocator) prev(bp Ptr) Ptr {
	return bp - format.TagSize(format.ReadU32(a.buf(), int(bp)-format.DoubleSize))
}

// pred and succ read the free-list links stored in a free block's payload.
func (a *SegAllocator) pred(bp Ptr) Ptr {
	return format.ReadU32(a.buf(), int(bp)+format.PredOffset)
}

func (a *SegAllocator) succ(bp Ptr) Ptr {
	return format.ReadU32(a.buf(), int(bp)+format.SuccOffset)
}

func (a *SegAllocator) setPred(bp, v Ptr) {
	off := int(bp) + format.PredOffset
	format.PutU32(a.buf(), off, v)
	a.markDirty(off, format.WordSize)
}

func (a *SegAllocator) setSucc(bp, v Ptr) {
	off := int(bp) + format.SuccOffset
	format.PutU32(a.buf(), off, v)
	a.markDirty(off, format.WordSize)
}

package format

// Pack combines a block size and the allocated flag into a tag word.
func Pack(size uint32, allocated bool) uint32 {
	if allocated {
		return size | AllocatedBit
	}
	return size
}

// TagSize extracts the block size from a tag word.
func TagSize(tag uint32) uint32 {
	return tag & SizeMask
}

// TagAllocated reports whether the tag's allocated bit is set.
func TagAllocated(tag uint32) bool {
	return tag&AllocatedBit != 0
}

// ReadTag reads the tag word at off.
func ReadTag(b []byte, off int) (size uint32, allocated bool) {
	tag := ReadU32(b, off)
	return TagSize(tag), TagAllocated(tag)
}

// PutTag writes a tag word at off.
func PutTag(b []byte, off int, size uint32, allocated bool) {
	PutU32(b, off, Pack(size, allocated))
}

// HeaderOffset returns the offset of the header of the block at bp.
func HeaderOffset(bp uint32) int {
	return int(bp) - WordSize
}

// FooterOffset returns the offset of the footer of a block of the given size at bp.
func FooterOffset(bp, size uint32) int {
	return int(bp) + int(size) - DoubleSize
}

// Bucket returns the size class of a block size: the number of halvings
// until the size is <= 1, capped at the last bucket.
//
// Example:
//
//	Bucket(16)   = 4
//	Bucket(24)   = 4
//	Bucket(32)   = 5
//	Bucket(4096) = 12
//	Bucket(1<<20) = 15
func Bucket(size uint32) int {
	idx := 0
	for idx < NumBuckets-1 && size > 1 {
		size >>= 1
		idx++
	}
	return idx
}

package format

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
//	Align8(16) = 16
func Align8(n int) int {
	return (n + AlignmentMask) & ^AlignmentMask
}

// IsAligned reports whether off is a multiple of Alignment.
func IsAligned(off int) bool {
	return off&AlignmentMask == 0
}

// AdjustedSize converts a payload request into a block size: requests of up
// to 8 bytes take a minimum block, larger ones add header and footer and
// round up to the alignment.
func AdjustedSize(n int) int {
	if n <= DoubleSize {
		return MinBlockSize
	}
	return Align8(n + DoubleSize)
}

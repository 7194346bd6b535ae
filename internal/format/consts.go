// Package format holds the on-heap layout of the segregated-fit allocator:
// boundary-tag encoding, word IO and alignment. Everything here is pure and
// operates on caller-supplied byte slices; heap/alloc owns the policy.
//
// Heap image (offsets from the heap base):
//
//	0x00  pad word (0)
//	0x04  prologue header  Pack(8, true)
//	0x08  prologue footer  Pack(8, true)
//	0x0C  epilogue header  Pack(0, true)   <- moves on every extension
//
// A block whose payload starts at bp has its header at bp-4 and its footer
// at bp+size-8. Free blocks reuse the first two payload words as the
// predecessor and successor offsets of their bucket list.
package format

const (
	// WordSize is the width of a tag or a free-list link.
	WordSize = 4

	// DoubleSize is the header plus footer overhead of every block, and the
	// payload alignment.
	DoubleSize = 8

	// Alignment is the payload alignment guarantee.
	Alignment = 8

	// AlignmentMask is Alignment - 1.
	AlignmentMask = Alignment - 1

	// MinBlockSize is header + footer + two link words.
	MinBlockSize = 16

	// NumBuckets is the number of segregated size classes.
	NumBuckets = 16

	// PrologueSize is the size recorded in the prologue tags.
	PrologueSize = 8

	// PrologueOffset is the payload offset of the prologue block.
	PrologueOffset = 8

	// InitialHeapSize covers pad, prologue and epilogue.
	InitialHeapSize = 16

	// FirstBlockOffset is the payload offset of the first real block.
	FirstBlockOffset = 16

	// PredOffset and SuccOffset locate the link words within a free payload.
	PredOffset = 0
	SuccOffset = WordSize

	// NilOffset is the "no block" sentinel. Offset 0 is the pad word, which is
	// never a payload.
	NilOffset = 0

	// MaxHeapSize bounds the heap so every offset fits in a link word and in
	// an int on 32-bit platforms.
	MaxHeapSize = 1<<31 - Alignment

	// AllocatedBit marks a tag as allocated. Bits 1-2 are always zero since
	// sizes are multiples of 8.
	AllocatedBit = 0x1

	// SizeMask strips the low three flag bits from a tag.
	SizeMask = ^uint32(AlignmentMask)
)

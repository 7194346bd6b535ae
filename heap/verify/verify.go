package verify

import (
	"errors"
	"fmt"

	"github.com/liuzc1999/malloc-lab/internal/format"
)

// ValidationError describes the first invariant violation found in a heap image.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Block is one entry of a heap walk. Offset is the payload offset.
type Block struct {
	Offset    uint32
	Size      uint32
	Allocated bool
}

// ErrStop can be returned from a Walk callback to end the walk early.
var ErrStop = errors.New("verify: stop walk")

// AllInvariants validates all heap invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
func AllInvariants(data []byte) error {
	if err := Layout(data); err != nil {
		return err
	}
	if err := BoundaryTags(data); err != nil {
		return err
	}
	return NoAdjacentFree(data)
}

// Layout validates the fixed prefix and the epilogue position.
func Layout(data []byte) error {
	if len(data) < format.InitialHeapSize {
		return &ValidationError{
			Type:    "Layout",
			Message: fmt.Sprintf("heap too small: %d bytes (need %d)", len(data), format.InitialHeapSize),
			Offset:  -1,
		}
	}
	if len(data)%format.Alignment != 0 {
		return &ValidationError{
			Type:    "Layout",
			Message: fmt.Sprintf("heap size %d is not 8-byte aligned", len(data)),
			Offset:  -1,
		}
	}
	if pad := format.ReadU32(data, 0); pad != 0 {
		return &ValidationError{
			Type:    "Layout",
			Message: fmt.Sprintf("pad word is 0x%X, expected 0", pad),
			Offset:  0,
		}
	}

	want := format.Pack(format.PrologueSize, true)
	hdr := format.ReadU32(data, format.HeaderOffset(format.PrologueOffset))
	ftr := format.ReadU32(data, format.FooterOffset(format.PrologueOffset, format.PrologueSize))
	if hdr != want || ftr != want {
		return &ValidationError{
			Type:    "Layout",
			Message: fmt.Sprintf("bad prologue: header=0x%X footer=0x%X, expected 0x%X", hdr, ftr, want),
			Offset:  format.HeaderOffset(format.PrologueOffset),
		}
	}

	epi := len(data) - format.WordSize
	if tag := format.ReadU32(data, epi); tag != format.Pack(0, true) {
		return &ValidationError{
			Type:    "Layout",
			Message: fmt.Sprintf("bad epilogue: 0x%X", tag),
			Offset:  epi,
		}
	}
	return nil
}

// Walk calls fn for every real block between the prologue and the
// epilogue, in address order. It stops at the first structural problem it
// cannot step over (a zero or overrunning size) and reports it.
func Walk(data []byte, fn func(Block) error) error {
	if len(data) < format.InitialHeapSize {
		return Layout(data)
	}
	epi := len(data) - format.WordSize
	bp := format.FirstBlockOffset
	for {
		hdrOff := bp - format.WordSize
		if hdrOff == epi {
			return nil
		}
		if hdrOff > epi {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("walk overran epilogue at 0x%X", epi),
				Offset:  hdrOff,
			}
		}

		size, alloc := format.ReadTag(data, hdrOff)
		if size == 0 {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("zero-size tag before epilogue (epilogue at 0x%X)", epi),
				Offset:  hdrOff,
			}
		}
		if err := format.ValidateTag(size); err != nil {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("invalid block size %d", size),
				Offset:  hdrOff,
				Details: map[string]any{"payload": bp},
			}
		}
		if bp+int(size)-format.WordSize > epi {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("block of size %d overruns epilogue at 0x%X", size, epi),
				Offset:  hdrOff,
			}
		}

		if err := fn(Block{Offset: uint32(bp), Size: size, Allocated: alloc}); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
		bp += int(size)
	}
}

// BoundaryTags validates that every block's header equals its footer.
func BoundaryTags(data []byte) error {
	return Walk(data, func(b Block) error {
		hdrOff := format.HeaderOffset(b.Offset)
		ftrOff := format.FooterOffset(b.Offset, b.Size)
		hdr := format.ReadU32(data, hdrOff)
		ftr := format.ReadU32(data, ftrOff)
		if hdr != ftr {
			return &ValidationError{
				Type:    "BoundaryTags",
				Message: fmt.Sprintf("header 0x%X != footer 0x%X", hdr, ftr),
				Offset:  hdrOff,
				Details: map[string]any{"payload": b.Offset, "footer": ftrOff},
			}
		}
		if !format.IsAligned(int(b.Offset)) {
			return &ValidationError{
				Type:    "BoundaryTags",
				Message: "payload not 8-byte aligned",
				Offset:  int(b.Offset),
			}
		}
		return nil
	})
}

// NoAdjacentFree validates that coalescing left no two neighbouring free blocks.
func NoAdjacentFree(data []byte) error {
	prevFree := false
	var prev uint32
	return Walk(data, func(b Block) error {
		if !b.Allocated && prevFree {
			return &ValidationError{
				Type:    "Coalescing",
				Message: fmt.Sprintf("free block at 0x%X follows free block at 0x%X", b.Offset, prev),
				Offset:  int(b.Offset),
			}
		}
		prevFree = !b.Allocated
		prev = b.Offset
		return nil
	})
}

// Collect returns every block in address order.
func Collect(data []byte) ([]Block, error) {
	var out []Block
	err := Walk(data, func(b Block) error {
		out = append(out, b)
		return nil
	})
	return out, err
}

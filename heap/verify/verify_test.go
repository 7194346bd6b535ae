package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liuzc1999/malloc-lab/internal/format"
)

type shape struct {
	size  uint32
	alloc bool
}

// buildHeap lays out pad, prologue, the given blocks and an epilogue.
func buildHeap(t *testing.T, blocks ...shape) []byte {
	t.Helper()
	total := format.InitialHeapSize
	for _, b := range blocks {
		total += int(b.size)
	}
	data := make([]byte, total)
	format.PutTag(data, 4, format.PrologueSize, true)
	format.PutTag(data, 8, format.PrologueSize, true)
	bp := uint32(format.FirstBlockOffset)
	for _, b := range blocks {
		format.PutTag(data, format.HeaderOffset(bp), b.size, b.alloc)
		format.PutTag(data, format.FooterOffset(bp, b.size), b.size, b.alloc)
		bp += b.size
	}
	format.PutTag(data, format.HeaderOffset(bp), 0, true)
	return data
}

func asValidation(t *testing.T, err error) *ValidationError {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected *ValidationError, got %T", err)
	return ve
}

func TestAllInvariants_Empty(t *testing.T) {
	require.NoError(t, AllInvariants(buildHeap(t)))
}

func TestAllInvariants_Valid(t *testing.T) {
	data := buildHeap(t, shape{16, true}, shape{32, false}, shape{24, true}, shape{1024, false})
	require.NoError(t, AllInvariants(data))
}

func TestLayout_TooSmall(t *testing.T) {
	err := Layout(make([]byte, 8))
	ve := asValidation(t, err)
	require.Equal(t, "Layout", ve.Type)
	require.Equal(t, -1, ve.Offset)
}

func TestLayout_BadPrologue(t *testing.T) {
	data := buildHeap(t, shape{16, true})
	format.PutTag(data, 8, 16, true)
	err := Layout(data)
	require.ErrorContains(t, err, "bad prologue")
}

func TestLayout_BadEpilogue(t *testing.T) {
	data := buildHeap(t, shape{16, true})
	format.PutU32(data, len(data)-4, 0)
	err := Layout(data)
	require.ErrorContains(t, err, "bad epilogue")
}

func TestBoundaryTags_Mismatch(t *testing.T) {
	data := buildHeap(t, shape{16, true}, shape{32, false})
	// Footer of the second block claims allocated.
	format.PutTag(data, format.FooterOffset(32, 32), 32, true)

	err := BoundaryTags(data)
	ve := asValidation(t, err)
	require.Equal(t, "BoundaryTags", ve.Type)
	require.Equal(t, 28, ve.Offset)
}

func TestWalk_ZeroSizeBeforeEpilogue(t *testing.T) {
	data := buildHeap(t, shape{16, true}, shape{16, true})
	format.PutU32(data, format.HeaderOffset(32), 0)
	err := Walk(data, func(Block) error { return nil })
	require.ErrorContains(t, err, "zero-size tag")
}

func TestWalk_Overrun(t *testing.T) {
	data := buildHeap(t, shape{16, true})
	format.PutTag(data, format.HeaderOffset(16), 64, true)
	err := Walk(data, func(Block) error { return nil })
	require.ErrorContains(t, err, "overruns epilogue")
}

func TestWalk_BadSize(t *testing.T) {
	data := buildHeap(t, shape{24, true})
	format.PutTag(data, format.HeaderOffset(16), 12, true)
	err := Walk(data, func(Block) error { return nil })
	require.ErrorContains(t, err, "invalid block size")
}

func TestWalk_Stop(t *testing.T) {
	data := buildHeap(t, shape{16, true}, shape{16, false}, shape{16, true})
	seen := 0
	err := Walk(data, func(Block) error {
		seen++
		if seen == 2 {
			return ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, seen)
}

func TestNoAdjacentFree(t *testing.T) {
	data := buildHeap(t, shape{16, false}, shape{32, false})
	err := NoAdjacentFree(data)
	ve := asValidation(t, err)
	require.Equal(t, "Coalescing", ve.Type)
	require.Equal(t, 32, ve.Offset)

	require.NoError(t, NoAdjacentFree(buildHeap(t, shape{16, false}, shape{16, true}, shape{16, false})))
}

func TestCollect(t *testing.T) {
	data := buildHeap(t, shape{16, true}, shape{48, false})
	blocks, err := Collect(data)
	require.NoError(t, err)
	require.Equal(t, []Block{
		{Offset: 16, Size: 16, Allocated: true},
		{Offset: 32, Size: 48, Allocated: false},
	}, blocks)
}

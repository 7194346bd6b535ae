package heap

import (
	"errors"
	"fmt"
	"os"

	"github.com/liuzc1999/malloc-lab/internal/format"
)

// DefaultMax is the default reservation (20 MiB).
const DefaultMax = 20 << 20

var (
	// ErrExhausted indicates Grow would pass the region's reservation.
	ErrExhausted = errors.New("heap: region exhausted")

	// ErrClosed indicates use of a closed region.
	ErrClosed = errors.New("heap: region closed")
)

// Kind identifies how a region is backed.
type Kind int

const (
	KindMemory Kind = iota
	KindMapped
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindMapped:
		return "mapped"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Region is a fixed reservation with a break. Bytes below the break belong
// to the heap; bytes above it are reserved but not yet handed out.
type Region struct {
	data  []byte // full reservation
	brk   int
	kind  Kind
	f     *os.File
	unmap func([]byte) error
}

// normalizeReserve clamps a requested reservation to (0, format.MaxHeapSize]
// and rounds it down to the alignment.
func normalizeReserve(reserve int) int {
	if reserve <= 0 {
		reserve = DefaultMax
	}
	if reserve > format.MaxHeapSize {
		reserve = format.MaxHeapSize
	}
	return reserve &^ format.AlignmentMask
}

// NewMemory returns a region backed by reserve bytes of Go memory. Zero or
// less selects DefaultMax.
func NewMemory(reserve int) *Region {
	return &Region{data: make([]byte, normalizeReserve(reserve)), kind: KindMemory}
}

// Grow advances the break by n bytes and returns the previous break. It
// fails without side effects when the reservation is exhausted. File-backed
// regions extend the file before the break moves.
func (r *Region) Grow(n int) (int, error) {
	if r.data == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, fmt.Errorf("heap: negative grow %d", n)
	}
	if n > len(r.data)-r.brk {
		return 0, fmt.Errorf("%w: need %d bytes, %d of %d left", ErrExhausted, n, len(r.data)-r.brk, len(r.data))
	}
	if r.f != nil {
		if err := r.f.Truncate(int64(r.brk + n)); err != nil {
			return 0, fmt.Errorf("heap: extend file: %w", err)
		}
	}
	old := r.brk
	r.brk += n
	return old, nil
}

// Bytes returns [0, break). The capacity is clipped so appends cannot reach
// reserved bytes.
func (r *Region) Bytes() []byte {
	return r.data[:r.brk:r.brk]
}

// Len returns the current break.
func (r *Region) Len() int { return r.brk }

// Max returns the reservation size.
func (r *Region) Max() int { return len(r.data) }

// Kind reports how the region is backed.
func (r *Region) Kind() Kind { return r.kind }

// Lo returns the offset of the first heap byte.
func (r *Region) Lo() int { return 0 }

// Hi returns the offset of the last heap byte, or -1 for an empty heap.
func (r *Region) Hi() int { return r.brk - 1 }

// Contains reports whether [off, off+n) lies below the break.
func (r *Region) Contains(off, n int) bool {
	return off >= 0 && n >= 0 && off <= r.brk && n <= r.brk-off
}

// Reset moves the break back to zero. File-backed regions truncate the file.
func (r *Region) Reset() error {
	if r.data == nil {
		return ErrClosed
	}
	if r.f != nil {
		if err := r.f.Truncate(0); err != nil {
			return fmt.Errorf("heap: reset file: %w", err)
		}
	}
	r.brk = 0
	return nil
}

// FD returns the backing file descriptor, or -1 for memory regions.
func (r *Region) FD() int {
	if r == nil || r.f == nil {
		return -1
	}
	return int(r.f.Fd())
}

// Close releases the reservation and closes any backing file.
func (r *Region) Close() error {
	var errs []error
	if r.data != nil && r.unmap != nil {
		errs = append(errs, r.unmap(r.data))
	}
	r.data = nil
	r.brk = 0
	if r.f != nil {
		errs = append(errs, r.f.Close())
		r.f = nil
	}
	return errors.Join(errs...)
}

// openHeapFile opens or creates path and validates its size as a heap image.
func openHeapFile(path string, reserve int) (*os.File, int, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if err := checkImageSize(path, st.Size(), reserve); err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, int(st.Size()), nil
}

func checkImageSize(path string, sz int64, reserve int) error {
	if sz > int64(reserve) {
		return fmt.Errorf("heap: %s is %d bytes, larger than reservation %d", path, sz, reserve)
	}
	if sz%format.Alignment != 0 {
		return fmt.Errorf("heap: %s size %d is not 8-byte aligned", path, sz)
	}
	return nil
}

// LoadFile reads the heap image at path into a memory region sized to the
// image. The file is opened read-only, so nothing done to the region reaches
// it. The region cannot grow.
func LoadFile(path string, reserve int) (*Region, error) {
	reserve = normalizeReserve(reserve)
	img, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := checkImageSize(path, int64(len(img)), reserve); err != nil {
		return nil, err
	}
	return &Region{data: img[:len(img):len(img)], brk: len(img), kind: KindMemory}, nil
}

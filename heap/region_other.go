//go:build !linux && !darwin && !freebsd

package heap

import (
	"fmt"
	"io"
)

// NewMapped falls back to a Go-memory reservation on this platform.
func NewMapped(reserve int) (*Region, error) {
	return NewMemory(reserve), nil
}

// OpenFile loads path into a Go-memory reservation. Changes reach the file
// through WriteBack, which heap/dirty calls on flush.
func OpenFile(path string, reserve int) (*Region, error) {
	reserve = normalizeReserve(reserve)
	f, sz, err := openHeapFile(path, reserve)
	if err != nil {
		return nil, err
	}

	data := make([]byte, reserve)
	if _, err := io.ReadFull(f, data[:sz]); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("heap: read %s: %w", path, err)
	}
	return &Region{data: data, brk: sz, kind: KindFile, f: f}, nil
}

// WriteBack copies [off, off+length) below the break to the backing file.
func (r *Region) WriteBack(off, length int) error {
	if r.f == nil {
		return nil
	}
	end := min(off+length, r.brk)
	if off < 0 || off >= end {
		return nil
	}
	_, err := r.f.WriteAt(r.data[off:end], int64(off))
	return err
}

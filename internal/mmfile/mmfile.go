// Package mmfile maps trace files and heap images read-only.
package mmfile

import (
	"errors"
	"fmt"
)

// ErrTooLarge is returned for files that cannot be addressed by an int.
var ErrTooLarge = errors.New("mmfile: file too large to map")

// File is a read-only view of a file's contents. Close releases the mapping;
// Data must not be used afterwards.
type File struct {
	Data []byte

	release func() error
	closed  bool
}

// Close releases the view. Calling it more than once is a no-op.
func (f *File) Close() error {
	if f == nil || f.closed {
		return nil
	}
	f.closed = true
	data := f.Data
	f.Data = nil
	if f.release == nil || len(data) == 0 {
		return nil
	}
	if err := f.release(); err != nil {
		return fmt.Errorf("mmfile: release: %w", err)
	}
	return nil
}

// Map returns the contents of path and a cleanup function, for callers that
// do not want to hold a *File.
func Map(path string) ([]byte, func() error, error) {
	f, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f.Data, f.Close, nil
}

func checkSize(size int64) error {
	if size > int64(^uint(0)>>1) {
		return fmt.Errorf("%w (%d bytes)", ErrTooLarge, size)
	}
	return nil
}

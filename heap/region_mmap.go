//go:build linux || darwin || freebsd

package heap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// NewMapped maps reserve bytes of anonymous private memory. Pages are
// committed lazily by the kernel as the heap touches them.
func NewMapped(reserve int) (*Region, error) {
	reserve = normalizeReserve(reserve)
	data, err := unix.Mmap(-1, 0, reserve, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("heap: mmap %d bytes: %w", reserve, err)
	}
	return &Region{data: data, kind: KindMapped, unmap: unix.Munmap}, nil
}

// OpenFile maps path read-write and shared over reserve bytes of address
// space. An existing file becomes the heap image below the break; a new or
// empty file starts an empty heap. Only the bytes below the break are backed
// by the file, so reserved pages are never touched.
func OpenFile(path string, reserve int) (*Region, error) {
	reserve = normalizeReserve(reserve)
	f, sz, err := openHeapFile(path, reserve)
	if err != nil {
		return nil, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, reserve, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("heap: mmap %s: %w", path, err)
	}
	return &Region{data: data, brk: sz, kind: KindFile, f: f, unmap: unix.Munmap}, nil
}

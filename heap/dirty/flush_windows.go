//go:build windows

package dirty

import (
	"context"

	"golang.org/x/sys/windows"
)

// Heap regions on Windows live in Go memory and always flush through
// WriteBack; there is no mapped view to flush.
func (t *Tracker) flushRanges(_ context.Context, _ []byte) error {
	return nil
}

func fdatasync(fd int) error {
	return windows.FlushFileBuffers(windows.Handle(fd))
}

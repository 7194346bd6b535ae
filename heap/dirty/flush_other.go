//go:build !linux && !freebsd && !darwin && !windows

package dirty

import "context"

func (t *Tracker) flushRanges(_ context.Context, _ []byte) error {
	return nil
}

func fdatasync(int) error {
	return nil
}

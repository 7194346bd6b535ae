//go:build linux || darwin

package heap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMapped(t *testing.T) {
	r, err := NewMapped(1 << 16)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, KindMapped, r.Kind())
	_, err = r.Grow(4096)
	require.NoError(t, err)
	b := r.Bytes()
	b[0], b[4095] = 1, 2
	require.Equal(t, byte(2), r.Bytes()[4095])
}

func TestOpenFile_GrowExtendsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.img")
	r, err := OpenFile(path, 1<<16)
	require.NoError(t, err)

	require.Equal(t, KindFile, r.Kind())
	require.GreaterOrEqual(t, r.FD(), 0)
	require.Equal(t, 0, r.Len())

	_, err = r.Grow(64)
	require.NoError(t, err)
	copy(r.Bytes()[8:], "heapdata")

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(64), st.Size())

	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "heapdata", string(data[8:16]))
}

func TestOpenFile_ReopenKeepsImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.img")
	img := make([]byte, 32)
	img[20] = 0x5A
	require.NoError(t, os.WriteFile(path, img, 0o644))

	r, err := OpenFile(path, 1<<16)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 32, r.Len())
	require.Equal(t, byte(0x5A), r.Bytes()[20])

	require.NoError(t, r.Reset())
	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, st.Size())
}

func TestOpenFile_RejectsBadImages(t *testing.T) {
	dir := t.TempDir()

	odd := filepath.Join(dir, "odd.img")
	require.NoError(t, os.WriteFile(odd, make([]byte, 12), 0o644))
	_, err := OpenFile(odd, 1<<16)
	require.ErrorContains(t, err, "not 8-byte aligned")

	big := filepath.Join(dir, "big.img")
	require.NoError(t, os.WriteFile(big, make([]byte, 128), 0o644))
	_, err = OpenFile(big, 64)
	require.ErrorContains(t, err, "larger than reservation")
}

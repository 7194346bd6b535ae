package buf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	sum, ok := Add(10, 5)
	require.True(t, ok)
	require.Equal(t, 15, sum)

	_, ok = Add(math.MaxInt, 1)
	require.False(t, ok)
	_, ok = Add(math.MinInt, -1)
	require.False(t, ok)
}

func TestMul(t *testing.T) {
	tests := []struct {
		a, b int
		want int
		ok   bool
	}{
		{0, math.MaxInt, 0, true},
		{math.MaxInt, 0, 0, true},
		{7, 9, 63, true},
		{1 << 31, 2, 1 << 32, true},
		{math.MaxInt / 2, 3, 0, false},
		{-4, 5, 0, false},
		{4, -5, 0, false},
	}
	for _, tt := range tests {
		got, ok := Mul(tt.a, tt.b)
		require.Equal(t, tt.ok, ok, "%d*%d", tt.a, tt.b)
		require.Equal(t, tt.want, got, "%d*%d", tt.a, tt.b)
	}
}

func TestSpan(t *testing.T) {
	b := make([]byte, 32)

	s, ok := Span(b, 8, 16)
	require.True(t, ok)
	require.Len(t, s, 16)
	require.Equal(t, 16, cap(s))

	s[0] = 0xAA
	require.Equal(t, byte(0xAA), b[8])

	s, ok = Span(b, 32, 0)
	require.True(t, ok)
	require.Empty(t, s)

	for _, tc := range []struct{ off, n int }{
		{-1, 4},
		{0, -1},
		{33, 0},
		{24, 16},
		{8, math.MaxInt},
	} {
		_, ok := Span(b, tc.off, tc.n)
		require.False(t, ok, "off=%d n=%d", tc.off, tc.n)
	}
}

func TestWithin(t *testing.T) {
	require.True(t, Within(0, 1072, 16, 100))
	require.True(t, Within(0, 1072, 960, 112))
	require.False(t, Within(0, 1072, 960, 113))
	require.False(t, Within(16, 1072, 8, 4))
	require.False(t, Within(0, 1072, 16, -1))
	require.False(t, Within(0, math.MaxInt, math.MaxInt-1, 2))
}

func TestOverlaps(t *testing.T) {
	require.True(t, Overlaps(16, 100, 112, 8))
	require.True(t, Overlaps(112, 8, 16, 100))
	require.True(t, Overlaps(16, 100, 32, 8))
	require.False(t, Overlaps(16, 96, 112, 8))
	require.False(t, Overlaps(112, 8, 16, 96))
	require.False(t, Overlaps(16, 0, 16, 8))
}

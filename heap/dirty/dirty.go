package dirty

import (
	"context"
	"slices"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	defaultRangeCapacity = 64

	// standardPageSize is the typical OS page size (4KB).
	standardPageSize = 4096
)

// Backing is the region being tracked.
type Backing interface {
	Bytes() []byte
	FD() int
}

// WriteBacker is implemented by backings that hold the heap in ordinary
// memory rather than a shared mapping.
type WriteBacker interface {
	WriteBack(off, length int) error
}

// Range is a dirty byte range, as heap offsets.
type Range struct {
	Off int64
	Len int64
}

// Tracker accumulates dirty ranges and flushes them.
//
// NOT thread-safe.
type Tracker struct {
	b        Backing
	ranges   []Range
	pageSize int64
}

// NewTracker creates a tracker for b.
func NewTracker(b Backing) *Tracker {
	return &Tracker{
		b:        b,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: standardPageSize,
	}
}

// Add records a dirty range. Ranges are merged at flush time, so this is a
// plain append.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{Off: int64(off), Len: int64(length)})
}

// Pending returns the number of recorded (uncoalesced) ranges.
func (t *Tracker) Pending() int {
	return len(t.ranges)
}

// Flush writes every dirty page back to the file and clears the ranges.
//
// The context is checked between ranges; when cancelled, some ranges may
// already be on disk and all of them stay pending.
func (t *Tracker) Flush(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := t.b.Bytes()
	if t.b.FD() < 0 || len(data) == 0 {
		t.ranges = t.ranges[:0]
		return nil
	}

	var err error
	if wb, ok := t.b.(WriteBacker); ok {
		err = t.writeBack(ctx, wb, len(data))
	} else {
		err = t.flushRanges(ctx, data)
	}
	if err != nil {
		return err
	}

	t.ranges = t.ranges[:0]
	return nil
}

// Sync flushes dirty pages and then the file itself (fdatasync, or
// F_FULLFSYNC on macOS).
func (t *Tracker) Sync(ctx context.Context) error {
	if err := t.Flush(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fd := t.b.FD()
	if fd < 0 {
		return nil
	}
	return fdatasync(fd)
}

// Reset drops all tracked ranges.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// Ranges returns a copy of the raw, uncoalesced ranges.
func (t *Tracker) Ranges() []Range {
	return slices.Clone(t.ranges)
}

// Coalesced returns the page-aligned, sorted, merged ranges a flush would write.
func (t *Tracker) Coalesced() []Range {
	return t.coalesce()
}

func (t *Tracker) writeBack(ctx context.Context, wb WriteBacker, limit int) error {
	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(int(r.Off+r.Len), limit)
		if int(r.Off) >= end {
			continue
		}
		if err := wb.WriteBack(int(r.Off), end-int(r.Off)); err != nil {
			return err
		}
	}
	return nil
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping or
// adjacent ones.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	slices.SortFunc(aligned, func(a, b Range) int {
		switch {
		case a.Off < b.Off:
			return -1
		case a.Off > b.Off:
			return 1
		default:
			return 0
		}
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.Off+current.Len {
			current.Len = max(current.Off+current.Len, next.Off+next.Len) - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

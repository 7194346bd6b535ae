package alloc

import (
	"fmt"
	"log/slog"

	"github.com/liuzc1999/malloc-lab/heap/verify"
	"github.com/liuzc1999/malloc-lab/internal/buf"
	"github.com/liuzc1999/malloc-lab/internal/format"
	"github.com/liuzc1999/malloc-lab/internal/logger"
)

// logAllocEnv switches allocation debug logging to stderr when set.
const logAllocEnv = "MMLAB_LOG_ALLOC"

// maxRequest is the largest payload whose adjusted size still fits a tag.
const maxRequest = format.MaxHeapSize - format.InitialHeapSize - format.DoubleSize

// SegAllocator is a segregated-fit allocator over a single Provider region.
// It is not safe for concurrent use.
type SegAllocator struct {
	p     Provider
	dt    DirtyTracker
	cfg   Config
	log   *slog.Logger
	heads [format.NumBuckets]Ptr
	stats Stats

	// onGrow is a test hook invoked after every successful extension.
	onGrow func(int)
}

var _ Allocator = (*SegAllocator)(nil)

func newSegAllocator(p Provider, dt DirtyTracker, cfg *Config) *SegAllocator {
	c := DefaultConfig
	if cfg != nil {
		c = *cfg
	}
	c = c.normalize()

	l := c.Logger
	if l == nil {
		l = logger.FromEnv(logAllocEnv, logger.L)
	}
	return &SegAllocator{p: p, dt: dt, cfg: c, log: l}
}

// New lays out pad, prologue and epilogue in an empty provider and performs
// the initial extension. dt may be nil.
func New(p Provider, dt DirtyTracker, cfg *Config) (*SegAllocator, error) {
	if len(p.Bytes()) != 0 {
		return nil, ErrProviderInUse
	}
	a := newSegAllocator(p, dt, cfg)

	base, err := p.Grow(format.InitialHeapSize)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w: %w", ErrNoSpace, err)
	}
	if base != 0 {
		return nil, fmt.Errorf("initialize: provider returned break %d: %w", base, ErrProviderInUse)
	}

	writeLayout(p.Bytes())
	a.markDirty(0, format.InitialHeapSize)

	if _, err := a.extend(a.cfg.InitialSize); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	a.log.Debug("heap initialized", "config", a.cfg.Name, "size", len(a.buf()))
	return a, nil
}

// Attach adopts a heap image already present in p, typically a file-backed
// region reopened after a previous run. The image is validated and the free
// lists are rebuilt from the block walk; stale link words are overwritten.
func Attach(p Provider, dt DirtyTracker, cfg *Config) (*SegAllocator, error) {
	a := newSegAllocator(p, dt, cfg)
	b := a.buf()
	if err := verify.AllInvariants(b); err != nil {
		return nil, fmt.Errorf("attach: %w: %w", ErrCorrupt, err)
	}
	err := verify.Walk(b, func(blk verify.Block) error {
		if !blk.Allocated {
			a.insert(blk.Offset)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("attach: %w: %w", ErrCorrupt, err)
	}
	a.log.Debug("heap attached", "size", len(b))
	return a, nil
}

// adjust converts a payload request into a block size.
func adjust(size int) (uint32, error) {
	if size > maxRequest {
		return 0, fmt.Errorf("%w: %d bytes", ErrOverflow, size)
	}
	return uint32(format.AdjustedSize(size)), nil
}

// Alloc returns a block with at least size usable bytes. A zero size returns
// (Nil, nil). On ErrNoSpace the heap is unchanged.
func (a *SegAllocator) Alloc(size int) (Ptr, error) {
	a.stats.AllocCalls++
	if size < 0 {
		return Nil, ErrBadSize
	}
	if size == 0 {
		return Nil, nil
	}
	asize, err := adjust(size)
	if err != nil {
		return Nil, err
	}
	return a.allocBlock(asize)
}

// allocBlock finds or creates a free block of at least asize bytes and
// places an allocation in it.
func (a *SegAllocator) allocBlock(asize uint32) (Ptr, error) {
	bp := a.find(asize)
	if bp == Nil {
		grown, err := a.extend(max(int(asize), a.cfg.ChunkSize))
		if err != nil {
			return Nil, err
		}
		bp = grown
		a.stats.AllocSlowPath++
	} else {
		a.stats.AllocFastPath++
	}

	bp = a.place(bp, asize)
	a.stats.BytesAllocated += int64(a.size(bp))
	return bp, nil
}

// Free releases p. Nil is a no-op; anything that is not a live block
// returns ErrBadPtr without touching the heap.
func (a *SegAllocator) Free(p Ptr) error {
	a.stats.FreeCalls++
	if p == Nil {
		return nil
	}
	if err := a.checkLive(p); err != nil {
		return err
	}
	a.freeBlock(p)
	return nil
}

func (a *SegAllocator) freeBlock(p Ptr) {
	size := a.size(p)
	a.setTags(p, size, false)
	a.insert(p)
	a.coalesce(p)
	a.stats.BytesFreed += int64(size)
}

// Calloc allocates count*size bytes and zeroes the whole usable payload.
func (a *SegAllocator) Calloc(count, size int) (Ptr, error) {
	a.stats.CallocCalls++
	if count < 0 || size < 0 {
		return Nil, ErrBadSize
	}
	n, ok := buf.Mul(count, size)
	if !ok {
		return Nil, fmt.Errorf("%w: %d x %d", ErrOverflow, count, size)
	}
	p, err := a.Alloc(n)
	if err != nil || p == Nil {
		return p, err
	}
	data := a.Payload(p)
	clear(data)
	a.markDirty(int(p), len(data))
	return p, nil
}

// Payload returns the usable bytes of the live block p, or nil when p is
// not a live block. The slice stays valid until p is freed or moved.
func (a *SegAllocator) Payload(p Ptr) []byte {
	if a.checkLive(p) != nil {
		return nil
	}
	return payload(a.buf(), p)
}

// UsableSize returns the number of payload bytes of the live block p, or 0.
func (a *SegAllocator) UsableSize(p Ptr) int {
	if a.checkLive(p) != nil {
		return 0
	}
	return int(a.size(p)) - format.DoubleSize
}

// Bounds returns the [lo, hi) byte range currently covered by the heap.
func (a *SegAllocator) Bounds() (lo, hi int) {
	return 0, len(a.buf())
}

// Bytes returns the raw heap image [0, break).
func (a *SegAllocator) Bytes() []byte {
	return a.buf()
}

// Config returns the normalized configuration in use.
func (a *SegAllocator) Config() Config {
	return a.cfg
}

// checkLive verifies that p addresses an allocated block with consistent tags.
func (a *SegAllocator) checkLive(p Ptr) error {
	return checkLive(a.buf(), p)
}

// writeLayout writes pad, prologue and epilogue into a fresh 16-byte heap.
func writeLayout(b []byte) {
	format.PutU32(b, 0, 0)
	format.PutTag(b, format.HeaderOffset(format.PrologueOffset), format.PrologueSize, true)
	format.PutTag(b, format.FooterOffset(format.PrologueOffset, format.PrologueSize), format.PrologueSize, true)
	format.PutTag(b, format.HeaderOffset(format.FirstBlockOffset), 0, true)
}

func checkLive(b []byte, p Ptr) error {
	if p < format.FirstBlockOffset || !format.IsAligned(int(p)) || int(p)+format.MinBlockSize > len(b) {
		return fmt.Errorf("%w: 0x%X outside heap or misaligned", ErrBadPtr, p)
	}
	tag := format.ReadU32(b, format.HeaderOffset(p))
	size := format.TagSize(tag)
	if !format.TagAllocated(tag) {
		return fmt.Errorf("%w: 0x%X is not allocated", ErrBadPtr, p)
	}
	if format.ValidateTag(size) != nil || int(p)+int(size) > len(b) {
		return fmt.Errorf("%w: 0x%X has bad size %d", ErrBadPtr, p, size)
	}
	if format.ReadU32(b, format.FooterOffset(p, size)) != tag {
		return fmt.Errorf("%w: 0x%X header/footer mismatch", ErrBadPtr, p)
	}
	return nil
}

// payload returns the usable bytes of a block already known to be live.
func payload(b []byte, p Ptr) []byte {
	size := int(format.TagSize(format.ReadU32(b, format.HeaderOffset(p))))
	data, _ := buf.Span(b, int(p), size-format.DoubleSize)
	return data
}

package alloc

import "fmt"

// Checked wraps an Allocator and runs the full consistency check after
// every mutating call. The first failure is returned wrapped in ErrCorrupt
// and sticks: later calls return it without touching the heap.
type Checked struct {
	Allocator

	ops int
	err error
}

// NewChecked wraps a.
func NewChecked(a Allocator) *Checked {
	return &Checked{Allocator: a}
}

// Err returns the sticky check failure, if any.
func (c *Checked) Err() error {
	return c.err
}

func (c *Checked) after(op string, err error) error {
	c.ops++
	if err != nil {
		return err
	}
	if cerr := c.Allocator.Check(); cerr != nil {
		c.err = fmt.Errorf("%w: after op %d (%s): %w", ErrCorrupt, c.ops, op, cerr)
		return c.err
	}
	return nil
}

func (c *Checked) Alloc(size int) (Ptr, error) {
	if c.err != nil {
		return Nil, c.err
	}
	p, err := c.Allocator.Alloc(size)
	return p, c.after("alloc", err)
}

func (c *Checked) Free(p Ptr) error {
	if c.err != nil {
		return c.err
	}
	return c.after("free", c.Allocator.Free(p))
}

func (c *Checked) Realloc(p Ptr, size int) (Ptr, error) {
	if c.err != nil {
		return Nil, c.err
	}
	np, err := c.Allocator.Realloc(p, size)
	return np, c.after("realloc", err)
}

func (c *Checked) Calloc(count, size int) (Ptr, error) {
	if c.err != nil {
		return Nil, c.err
	}
	p, err := c.Allocator.Calloc(count, size)
	return p, c.after("calloc", err)
}

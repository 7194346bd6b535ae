package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liuzc1999/malloc-lab/heap"
	"github.com/liuzc1999/malloc-lab/heap/alloc"
	"github.com/liuzc1999/malloc-lab/heap/dirty"
	"github.com/liuzc1999/malloc-lab/internal/logger"
)

// heapFlags are shared by every command that builds an allocator.
type heapFlags struct {
	chunk     int
	initial   int
	threshold int
	max       int
	heapFile  string
	preset    string
	bump      bool
}

func (f *heapFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.preset, "config", "Default", "Allocator preset (Default, LargeChunk, LowPlacement)")
	cmd.Flags().IntVar(&f.chunk, "chunk", 0, "Minimum heap extension in bytes (overrides preset)")
	cmd.Flags().IntVar(&f.initial, "initial", 0, "First extension in bytes (overrides preset)")
	cmd.Flags().IntVar(&f.threshold, "threshold", 0, "Placement threshold in bytes (overrides preset)")
	cmd.Flags().IntVar(&f.max, "max", heap.DefaultMax, "Largest heap in bytes")
	cmd.Flags().StringVar(&f.heapFile, "heap-file", "", "Back the heap with this file")
	cmd.Flags().BoolVar(&f.bump, "bump", false, "Use the append-only baseline allocator")
}

func (f *heapFlags) config() (alloc.Config, error) {
	var cfg alloc.Config
	found := false
	for _, c := range alloc.AllConfigs() {
		if c.Name == f.preset {
			cfg, found = c, true
			break
		}
	}
	if !found {
		return cfg, fmt.Errorf("unknown --config %q", f.preset)
	}
	if f.chunk < 0 || f.initial < 0 || f.threshold < 0 {
		return cfg, errors.New("--chunk, --initial and --threshold must not be negative")
	}
	if f.chunk > 0 {
		cfg.ChunkSize = f.chunk
	}
	if f.initial > 0 {
		cfg.InitialSize = f.initial
	}
	if f.threshold > 0 {
		cfg.PlacementThreshold = f.threshold
	}
	cfg.Logger = logger.L
	return cfg, nil
}

// session is an allocator over a fresh region.
type session struct {
	a       alloc.Allocator
	seg     *alloc.SegAllocator
	region  *heap.Region
	tracker *dirty.Tracker
}

func (f *heapFlags) open() (*session, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, err
	}

	var r *heap.Region
	if f.heapFile != "" {
		r, err = heap.OpenFile(f.heapFile, f.max)
		if err != nil {
			return nil, err
		}
		if r.Len() != 0 {
			if err := r.Reset(); err != nil {
				r.Close()
				return nil, err
			}
		}
	} else {
		r = heap.NewMemory(f.max)
	}

	s := &session{region: r}
	var dt alloc.DirtyTracker
	if f.heapFile != "" {
		s.tracker = dirty.NewTracker(r)
		dt = s.tracker
	}

	if f.bump {
		s.a, err = alloc.NewBump(r, dt)
	} else {
		s.seg, err = alloc.New(r, dt, &cfg)
		s.a = s.seg
	}
	if err != nil {
		r.Close()
		return nil, err
	}
	return s, nil
}

// close persists a file-backed heap and releases the region.
func (s *session) close(ctx context.Context) error {
	var syncErr error
	if s.tracker != nil {
		// Payload writes bypass the allocator, so the whole image is dirty.
		s.tracker.Add(0, s.region.Len())
		syncErr = s.tracker.Sync(ctx)
	}
	return errors.Join(syncErr, s.region.Close())
}

func (s *session) name() string {
	if s.seg == nil {
		return "Bump"
	}
	return s.seg.Config().Name
}

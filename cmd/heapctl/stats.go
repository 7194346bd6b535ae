package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liuzc1999/malloc-lab/heap/alloc"
	"github.com/liuzc1999/malloc-lab/heap/trace"
)

var (
	statsFlags heapFlags
	statsDump  bool
	statsStop  int
)

func init() {
	cmd := newStatsCmd()
	statsFlags.register(cmd)
	cmd.Flags().BoolVar(&statsDump, "dump", false, "Print the block map and bucket lists")
	cmd.Flags().IntVar(&statsStop, "stop", 0, "Stop after this many operations (0 runs the whole trace)")
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <trace>",
		Short: "Replay a trace and show allocator statistics",
		Long: `The stats command replays a trace and prints the operation counters,
heap usage, fragmentation and the occupancy of every size-class bucket.
Use --stop to look at the heap partway through a trace.

Example:
  heapctl stats binary.rep
  heapctl stats --stop 100 --dump short1.rep
  heapctl stats --json realloc.rep`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), args)
		},
	}
	return cmd
}

// StatsReport is the JSON form of a stats run.
type StatsReport struct {
	Trace  string       `json:"trace"`
	Config string       `json:"config"`
	Ops    int          `json:"ops"`
	Stats  alloc.Stats  `json:"stats"`
	Usage  alloc.Usage  `json:"usage"`
	Result trace.Result `json:"result"`
}

func runStats(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if statsFlags.bump {
		return errors.New("stats requires the segregated-fit allocator")
	}

	t, err := trace.Load(args[0])
	if err != nil {
		return err
	}
	s, err := statsFlags.open()
	if err != nil {
		return err
	}
	defer s.close(ctx)

	pl := trace.NewPlayer(t, s.a, trace.Options{})
	for !pl.Done() && (statsStop <= 0 || pl.Pos() < statsStop) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := pl.Step(); err != nil {
			return fmt.Errorf("%s: %w", t.Name, err)
		}
	}

	report := StatsReport{
		Trace:  t.Name,
		Config: s.seg.Config().Name,
		Ops:    pl.Pos(),
		Stats:  s.seg.Stats(),
		Usage:  s.seg.Usage(),
		Result: pl.Result(),
	}
	if jsonOut {
		return printJSON(report)
	}

	if !quiet {
		printInfo("Trace: %s (%s of %s ops)\n\n", t.Name, formatNumber(int64(pl.Pos())), formatNumber(int64(len(t.Ops))))
		s.seg.PrintStats(os.Stdout)
		if statsDump {
			printInfo("\n")
			s.seg.Dump(os.Stdout)
		}
	}
	return nil
}

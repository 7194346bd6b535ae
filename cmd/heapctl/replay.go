package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/liuzc1999/malloc-lab/heap/trace"
	"github.com/liuzc1999/malloc-lab/internal/logger"
)

var (
	replayFlags heapFlags
	replayCheck bool
	replayFast  bool
)

func init() {
	cmd := newReplayCmd()
	replayFlags.register(cmd)
	cmd.Flags().BoolVar(&replayCheck, "check", false, "Run the full heap check after every operation")
	cmd.Flags().BoolVar(&replayFast, "fast", false, "Skip payload pattern verification")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace>...",
		Short: "Replay traces and report utilization and throughput",
		Long: `The replay command runs each trace against a fresh heap, validating
every block returned, and prints one row per trace plus the averages.

Example:
  heapctl replay traces/*.rep
  heapctl replay --config LowPlacement --check short1.rep
  heapctl replay --heap-file heap.img realloc.rep
  heapctl replay --json binary.rep`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), args)
		},
	}
	return cmd
}

// ReplayReport is the JSON form of a replay run.
type ReplayReport struct {
	Allocator      string         `json:"allocator"`
	Results        []trace.Result `json:"results"`
	AvgUtilization float64        `json:"avg_utilization"`
	TotalOps       int            `json:"total_ops"`
	Throughput     float64        `json:"ops_per_sec"`
}

func runReplay(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if replayFlags.heapFile != "" && len(args) > 1 {
		return errors.New("--heap-file takes a single trace")
	}

	report := ReplayReport{}
	var elapsed time.Duration
	for _, path := range args {
		res, name, err := replayOne(ctx, path, &replayFlags, trace.Options{
			Check:        replayCheck,
			SkipPatterns: replayFast,
		})
		if err != nil {
			return err
		}
		report.Allocator = name
		report.Results = append(report.Results, res)
		report.AvgUtilization += res.Utilization
		report.TotalOps += res.Ops
		elapsed += res.Elapsed
	}
	report.AvgUtilization /= float64(len(report.Results))
	if secs := elapsed.Seconds(); secs > 0 {
		report.Throughput = float64(report.TotalOps) / secs
	}

	if jsonOut {
		return printJSON(report)
	}
	printReplayTable(report)
	return nil
}

// replayOne loads path and replays it against a fresh allocator built from
// flags.
func replayOne(ctx context.Context, path string, flags *heapFlags, opts trace.Options) (trace.Result, string, error) {
	t, err := trace.Load(path)
	if err != nil {
		return trace.Result{}, "", err
	}
	printVerbose("Replaying %s (%s ops)\n", t.Name, formatNumber(int64(len(t.Ops))))

	s, err := flags.open()
	if err != nil {
		return trace.Result{}, "", err
	}
	res, err := trace.Replay(ctx, t, s.a, opts)
	if cerr := s.close(ctx); err == nil {
		err = cerr
	}
	if err != nil {
		return res, s.name(), fmt.Errorf("%s: %w", t.Name, err)
	}
	logger.Info("trace replayed", "trace", t.Name, "ops", res.Ops, "util", res.Utilization)
	return res, s.name(), nil
}

func printReplayTable(r ReplayReport) {
	printInfo("Results for %s allocator:\n", r.Allocator)
	printInfo("%-20s %10s %8s %12s %14s\n", "trace", "ops", "util", "heap", "Kops/s")
	printInfo("%s\n", strings.Repeat("-", 68))
	for _, res := range r.Results {
		printInfo("%-20s %10s %7.1f%% %12s %14s\n",
			res.Name,
			formatNumber(int64(res.Ops)),
			100*res.Utilization,
			formatBytes(int64(res.HeapSize)),
			formatFloat(res.Throughput/1000, 0),
		)
	}
	printInfo("%s\n", strings.Repeat("-", 68))
	printInfo("%-20s %10s %7.1f%% %12s %14s\n",
		"Total", formatNumber(int64(r.TotalOps)), 100*r.AvgUtilization, "", formatFloat(r.Throughput/1000, 0))
}

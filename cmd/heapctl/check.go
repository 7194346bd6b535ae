package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/liuzc1999/malloc-lab/heap/trace"
)

var checkFlags heapFlags

func init() {
	cmd := newCheckCmd()
	checkFlags.register(cmd)
	rootCmd.AddCommand(cmd)
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <trace>",
		Short: "Replay a trace with the full heap check after every operation",
		Long: `The check command replays a trace and runs the complete consistency
check (boundary tags, coalescing, free-list membership and order) after every
operation. The first failure is reported with its trace line.

Example:
  heapctl check realloc.rep
  heapctl check --config LowPlacement binary.rep`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), args)
		},
	}
	return cmd
}

// CheckReport is the JSON form of a check run.
type CheckReport struct {
	Trace  string `json:"trace"`
	Ops    int    `json:"ops"`
	OK     bool   `json:"ok"`
	Index  int    `json:"failed_op,omitempty"`
	Line   int    `json:"failed_line,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func runCheck(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, _, err := replayOne(ctx, args[0], &checkFlags, trace.Options{Check: true})
	report := CheckReport{Trace: res.Name, Ops: res.Ops, OK: err == nil}

	var re *trace.ReplayError
	if errors.As(err, &re) {
		report.Index = re.Index
		report.Line = re.Op.Line
		report.Reason = re.Error()
	} else if err != nil {
		return err
	}

	if jsonOut {
		if perr := printJSON(report); perr != nil {
			return perr
		}
		return err
	}
	if err != nil {
		printInfo("FAIL %s at op %d (line %d)\n", args[0], report.Index, report.Line)
		return err
	}
	printInfo("OK %s: %s ops, heap consistent after every operation\n", res.Name, formatNumber(int64(res.Ops)))
	return nil
}

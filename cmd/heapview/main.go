// Command heapview steps through a malloc-lab trace in the terminal, showing
// the heap's block map, free-list buckets and allocator counters after every
// operation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/liuzc1999/malloc-lab/heap/alloc"
	"github.com/liuzc1999/malloc-lab/heap/trace"
	"github.com/liuzc1999/malloc-lab/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Parse flags first (before positional args)
	args := os.Args[1:]
	debugMode := false
	preset := alloc.DefaultConfig.Name

	filteredArgs := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case arg == "--debug" || arg == "-d":
			debugMode = true
		case strings.HasPrefix(arg, "--config="):
			preset = strings.TrimPrefix(arg, "--config=")
		default:
			filteredArgs = append(filteredArgs, arg)
		}
	}

	// Initialize logger (must be before any logging calls)
	if err := logger.Init(logger.Options{
		Enabled: debugMode,
		Prefix:  "heapview-",
		Level:   slog.LevelDebug,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logging: %v\n", err)
	}

	if len(filteredArgs) < 1 {
		printUsage()
		os.Exit(1)
	}

	if filteredArgs[0] == "--help" || filteredArgs[0] == "-h" {
		printHelp()
		os.Exit(0)
	}

	if filteredArgs[0] == "--version" || filteredArgs[0] == "-v" {
		fmt.Printf("heapview %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		os.Exit(0)
	}

	cfg, ok := findConfig(preset)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown config %q\n", preset)
		os.Exit(1)
	}

	tracePath := filteredArgs[0]
	logger.Info("starting heapview", "path", tracePath, "config", cfg.Name, "debug", debugMode)

	t, err := trace.Load(tracePath)
	if err != nil {
		logger.Error("trace load failed", "path", tracePath, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m := NewModel(t, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
	logger.Info("heapview exited normally")
}

func findConfig(name string) (alloc.Config, bool) {
	for _, c := range alloc.AllConfigs() {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return alloc.Config{}, false
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: heapview [options] <trace-file>\n")
	fmt.Fprintf(os.Stderr, "Try 'heapview --help' for more information.\n")
}

func printHelp() {
	fmt.Println("heapview - Step through an allocation trace")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  heapview [options] <trace-file>")
	fmt.Println()
	fmt.Println("  Navigation:")
	fmt.Println("    space/n     Run the next operation")
	fmt.Println("    b/p         Go back one operation")
	fmt.Println("    ]           Run ten operations")
	fmt.Println("    G/End       Run to the end of the trace")
	fmt.Println("    r           Restart")
	fmt.Println("    ↑/↓ k/j     Scroll the block map")
	fmt.Println("    y           Copy the block dump to the clipboard")
	fmt.Println("    ?           Show help")
	fmt.Println("    q           Quit")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --config=NAME  Allocator preset (Default, LargeChunk, LowPlacement)")
	fmt.Println("  -d, --debug    Enable debug logging to ~/.mmlab/logs/")
	fmt.Println("  -h, --help     Show this help message")
	fmt.Println("  -v, --version  Show version information")
	fmt.Println()
	fmt.Println("For batch replays, use the 'heapctl' command instead.")
}

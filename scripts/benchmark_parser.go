// Command benchmark_parser turns `go test -bench` output for the allocator
// packages into a markdown report comparing every configuration preset
// against the Default baseline.
//
//	go test -bench . -benchmem ./heap/... | go run ./scripts -output bench.md
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// baseline is the configuration every other preset is compared against.
const baseline = "Default"

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Operation   string // AllocFree, RandomWorkload, Replay, ...
	Config      string // preset name, empty for config-independent benchmarks
	Case        string // remaining sub-benchmark path, e.g. the request size
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult pairs one preset's result with the baseline for the same case.
type ComparisonResult struct {
	Operation string
	Case      string
	Config    string
	BaseNs    float64
	Ns        float64
	Speedup   float64 // BaseNs / Ns; >1 means faster than the baseline
	Allocs    int64
	Unpaired  bool
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+B/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
)

// procSuffix is the -GOMAXPROCS suffix go test appends to the last name element.
var procSuffix = regexp.MustCompile(`-\d+$`)

func main() {
	flag.Parse()

	var in io.Reader = os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parseBenchmarks(bufio.NewScanner(in))
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	comparisons := generateComparisons(results)
	report := generateMarkdownReport(comparisons, results, time.Now())

	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

// parseBenchmarks reads plain or -json test output.
func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	for scanner.Scan() {
		line := scanner.Text()

		var event struct{ Output string }
		if err := json.Unmarshal([]byte(line), &event); err == nil && event.Output != "" {
			line = event.Output
		}

		// BenchmarkAllocFree/Default/64-8    5000000    231.4 ns/op    0 B/op    0 allocs/op
		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		r := BenchmarkResult{Name: matches[1]}
		r.Iterations, _ = strconv.Atoi(matches[2])
		r.NsPerOp, _ = strconv.ParseFloat(matches[3], 64)
		if matches[4] != "" {
			r.BytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			r.AllocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}

		parts := strings.Split(procSuffix.ReplaceAllString(r.Name, ""), "/")
		r.Operation = strings.TrimPrefix(parts[0], "Benchmark")
		if len(parts) > 1 {
			r.Config = parts[1]
		}
		if len(parts) > 2 {
			r.Case = strings.Join(parts[2:], "/")
		}
		results = append(results, r)
	}

	return results
}

// generateComparisons pairs every non-baseline preset with the baseline
// result for the same operation and case.
func generateComparisons(results []BenchmarkResult) []ComparisonResult {
	type key struct {
		operation string
		cs        string
	}

	grouped := make(map[key]map[string]BenchmarkResult)
	for _, r := range results {
		if r.Config == "" {
			continue
		}
		k := key{r.Operation, r.Case}
		if grouped[k] == nil {
			grouped[k] = make(map[string]BenchmarkResult)
		}
		grouped[k][r.Config] = r
	}

	var comparisons []ComparisonResult
	for k, configs := range grouped {
		base, hasBase := configs[baseline]
		for name, r := range configs {
			if name == baseline {
				continue
			}
			c := ComparisonResult{
				Operation: k.operation,
				Case:      k.cs,
				Config:    name,
				Ns:        r.NsPerOp,
				Allocs:    r.AllocsPerOp,
				Unpaired:  !hasBase,
			}
			if hasBase && r.NsPerOp > 0 {
				c.BaseNs = base.NsPerOp
				c.Speedup = base.NsPerOp / r.NsPerOp
			}
			comparisons = append(comparisons, c)
		}
	}

	sort.Slice(comparisons, func(i, j int) bool {
		a, b := comparisons[i], comparisons[j]
		if a.Operation != b.Operation {
			return a.Operation < b.Operation
		}
		if a.Case != b.Case {
			return caseLess(a.Case, b.Case)
		}
		return a.Config < b.Config
	})

	return comparisons
}

// caseLess orders numeric cases (request sizes) numerically.
func caseLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

func generateMarkdownReport(comparisons []ComparisonResult, results []BenchmarkResult, now time.Time) string {
	p := message.NewPrinter(language.English)
	var sb strings.Builder

	sb.WriteString("# Allocator Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	faster, slower, unpaired := 0, 0, 0
	for _, c := range comparisons {
		switch {
		case c.Unpaired:
			unpaired++
		case c.Speedup > 1.0:
			faster++
		case c.Speedup < 1.0:
			slower++
		}
	}

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Benchmarks parsed**: %d\n", len(results))
	fmt.Fprintf(&sb, "- **Comparisons against %s**: %d\n", baseline, len(comparisons)-unpaired)
	fmt.Fprintf(&sb, "  - faster: %d\n", faster)
	fmt.Fprintf(&sb, "  - slower: %d\n", slower)
	if unpaired > 0 {
		fmt.Fprintf(&sb, "- **Without a %s result**: %d\n", baseline, unpaired)
	}
	sb.WriteString("\n")

	if len(comparisons) > 0 {
		sb.WriteString("## Presets\n\n")
		fmt.Fprintf(&sb, "| Operation | Case | Config | %s (ns/op) | ns/op | Speedup | Allocs |\n", baseline)
		sb.WriteString("|-----------|------|--------|------|-------|---------|--------|\n")
		for _, c := range comparisons {
			cs := c.Case
			if cs == "" {
				cs = "-"
			}
			speedup := "*no baseline*"
			if !c.Unpaired {
				indicator := "✓"
				if c.Speedup < 1.0 {
					indicator = "✗"
				}
				speedup = fmt.Sprintf("%.2fx %s", c.Speedup, indicator)
			}
			sb.WriteString(p.Sprintf("| %s | %s | %s | %s | %s | %s | %d |\n",
				c.Operation, cs, c.Config,
				formatNs(p, c.BaseNs), formatNs(p, c.Ns), speedup, c.Allocs))
		}
		sb.WriteString("\n")
	}

	var single []BenchmarkResult
	for _, r := range results {
		if r.Config == "" {
			single = append(single, r)
		}
	}
	if len(single) > 0 {
		sb.WriteString("## Other Benchmarks\n\n")
		sb.WriteString("| Benchmark | ns/op | Memory | Allocs |\n")
		sb.WriteString("|-----------|-------|--------|--------|\n")
		for _, r := range single {
			sb.WriteString(p.Sprintf("| %s | %s | %s | %d |\n",
				r.Operation, formatNs(p, r.NsPerOp), formatBytes(r.BytesPerOp), r.AllocsPerOp))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Notes\n\n")
	fmt.Fprintf(&sb, "- **Speedup > 1.0**: faster than %s ✓\n", baseline)
	fmt.Fprintf(&sb, "- **Speedup < 1.0**: slower than %s ✗\n", baseline)
	sb.WriteString("- **Allocs**: Go heap allocations per op; the heap itself is preallocated\n")

	return sb.String()
}

func formatNs(p *message.Printer, ns float64) string {
	if ns == 0 {
		return "-"
	}
	if ns >= 100 {
		return p.Sprintf("%.0f", ns)
	}
	return p.Sprintf("%.1f", ns)
}

func formatBytes(b int64) string {
	if b >= 1024*1024 {
		return fmt.Sprintf("%.2fMB", float64(b)/(1024*1024))
	} else if b >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}

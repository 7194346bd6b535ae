package trace

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/liuzc1999/malloc-lab/internal/mmfile"
)

// Kind is the operation code of a trace line.
type Kind byte

const (
	Alloc   Kind = 'a'
	Realloc Kind = 'r'
	Free    Kind = 'f'
)

func (k Kind) String() string {
	switch k {
	case Alloc:
		return "alloc"
	case Realloc:
		return "realloc"
	case Free:
		return "free"
	default:
		return fmt.Sprintf("Kind(%q)", byte(k))
	}
}

// Op is one trace operation. Size is unused for Free.
type Op struct {
	Kind Kind
	ID   int
	Size int
	Line int
}

func (o Op) String() string {
	if o.Kind == Free {
		return fmt.Sprintf("%c %d", o.Kind, o.ID)
	}
	return fmt.Sprintf("%c %d %d", o.Kind, o.ID, o.Size)
}

// Trace is a parsed workload. Header fields are zero when absent.
type Trace struct {
	Name          string
	SuggestedHeap int
	NumIDs        int
	NumOps        int
	Weight        int
	Ops           []Op
}

// MaxID returns the largest id referenced by the trace, or -1.
func (t *Trace) MaxID() int {
	m := -1
	for _, op := range t.Ops {
		m = max(m, op.ID)
	}
	return m
}

// ParseError reports a malformed trace line.
type ParseError struct {
	Name string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("trace: line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("trace %s: line %d: %s", e.Name, e.Line, e.Msg)
}

// Parse reads a trace from r.
func Parse(r io.Reader) (*Trace, error) {
	return parse("", r)
}

// ParseBytes parses an in-memory trace.
func ParseBytes(name string, data []byte) (*Trace, error) {
	return parse(name, bytes.NewReader(data))
}

// Load maps the file at path and parses it. The trace is named after the
// file's base name.
func Load(path string) (*Trace, error) {
	f, err := mmfile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	defer f.Close()
	return ParseBytes(filepath.Base(path), f.Data)
}

func parse(name string, r io.Reader) (*Trace, error) {
	t := &Trace{Name: name}
	header := []*int{&t.SuggestedHeap, &t.NumIDs, &t.NumOps, &t.Weight}
	inHeader := true

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)
		fail := func(format string, args ...any) error {
			return &ParseError{Name: name, Line: line, Msg: fmt.Sprintf(format, args...)}
		}

		if inHeader && len(fields) == 1 {
			if v, err := strconv.Atoi(fields[0]); err == nil {
				if len(header) == 0 {
					return nil, fail("more than four header values")
				}
				if v < 0 {
					return nil, fail("negative header value %d", v)
				}
				*header[0] = v
				header = header[1:]
				continue
			}
		}
		inHeader = false

		op, err := parseOp(fields)
		if err != nil {
			return nil, fail("%v", err)
		}
		op.Line = line
		t.Ops = append(t.Ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("trace: read: %w", err)
	}

	if t.NumOps > 0 && t.NumOps != len(t.Ops) {
		return nil, &ParseError{Name: name, Line: line, Msg: fmt.Sprintf("header declares %d ops, found %d", t.NumOps, len(t.Ops))}
	}
	if t.NumIDs > 0 && t.MaxID() >= t.NumIDs {
		return nil, &ParseError{Name: name, Line: line, Msg: fmt.Sprintf("id %d outside the declared %d ids", t.MaxID(), t.NumIDs)}
	}
	return t, nil
}

func parseOp(fields []string) (Op, error) {
	if len(fields[0]) != 1 {
		return Op{}, fmt.Errorf("unknown operation %q", fields[0])
	}
	op := Op{Kind: Kind(fields[0][0])}

	want := 3
	switch op.Kind {
	case Alloc, Realloc:
	case Free:
		want = 2
	default:
		return Op{}, fmt.Errorf("unknown operation %q", fields[0])
	}
	if len(fields) != want {
		return Op{}, fmt.Errorf("%s takes %d fields, got %d", op.Kind, want-1, len(fields)-1)
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil || id < 0 {
		return Op{}, fmt.Errorf("bad id %q", fields[1])
	}
	op.ID = id

	if want == 3 {
		size, err := strconv.Atoi(fields[2])
		if err != nil || size < 0 {
			return Op{}, fmt.Errorf("bad size %q", fields[2])
		}
		op.Size = size
	}
	return op, nil
}

// Format writes t in the trace format, header first.
func Format(w io.Writer, t *Trace) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%d\n%d\n%d\n", t.SuggestedHeap, max(t.NumIDs, t.MaxID()+1), len(t.Ops), t.Weight)
	for _, op := range t.Ops {
		fmt.Fprintln(bw, op.String())
	}
	return bw.Flush()
}

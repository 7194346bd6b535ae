package main

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/liuzc1999/malloc-lab/heap"
	"github.com/liuzc1999/malloc-lab/heap/alloc"
	"github.com/liuzc1999/malloc-lab/heap/trace"
	"github.com/liuzc1999/malloc-lab/internal/logger"
)

const (
	sidebarWidth = 36
	chromeHeight = 6 // header, bar, status and borders
)

// Model is the top-level bubbletea model.
type Model struct {
	trace *trace.Trace
	cfg   alloc.Config

	a      *alloc.SegAllocator
	player *trace.Player

	viewport viewport.Model
	keys     KeyMap
	width    int
	height   int

	showHelp bool
	lastOp   *trace.Op
	stepErr  error // replay failure; stepping stops here
	err      error // fatal: the heap could not be built
	status   string

	copyFn func(string) error
}

// NewModel builds a model positioned before the first op of t.
func NewModel(t *trace.Trace, cfg alloc.Config) Model {
	m := Model{
		trace:    t,
		cfg:      cfg,
		keys:     DefaultKeyMap(),
		viewport: viewport.New(80, 20),
		copyFn:   clipboard.WriteAll,
	}
	m.restart()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// restart discards the heap and rebuilds it from scratch.
func (m *Model) restart() {
	cfg := m.cfg
	cfg.Logger = logger.L
	a, err := alloc.New(heap.NewMemory(heap.DefaultMax), nil, &cfg)
	if err != nil {
		m.err = err
		return
	}
	m.a = a
	m.player = trace.NewPlayer(m.trace, a, trace.Options{})
	m.lastOp = nil
	m.stepErr = nil
	m.refresh()
}

// run executes up to n ops, stopping at the first failure.
func (m *Model) run(n int) {
	for i := 0; i < n && m.canStep(); i++ {
		op, err := m.player.Step()
		m.lastOp = &op
		if err != nil {
			m.stepErr = err
			logger.Warn("replay stopped", "op", m.player.Pos()-1, "error", err)
			break
		}
	}
	m.refresh()
}

// seek replays from the start up to position pos.
func (m *Model) seek(pos int) {
	m.restart()
	if m.err == nil {
		m.run(max(pos, 0))
	}
}

func (m *Model) canStep() bool {
	return m.err == nil && m.stepErr == nil && !m.player.Done()
}

// Pos returns the number of ops executed.
func (m Model) Pos() int {
	if m.player == nil {
		return 0
	}
	return m.player.Pos()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderBlocks())
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width = max(width-sidebarWidth-4, 20)
	m.viewport.Height = max(height-chromeHeight, 3)
	m.refresh()
}

// dump renders the text dump used by the copy command.
func (m Model) dump() string {
	var b strings.Builder
	m.a.Dump(&b)
	return b.String()
}

// Update handles incoming messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if key.Matches(msg, m.keys.Help, m.keys.Esc) {
				m.showHelp = false
			} else if key.Matches(msg, m.keys.Quit) {
				return m, tea.Quit
			}
			return m, nil
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.err != nil {
		return m, nil
	}
	m.status = ""

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Step):
		m.run(1)
	case key.Matches(msg, m.keys.Step10):
		m.run(10)
	case key.Matches(msg, m.keys.RunAll):
		m.run(len(m.trace.Ops))
	case key.Matches(msg, m.keys.Back):
		if m.Pos() > 0 {
			m.seek(m.Pos() - 1)
		}
	case key.Matches(msg, m.keys.Restart):
		m.restart()
	case key.Matches(msg, m.keys.Copy):
		if err := m.copyFn(m.dump()); err != nil {
			m.status = "copy failed: " + err.Error()
			logger.Warn("clipboard write failed", "error", err)
		} else {
			m.status = "block dump copied to clipboard"
		}
	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
	}
	return m, nil
}

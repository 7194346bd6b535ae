package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/liuzc1999/malloc-lab/heap/alloc"
	"github.com/liuzc1999/malloc-lab/heap/trace"
)

// TestHelper drives a Model with synthetic messages
type TestHelper struct {
	model Model
	cmd   tea.Cmd
}

// NewTestHelper creates a test helper with a model positioned before the first op
func NewTestHelper(t *trace.Trace, cfg alloc.Config) *TestHelper {
	return &TestHelper{model: NewModel(t, cfg)}
}

// SendKey simulates a special key press
func (h *TestHelper) SendKey(keyType tea.KeyType) *TestHelper {
	return h.send(tea.KeyMsg{Type: keyType})
}

// SendKeyRune simulates a character key press
func (h *TestHelper) SendKeyRune(r rune) *TestHelper {
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

// SendWindowSize simulates a window resize
func (h *TestHelper) SendWindowSize(width, height int) *TestHelper {
	return h.send(tea.WindowSizeMsg{Width: width, Height: height})
}

// GetModel returns the current model
func (h *TestHelper) GetModel() Model {
	return h.model
}

// LastCmd returns the command produced by the most recent message
func (h *TestHelper) LastCmd() tea.Cmd {
	return h.cmd
}

func (h *TestHelper) send(msg tea.Msg) *TestHelper {
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	h.cmd = cmd
	return h
}

package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuzc1999/malloc-lab/heap/alloc"
	"github.com/liuzc1999/malloc-lab/heap/trace"
)

const smallTrace = `0
2
4
1
a 0 100
a 1 8
f 0
f 1
`

func parse(t *testing.T, src string) *trace.Trace {
	t.Helper()
	tr, err := trace.ParseBytes("small.rep", []byte(src))
	require.NoError(t, err)
	return tr
}

func newHelper(t *testing.T) *TestHelper {
	t.Helper()
	h := NewTestHelper(parse(t, smallTrace), alloc.DefaultConfig)
	require.NoError(t, h.GetModel().err)
	return h.SendWindowSize(120, 40)
}

func TestNewModel(t *testing.T) {
	h := newHelper(t)
	m := h.GetModel()

	assert.Equal(t, 0, m.Pos())
	assert.Nil(t, m.lastOp)
	assert.Equal(t, 48, len(m.a.Bytes()))
	assert.Contains(t, m.renderBlocks(), "free")

	view := m.View()
	assert.Contains(t, view, "small.rep")
	assert.Contains(t, view, "op 0/4")
	assert.Contains(t, view, "(not started)")
}

func TestModel_Step(t *testing.T) {
	h := newHelper(t)
	h.SendKeyRune(' ')

	m := h.GetModel()
	require.Equal(t, 1, m.Pos())
	require.NotNil(t, m.lastOp)
	assert.Equal(t, trace.Alloc, m.lastOp.Kind)

	p, size, ok := m.player.Lookup(0)
	require.True(t, ok)
	assert.Equal(t, alloc.Ptr(960), p)
	assert.Equal(t, 100, size)

	blocks := m.renderBlocks()
	assert.Contains(t, blocks, "used <")
	assert.Contains(t, blocks, "0x000003C0")
	assert.Contains(t, m.View(), "a 0 100")
}

func TestModel_StepKeys(t *testing.T) {
	h := newHelper(t)
	h.SendKeyRune('n').SendKey(tea.KeyRight)
	assert.Equal(t, 2, h.GetModel().Pos())

	h.SendKey(tea.KeyLeft)
	assert.Equal(t, 1, h.GetModel().Pos())
}

func TestModel_Back(t *testing.T) {
	h := newHelper(t)
	h.SendKeyRune(' ').SendKeyRune(' ').SendKeyRune(' ')
	require.Equal(t, 3, h.GetModel().Pos())

	h.SendKeyRune('b')
	m := h.GetModel()
	assert.Equal(t, 2, m.Pos())
	assert.Equal(t, 2, m.player.LiveBlocks())
	require.NotNil(t, m.lastOp)
	assert.Equal(t, "a 1 8", m.lastOp.String())
}

func TestModel_BackAtStart(t *testing.T) {
	h := newHelper(t)
	h.SendKeyRune('b')
	assert.Equal(t, 0, h.GetModel().Pos())
	assert.NoError(t, h.GetModel().stepErr)
}

func TestModel_RunAll(t *testing.T) {
	h := newHelper(t)
	h.SendKeyRune('G')

	m := h.GetModel()
	assert.Equal(t, 4, m.Pos())
	assert.True(t, m.player.Done())
	assert.Zero(t, m.player.LiveBlocks())
	assert.Contains(t, m.renderStatus(), "end of trace")

	// stepping past the end is a no-op
	h.SendKeyRune(' ')
	assert.Equal(t, 4, h.GetModel().Pos())
}

func TestModel_Step10(t *testing.T) {
	h := newHelper(t)
	h.SendKeyRune(']')
	assert.Equal(t, 4, h.GetModel().Pos())
}

func TestModel_Restart(t *testing.T) {
	h := newHelper(t)
	h.SendKeyRune('G').SendKeyRune('r')

	m := h.GetModel()
	assert.Equal(t, 0, m.Pos())
	assert.Nil(t, m.lastOp)
	assert.Equal(t, 48, len(m.a.Bytes()))
}

func TestModel_Sidebar(t *testing.T) {
	h := newHelper(t)
	h.SendKeyRune(' ')

	side := h.GetModel().renderSidebar()
	assert.Contains(t, side, "size      1072")
	assert.Contains(t, side, "live ids  1 (100 B)")
	assert.Contains(t, side, "[ 9] 512-1023")
	assert.Contains(t, side, "extend    2")
}

func TestModel_Bar(t *testing.T) {
	h := newHelper(t)
	h.SendKeyRune(' ')

	bar := h.GetModel().renderBar(40)
	assert.Contains(t, bar, "#")
	assert.Contains(t, bar, ".")
	assert.Empty(t, h.GetModel().renderBar(0))
}

func TestModel_Help(t *testing.T) {
	h := newHelper(t)
	h.SendKeyRune('?')
	require.True(t, h.GetModel().showHelp)
	assert.Contains(t, h.GetModel().View(), "Keyboard Shortcuts")

	// steps are ignored while help is open
	h.SendKeyRune(' ')
	assert.Equal(t, 0, h.GetModel().Pos())

	h.SendKey(tea.KeyEsc)
	assert.False(t, h.GetModel().showHelp)
	assert.NotContains(t, h.GetModel().View(), "Keyboard Shortcuts")
}

func TestModel_Copy(t *testing.T) {
	h := newHelper(t)
	var copied string
	h.model.copyFn = func(s string) error {
		copied = s
		return nil
	}

	h.SendKeyRune(' ').SendKeyRune('y')
	assert.Contains(t, copied, "heap [0x0, 0x430) 1072 bytes")
	assert.Equal(t, "block dump copied to clipboard", h.GetModel().status)

	// any other key clears the status
	h.SendKeyRune(' ')
	assert.Empty(t, h.GetModel().status)
}

func TestModel_CopyFailure(t *testing.T) {
	h := newHelper(t)
	h.model.copyFn = func(string) error { return errors.New("no display") }

	h.SendKeyRune('y')
	assert.Equal(t, "copy failed: no display", h.GetModel().status)
	assert.Contains(t, h.GetModel().View(), "copy failed")
}

func TestModel_StepError(t *testing.T) {
	src := "0\n1\n3\n1\na 0 8\na 0 8\nf 0\n"
	h := NewTestHelper(parse(t, src), alloc.DefaultConfig).SendWindowSize(120, 40)

	h.SendKeyRune('G')
	m := h.GetModel()
	require.Error(t, m.stepErr)
	assert.Contains(t, m.stepErr.Error(), "already live")
	assert.Equal(t, 2, m.Pos())
	assert.Contains(t, m.View(), "replay stopped")

	// stepping stays stuck until the replay is restarted
	h.SendKeyRune(' ')
	assert.Equal(t, 2, h.GetModel().Pos())

	h.SendKeyRune('r')
	assert.NoError(t, h.GetModel().stepErr)
	assert.Equal(t, 0, h.GetModel().Pos())
}

func TestModel_Quit(t *testing.T) {
	h := newHelper(t)
	h.SendKeyRune('q')
	require.NotNil(t, h.LastCmd())
	assert.Equal(t, tea.QuitMsg{}, h.LastCmd()())
}

func TestModel_Resize(t *testing.T) {
	h := newHelper(t)
	h.SendWindowSize(100, 30)

	m := h.GetModel()
	assert.Equal(t, 100-sidebarWidth-4, m.viewport.Width)
	assert.Equal(t, 30-chromeHeight, m.viewport.Height)

	h.SendWindowSize(10, 2)
	assert.Equal(t, 20, h.GetModel().viewport.Width)
	assert.Equal(t, 3, h.GetModel().viewport.Height)
	assert.True(t, strings.Contains(h.GetModel().View(), "Heap Viewer"))
}

package main

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"github.com/liuzc1999/malloc-lab/heap/alloc"
	"github.com/liuzc1999/malloc-lab/heap/verify"
	"github.com/liuzc1999/malloc-lab/internal/format"
)

// View renders the entire UI
func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.showHelp {
		// Recreated each render: Update returns new models, so stored
		// pointers would be stale.
		help := overlay.New(
			helpModel{keys: m.keys},
			&mainView{model: &m},
			overlay.Center,
			overlay.Center,
			0,
			0,
		)
		return help.View()
	}
	return m.renderMain()
}

func (m Model) renderMain() string {
	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		paneStyle.Render(m.viewport.View()),
		paneStyle.Width(sidebarWidth).Render(m.renderSidebar()),
	)
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderBar(max(m.width-2, 20)),
		content,
		m.renderStatus(),
	)
}

// renderHeader shows the trace, progress and the last op
func (m Model) renderHeader() string {
	title := headerStyle.Render("Heap Viewer")
	info := pathStyle.Render(fmt.Sprintf("%s [%s]  op %d/%d",
		m.trace.Name, m.cfg.Name, m.Pos(), len(m.trace.Ops)))

	last := mutedStyle.Render("  (not started)")
	if m.lastOp != nil {
		last = "  last: " + touchedStyle.Render(m.lastOp.String())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", info, last)
}

// renderBar draws the heap as one line, each cell covering an equal share
// of the address space: '#' mostly allocated, '.' mostly free.
func (m Model) renderBar(width int) string {
	b := m.a.Bytes()
	if len(b) == 0 || width <= 0 {
		return ""
	}
	used := make([]int, width)
	total := make([]int, width)
	scale := float64(width) / float64(len(b))
	_ = verify.Walk(b, func(blk verify.Block) error {
		lo := int(float64(int(blk.Offset)-format.WordSize) * scale)
		hi := int(float64(int(blk.Offset)+int(blk.Size)-format.WordSize) * scale)
		for c := lo; c <= min(hi, width-1); c++ {
			total[c]++
			if blk.Allocated {
				used[c]++
			}
		}
		return nil
	})

	var sb strings.Builder
	for c := range width {
		switch {
		case total[c] == 0:
			sb.WriteString(mutedStyle.Render(" "))
		case 2*used[c] >= total[c]:
			sb.WriteString(usedStyle.Render("#"))
		default:
			sb.WriteString(freeStyle.Render("."))
		}
	}
	return sb.String()
}

// renderBlocks lists every block; the block of the last op is highlighted.
func (m Model) renderBlocks() string {
	if m.a == nil {
		return ""
	}
	touched := alloc.Nil
	if m.lastOp != nil {
		if p, _, ok := m.player.Lookup(m.lastOp.ID); ok {
			touched = p
		}
	}

	var sb strings.Builder
	it := m.a.Blocks()
	for {
		blk, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			sb.WriteString(errorStyle.Render(err.Error()))
			break
		}
		line := fmt.Sprintf("0x%08X %8d", blk.Offset, blk.Size)
		switch {
		case blk.Offset == touched:
			sb.WriteString(touchedStyle.Render(line + "  used <"))
		case blk.Allocated:
			sb.WriteString(usedStyle.Render(line + "  used"))
		default:
			sb.WriteString(freeStyle.Render(line + "  free"))
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// renderSidebar shows bucket occupancy and counters
func (m Model) renderSidebar() string {
	u := m.a.Usage()
	s := m.a.Stats()

	var sb strings.Builder
	sb.WriteString(sectionStyle.Render("Heap"))
	fmt.Fprintf(&sb, "\nsize      %d\n", u.HeapSize)
	fmt.Fprintf(&sb, "used      %d blocks, %d B\n", u.AllocatedBlocks, u.AllocatedBytes)
	fmt.Fprintf(&sb, "free      %d blocks, %d B\n", u.FreeBlocks, u.FreeBytes)
	fmt.Fprintf(&sb, "largest   %d\n", u.LargestFree)
	fmt.Fprintf(&sb, "frag      %.1f%%\n", 100*u.Fragmentation())
	fmt.Fprintf(&sb, "live ids  %d (%d B)\n\n", m.player.LiveBlocks(), m.player.LivePayload())

	sb.WriteString(sectionStyle.Render("Buckets"))
	sb.WriteByte('\n')
	empty := true
	for idx, bu := range u.Buckets {
		if bu.Blocks == 0 {
			continue
		}
		empty = false
		lo, hi := alloc.BucketRange(idx)
		rng := fmt.Sprintf("%d-%d", lo, hi)
		if hi < 0 {
			rng = fmt.Sprintf("%d+", lo)
		}
		fmt.Fprintf(&sb, "[%2d] %-12s %4d\n", idx, rng, bu.Blocks)
	}
	if empty {
		sb.WriteString(mutedStyle.Render("(no free blocks)"))
		sb.WriteByte('\n')
	}

	sb.WriteByte('\n')
	sb.WriteString(sectionStyle.Render("Counters"))
	fmt.Fprintf(&sb, "\nalloc     %d (slow %d)\n", s.AllocCalls, s.AllocSlowPath)
	fmt.Fprintf(&sb, "free      %d\n", s.FreeCalls)
	fmt.Fprintf(&sb, "realloc   %d (move %d)\n", s.ReallocCalls, s.ReallocMove)
	fmt.Fprintf(&sb, "extend    %d\n", s.ExtendCalls)
	fmt.Fprintf(&sb, "coalesce  %d\n", s.CoalesceForward+s.CoalesceBackward)
	return sb.String()
}

// renderStatus shows replay errors, command feedback and key hints
func (m Model) renderStatus() string {
	switch {
	case m.stepErr != nil:
		return errorStyle.Render("replay stopped: " + m.stepErr.Error())
	case m.status != "":
		return statusStyle.Render(m.status)
	case m.player.Done():
		return statusStyle.Render("end of trace  " + helpStyle.Render("r: restart │ b: back │ q: quit"))
	}
	return statusStyle.Render(helpStyle.Render("space: step │ ]: x10 │ G: run all │ b: back │ y: copy │ ?: help │ q: quit"))
}

// helpModel is the foreground of the help overlay.
type helpModel struct {
	keys KeyMap
}

func (h helpModel) Init() tea.Cmd { return nil }

func (h helpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { return h, nil }

func (h helpModel) View() string {
	var sb strings.Builder
	sb.WriteString(sectionStyle.Render("Keyboard Shortcuts"))
	sb.WriteString("\n\n")
	for _, b := range []struct {
		keys, desc string
	}{
		{h.keys.Step.Help().Key, "run the next operation"},
		{h.keys.Back.Help().Key, "go back one operation"},
		{h.keys.Step10.Help().Key, "run ten operations"},
		{h.keys.RunAll.Help().Key, "run to the end"},
		{h.keys.Restart.Help().Key, "restart from an empty heap"},
		{"↑/↓ pgup/pgdn", "scroll the block map"},
		{h.keys.Copy.Help().Key, "copy the block dump"},
		{"?/esc", "close this help"},
		{h.keys.Quit.Help().Key, "quit"},
	} {
		sb.WriteString(helpKeyStyle.Width(14).Render(b.keys))
		sb.WriteString("  ")
		sb.WriteString(helpDescStyle.Render(b.desc))
		sb.WriteByte('\n')
	}
	return helpBoxStyle.Render(strings.TrimSuffix(sb.String(), "\n"))
}

// mainView wraps the main UI as the overlay background.
type mainView struct {
	model *Model
}

func (v *mainView) Init() tea.Cmd { return nil }

func (v *mainView) Update(msg tea.Msg) (tea.Model, tea.Cmd) { return v, nil }

func (v *mainView) View() string { return v.model.renderMain() }

package tui

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/codeweave/internal/session"
)

var choices = []session.Decision{session.Keep, session.Rerun, session.Reset}

var choiceLabels = map[session.Decision]string{
	session.Keep:  "Keep",
	session.Rerun: "Rerun",
	session.Reset: "Reset",
}

// PickerModel shows the generated change and asks what to do with it.
type PickerModel struct {
	preview  session.Preview
	lines    []Line
	cursor   int
	chosen   bool
	closed   bool
	viewport viewport.Model
	width    int
	height   int
	ready    bool
}

// NewPicker returns a picker for p with Keep highlighted.
func NewPicker(p session.Preview) PickerModel {
	return PickerModel{
		preview: p,
		lines:   LineDiff(p.Original, p.Generated),
	}
}

func (m PickerModel) Init() tea.Cmd { return nil }

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.closed = true
			return m, tea.Quit
		case "tab", "l", "right":
			m.cursor = (m.cursor + 1) % len(choices)
			return m, nil
		case "shift+tab", "h", "left":
			m.cursor = (m.cursor - 1 + len(choices)) % len(choices)
			return m, nil
		case "1", "2", "3":
			m.cursor = int(msg.String()[0] - '1')
			return m, nil
		case "enter":
			m.chosen = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		// title(1) + choices(1) + statusBar(1) = 3 fixed rows
		m.viewport = viewport.New(m.width, max(m.height-3, 1))
		m.viewport.SetContent(m.renderBody())
		return m, nil
	}
	return m, nil
}

func (m PickerModel) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render(fmt.Sprintf("  codeweave  %s  (attempt %d)", filepath.Base(m.preview.FileName), m.preview.Attempt))

	var parts []string
	for i, d := range choices {
		label := fmt.Sprintf(" %d %s ", i+1, choiceLabels[d])
		if i == m.cursor {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
		if i < len(choices)-1 {
			parts = append(parts, tabSepStyle.Render("│"))
		}
	}
	choiceRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))

	hint := "  ←/→ choose  ↑/↓ scroll  enter confirm  q close"
	pct := fmt.Sprintf("%3.0f%%", m.viewport.ScrollPercent()*100)
	pad := max(m.width-lipgloss.Width(hint)-len(pct)-2, 1)
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + pct)

	return lipgloss.JoinVertical(lipgloss.Left, title, choiceRow, m.viewport.View(), statusBar)
}

func (m PickerModel) renderBody() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Generated %s", m.preview.Range)))
	sb.WriteString(renderDiff(m.lines, m.width))
	return sb.String()
}

// Decision returns the confirmed choice. ok is false when the picker was
// closed without one.
func (m PickerModel) Decision() (d session.Decision, ok bool) {
	if !m.chosen {
		return 0, false
	}
	return choices[m.cursor], true
}

// Picker asks for decisions with a full-screen PickerModel. Nil In and Out
// use the process terminal.
type Picker struct {
	In  io.Reader
	Out io.Writer
}

func (p Picker) Pick(ctx context.Context, preview session.Preview) (session.Decision, bool, error) {
	final, err := run(ctx, NewPicker(preview), p.In, p.Out, true)
	if err != nil {
		return 0, false, err
	}
	d, ok := final.(PickerModel).Decision()
	return d, ok, nil
}

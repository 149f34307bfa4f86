package tui

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fakeyudi/codeweave/internal/session"
)

const (
	fieldPrompt = iota
	fieldImage
	fieldCount
)

// maxPreviewLines caps the selected text shown above the prompt.
const maxPreviewLines = 6

// PromptModel asks for the generation prompt and an optional image path.
type PromptModel struct {
	fileName  string
	selected  string
	inputs    [fieldCount]textinput.Model
	focus     int
	err       string
	done      bool
	cancelled bool
	width     int
}

// NewPrompt returns a prompt model for req.
func NewPrompt(req session.InputRequest) PromptModel {
	p := textinput.New()
	p.Placeholder = "Enter your prompt"
	p.CharLimit = 4000
	p.Focus()

	img := textinput.New()
	img.Placeholder = "Optional path to an image"
	img.CharLimit = 1024

	return PromptModel{
		fileName: filepath.Base(req.FileName),
		selected: req.SelectedText,
		inputs:   [fieldCount]textinput.Model{p, img},
	}
}

func (m PromptModel) Init() tea.Cmd { return textinput.Blink }

func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "tab", "shift+tab", "up", "down":
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + 1) % fieldCount
			return m, m.inputs[m.focus].Focus()
		case "enter":
			if strings.TrimSpace(m.inputs[fieldPrompt].Value()) == "" {
				m.err = "Prompt cannot be empty"
				m.inputs[m.focus].Blur()
				m.focus = fieldPrompt
				return m, m.inputs[fieldPrompt].Focus()
			}
			m.done = true
			return m, tea.Quit
		}
		m.err = ""
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m PromptModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	var sb strings.Builder
	title := titleStyle.Render("  codeweave  " + m.fileName)
	if m.width > 0 {
		title = titleStyle.Width(m.width).Render("  codeweave  " + m.fileName)
	}
	sb.WriteString(title + "\n")

	if m.selected != "" {
		sb.WriteString(heading("Selection"))
		lines := strings.Split(m.selected, "\n")
		if len(lines) > maxPreviewLines {
			lines = append(lines[:maxPreviewLines], "…")
		}
		sb.WriteString(dimStyle.Render(indent(strings.Join(lines, "\n"), "    ")) + "\n")
	}

	sb.WriteString("\n" + labelStyle.Render("  Prompt") + "\n  " + m.inputs[fieldPrompt].View() + "\n")
	sb.WriteString("\n" + labelStyle.Render("  Image") + "\n  " + m.inputs[fieldImage].View() + "\n")
	if m.err != "" {
		sb.WriteString("\n  " + errorStyle.Render(m.err) + "\n")
	}
	sb.WriteString("\n" + hintStyle.Render("  enter generate  tab switch field  esc cancel") + "\n")
	return sb.String()
}

// Result returns the submitted input, or nil if the prompt was cancelled.
func (m PromptModel) Result() *session.Input {
	if !m.done {
		return nil
	}
	return &session.Input{
		Prompt:    strings.TrimSpace(m.inputs[fieldPrompt].Value()),
		ImagePath: strings.TrimSpace(m.inputs[fieldImage].Value()),
	}
}

// Prompter collects input with a PromptModel. Nil In and Out use the
// process terminal.
type Prompter struct {
	In  io.Reader
	Out io.Writer
}

func (p Prompter) Collect(ctx context.Context, req session.InputRequest) (*session.Input, error) {
	final, err := run(ctx, NewPrompt(req), p.In, p.Out, false)
	if err != nil {
		return nil, err
	}
	return final.(PromptModel).Result(), nil
}

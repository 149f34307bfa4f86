package tui

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineKind classifies a line of a line diff.
type LineKind int

const (
	LineSame LineKind = iota
	LineAdded
	LineRemoved
)

// Line is one line of a line diff, without its newline.
type Line struct {
	Kind LineKind
	Text string
}

// LineDiff compares before and after line by line.
func LineDiff(before, after string) []Line {
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table)

	var out []Line
	for _, d := range diffs {
		kind := LineSame
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = LineAdded
		case diffmatchpatch.DiffDelete:
			kind = LineRemoved
		}
		for _, text := range splitLines(d.Text) {
			out = append(out, Line{Kind: kind, Text: text})
		}
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// Stats counts added and removed lines.
func Stats(lines []Line) (added, removed int) {
	for _, l := range lines {
		switch l.Kind {
		case LineAdded:
			added++
		case LineRemoved:
			removed++
		}
	}
	return added, removed
}

// PlainDiff renders a line diff with "+ ", "- " and "  " prefixes and no
// styling, for non-interactive output.
func PlainDiff(before, after string) string {
	var sb strings.Builder
	for _, l := range LineDiff(before, after) {
		sb.WriteString(prefix(l.Kind) + l.Text + "\n")
	}
	return sb.String()
}

func prefix(k LineKind) string {
	switch k {
	case LineAdded:
		return "+ "
	case LineRemoved:
		return "- "
	}
	return "  "
}

// renderDiff colorises a line diff between two rules of the given width.
func renderDiff(lines []Line, width int) string {
	var sb strings.Builder
	border := dimStyle.Render("  " + strings.Repeat("─", max(width-4, 1)))
	sb.WriteString(border + "\n")
	if len(lines) == 0 {
		sb.WriteString(diffMetaStyle.Render("  (no changes)") + "\n")
	}
	for _, l := range lines {
		text := "  " + prefix(l.Kind) + l.Text
		switch l.Kind {
		case LineAdded:
			sb.WriteString(diffAddStyle.Render(text))
		case LineRemoved:
			sb.WriteString(diffDelStyle.Render(text))
		default:
			sb.WriteString(dimStyle.Render(text))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(border + "\n")
	added, removed := Stats(lines)
	sb.WriteString(diffMetaStyle.Render(fmt.Sprintf("  +%d -%d", added, removed)) + "\n")
	return sb.String()
}

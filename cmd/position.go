package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codeweave/internal/document"
)

// position is the caret or selection given on the command line.
type position struct {
	at   int
	line int
	col  int
	sel  string
}

func (p *position) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&p.at, "at", -1, "byte offset of the caret")
	f.IntVar(&p.line, "line", 0, "1-based line of the caret")
	f.IntVar(&p.col, "col", 1, "1-based column of the caret (with --line)")
	f.StringVar(&p.sel, "select", "", "byte range START:END to replace")
	cmd.MarkFlagsMutuallyExclusive("at", "line", "select")
}

// resolve returns the selection within text. With no flags the caret is at
// the end of the document.
func (p *position) resolve(text string) (document.Range, error) {
	var r document.Range
	switch {
	case p.sel != "":
		startStr, endStr, ok := strings.Cut(p.sel, ":")
		if !ok {
			return r, fmt.Errorf("invalid --select %q: want START:END", p.sel)
		}
		start, err := strconv.Atoi(startStr)
		if err != nil {
			return r, fmt.Errorf("invalid --select start: %w", err)
		}
		end, err := strconv.Atoi(endStr)
		if err != nil {
			return r, fmt.Errorf("invalid --select end: %w", err)
		}
		r = document.Range{Start: start, End: end}
	case p.line > 0:
		off, err := document.OffsetAt(text, p.line, p.col)
		if err != nil {
			return r, err
		}
		r = document.Caret(off)
	case p.at >= 0:
		r = document.Caret(p.at)
	default:
		r = document.Caret(len(text))
	}
	if r.Start < 0 || r.End < r.Start || r.End > len(text) {
		return r, fmt.Errorf("%w: %s outside document of %d bytes", document.ErrInvalidRange, r, len(text))
	}
	return r, nil
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codeweave/internal/prompt"
)

func (a *app) viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <file>",
		Short: "Summarise a context file written by 'codeweave context'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			data, err := os.ReadFile(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file not found: %s", path)
				}
				return err
			}

			c, err := prompt.Parse(data)
			if err != nil {
				return err
			}
			printContext(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

// printContext writes a plain-text summary of c to w.
func printContext(w io.Writer, c *prompt.Context) {
	fmt.Fprintln(w, "## Summary")
	fmt.Fprintf(w, "  File:      %s\n", c.FileName)
	fmt.Fprintf(w, "  Language:  %s\n", c.Language)
	if c.SelectedText == "" {
		fmt.Fprintln(w, "  Selection: (caret)")
	} else {
		fmt.Fprintf(w, "  Selection: %d bytes\n", len(c.SelectedText))
	}
	fmt.Fprintf(w, "  Tokens:    %d\n", prompt.CountTokens(prompt.System(c)))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Imports")
	if len(c.Imports) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, ref := range c.Imports {
		fmt.Fprintf(w, "  %s  ← %s\n", ref.Module, strings.Join(ref.Names, ", "))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Definitions")
	if len(c.Matches) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, m := range c.Matches {
		fmt.Fprintf(w, "  %s  %s\n", m.Symbol, m.Path)
		fmt.Fprintln(w, indent(m.Snippet, "      "))
	}
	fmt.Fprintln(w)

	if len(c.Warnings) > 0 {
		fmt.Fprintln(w, "## Warnings")
		for _, warn := range c.Warnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
		fmt.Fprintln(w)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

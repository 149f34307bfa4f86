package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codeweave/internal/prompt"
)

func (a *app) contextCmd() *cobra.Command {
	var (
		pos    position
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "context <file>",
		Short: "Print the context that would be sent with a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := prompt.RendererFor(format)
			if err != nil {
				return err
			}
			if err := a.useRoot(cmd, args[0]); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("open document: %w", err)
			}
			text := string(data)
			sel, err := pos.resolve(text)
			if err != nil {
				return err
			}

			builder, err := a.contextBuilder(a.cfg)
			if err != nil {
				return err
			}
			c, err := builder.Collect(cmd.Context(), prompt.Snapshot{Path: args[0], Text: text, Selection: sel})
			if err != nil {
				return err
			}
			out, err := renderer.Render(c)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("failed to write context: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Context written to %s (%d tokens, %d definitions)\n",
				output, prompt.CountTokens(prompt.System(c)), len(c.Matches))
			return nil
		},
	}
	pos.bind(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: markdown or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

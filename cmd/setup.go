package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codeweave/internal/config"
)

func (a *app) setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Configure codeweave (re-run anytime to edit settings)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd)
		},
	}
}

// runSetup runs the settings wizard on the command's input and output and
// saves the result as the global config.
func runSetup(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	// The current global config (or defaults) seeds every answer.
	existing, err := config.LoadGlobal()
	if err != nil {
		return fmt.Errorf("loading global config: %w", err)
	}

	cfg, err := config.RunSetup(cmd.InOrStdin(), out, existing)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	if err := config.SaveGlobal(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	path, _ := config.GlobalPath()
	fmt.Fprintf(out, "  ✓ Settings saved to %s\n", path)
	fmt.Fprintln(out, "  Setup complete. Run 'codeweave generate <file>' to start.")
	fmt.Fprintln(out)
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/codeweave/internal/config"
	"github.com/fakeyudi/codeweave/internal/logging"
	"github.com/fakeyudi/codeweave/internal/session"
	"github.com/fakeyudi/codeweave/internal/workspace"
)

// app holds state shared by the subcommands of one invocation.
type app struct {
	root  string // workspace root
	debug bool

	cfg  config.Config // populated in PersistentPreRunE
	logs io.Closer

	interactive func() bool // whether stdin is a terminal
	newStore    func() (session.Store, error)
}

func newApp() *app {
	return &app{
		interactive: func() bool { return term.IsTerminal(os.Stdin.Fd()) },
		newStore:    session.NewStore,
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "codeweave",
		Short:        "Stream AI generated code into a source file",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.root, "root", "", "workspace root searched for imported definitions (default: the file's git work tree)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "write debug records to the log file")

	root.AddCommand(
		a.generateCmd(),
		a.contextCmd(),
		a.viewCmd(),
		a.statusCmd(),
		a.resetCmd(),
		a.setupCmd(),
	)
	return root
}

// load opens the log file and merges the configuration layers.
func (a *app) load(cmd *cobra.Command) error {
	logs, err := logging.Init(logging.Options{Debug: a.debug})
	if err != nil {
		return err
	}
	a.logs = logs

	// Setup must work before any config exists.
	if cmd.Name() == "setup" {
		return nil
	}

	// First run: no global config yet and someone at the keyboard.
	if path, err := config.GlobalPath(); err == nil {
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) && a.interactive() {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to codeweave! Looks like this is your first time.")
			if err := runSetup(cmd); err != nil {
				return err
			}
		}
	}

	cfg, err := config.Load(a.root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	logging.Get().Debug("config loaded", "provider", cfg.Provider, "model", cfg.Model, "root", a.root)
	return nil
}

// useRoot settles the workspace root for file: --root when given, else the
// root detected around file, whose project config is then loaded.
func (a *app) useRoot(cmd *cobra.Command, file string) error {
	if cmd.Flags().Changed("root") {
		return nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	root := workspace.FindRoot(cmd.Context(), filepath.Dir(abs), nil)
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.root, a.cfg = root, cfg
	logging.Get().Debug("workspace root", "root", root)
	return nil
}

func (a *app) close() {
	if a.logs != nil {
		a.logs.Close()
		a.logs = nil
	}
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	a := newApp()
	err := a.rootCmd().Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

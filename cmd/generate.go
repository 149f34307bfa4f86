package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codeweave/internal/config"
	"github.com/fakeyudi/codeweave/internal/document"
	"github.com/fakeyudi/codeweave/internal/imageenc"
	"github.com/fakeyudi/codeweave/internal/importscan"
	"github.com/fakeyudi/codeweave/internal/logging"
	"github.com/fakeyudi/codeweave/internal/prompt"
	"github.com/fakeyudi/codeweave/internal/provider"
	"github.com/fakeyudi/codeweave/internal/session"
	"github.com/fakeyudi/codeweave/internal/tui"
	"github.com/fakeyudi/codeweave/internal/workspace"
)

type generateOptions struct {
	pos         position
	prompt      string
	image       string
	decisions   []string
	dryRun      []string
	contextFile string
	coalesce    bool
}

func (a *app) generateCmd() *cobra.Command {
	var o generateOptions
	cmd := &cobra.Command{
		Use:   "generate <file>",
		Short: "Generate code at the caret (or replace a selection) and stream it into the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd, args[0], &o)
		},
	}
	o.pos.bind(cmd)
	f := cmd.Flags()
	f.StringVarP(&o.prompt, "prompt", "p", "", "prompt text (asked interactively when empty)")
	f.StringVar(&o.image, "image", "", "image file to attach to the prompt")
	f.StringSliceVar(&o.decisions, "decision", nil, "decisions to apply in order instead of asking: keep, rerun, reset")
	f.StringArrayVar(&o.dryRun, "dry-run", nil, "stream this fragment instead of calling the provider (repeatable)")
	f.StringVar(&o.contextFile, "context-file", "", "use a context saved by 'codeweave context' instead of collecting one")
	f.BoolVar(&o.coalesce, "coalesce", false, "join fragments that arrive during an edit into one edit")
	return cmd
}

func (a *app) generate(cmd *cobra.Command, path string, o *generateOptions) error {
	log := logging.Get()
	out := cmd.OutOrStdout()

	if err := a.useRoot(cmd, path); err != nil {
		return err
	}
	doc, err := document.Open(path)
	if err != nil {
		return err
	}
	defer doc.Close()

	store, err := a.newStore()
	if err != nil {
		return err
	}
	// A second abandoned generation would replace the record of the first.
	if prev, err := store.Load(doc.Path()); err == nil {
		return fmt.Errorf("%s still holds a generation from %s; run 'codeweave reset %s' (or add --forget to keep it) first",
			path, prev.StartedAt.Format(time.RFC3339), path)
	} else if !errors.Is(err, session.ErrNoSession) {
		return err
	}

	sel, err := o.pos.resolve(doc.Text())
	if err != nil {
		return err
	}
	if err := doc.SetSelection(sel); err != nil {
		return err
	}

	cfg := a.cfg
	var p provider.Provider
	if len(o.dryRun) > 0 {
		p = provider.NewScripted(o.dryRun...)
		if cfg.APIKey == "" {
			cfg.APIKey = "dry-run"
		}
	} else if p, err = provider.New(cfg); err != nil {
		return err
	}

	input, err := a.inputFor(o)
	if err != nil {
		return err
	}
	picker, err := a.pickerFor(o)
	if err != nil {
		return err
	}

	var source session.ContextSource
	if o.contextFile != "" {
		source = savedContext{path: o.contextFile}
	} else if source, err = a.contextBuilder(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	g := &session.Generation{
		Doc:      doc,
		Path:     doc.Path(),
		Provider: p,
		Input:    input,
		Picker:   picker,
		Context:  source,
		Images:   imageenc.Encoder{},
		Settings: cfg,
		Store:    store,
		Logger:   log,
		Coalesce: o.coalesce,
	}
	sess, err := g.Run(ctx)
	if sess != nil {
		log.Info("session finished", "session", sess.ID, "state", sess.State.String(), "attempts", sess.Attempts)
		report(cmd, sess, path)
	}
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(out, "  Run 'codeweave setup' to configure a provider.")
		}
		return err
	}
	return nil
}

func report(cmd *cobra.Command, sess *session.Session, path string) {
	out := cmd.OutOrStdout()
	switch sess.State {
	case session.Idle:
		fmt.Fprintln(out, "No prompt given; nothing changed.")
	case session.Committed:
		fmt.Fprintf(out, "✓ Kept %d bytes at %s in %s.\n", sess.GeneratedLength, sess.Generated, path)
	case session.Reverted:
		fmt.Fprintf(out, "Reverted %s.\n", path)
	case session.Abandoned:
		fmt.Fprintf(out, "Left the generated text in %s. Run 'codeweave reset %s' to revert it.\n", path, path)
	}
}

// inputFor returns the prompt source: the --prompt flag, or the prompt TUI
// when stdin is a terminal.
func (a *app) inputFor(o *generateOptions) (session.InputCollector, error) {
	if o.prompt != "" {
		return session.StaticInput{Input: &session.Input{Prompt: o.prompt, ImagePath: o.image}}, nil
	}
	if !a.interactive() {
		return nil, errors.New("no prompt given (use --prompt when stdin is not a terminal)")
	}
	return tui.Prompter{}, nil
}

// pickerFor returns the decision source. Without a terminal and without
// --decision the generated text is left in place as an abandoned session.
func (a *app) pickerFor(o *generateOptions) (session.DecisionPicker, error) {
	if len(o.decisions) == 0 && a.interactive() {
		return tui.Picker{}, nil
	}
	ds := make([]session.Decision, 0, len(o.decisions))
	for _, s := range o.decisions {
		d, err := session.ParseDecision(s)
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return session.NewDecisions(ds...), nil
}

// contextBuilder collects context from the workspace under --root.
func (a *app) contextBuilder(cfg config.Config) (*prompt.Builder, error) {
	ext, err := importscan.New(cfg.Extractor)
	if err != nil {
		return nil, err
	}
	return &prompt.Builder{
		Indexer: &workspace.Indexer{
			FS:          os.DirFS(a.root),
			Exclude:     cfg.ExcludePatterns,
			MaxFileSize: cfg.MaxFileSize,
			Logger:      logging.Get(),
		},
		Extractor:      ext,
		MaxInputTokens: cfg.MaxInputTokens,
	}, nil
}

// savedContext replays a context file written by the context command.
type savedContext struct {
	path string
}

func (s savedContext) Collect(context.Context, prompt.Snapshot) (*prompt.Context, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", s.path)
		}
		return nil, err
	}
	return prompt.Parse(data)
}

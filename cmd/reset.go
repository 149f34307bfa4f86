package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codeweave/internal/document"
	"github.com/fakeyudi/codeweave/internal/logging"
	"github.com/fakeyudi/codeweave/internal/session"
	"github.com/fakeyudi/codeweave/internal/tui"
)

func (a *app) resetCmd() *cobra.Command {
	var force, forget bool
	cmd := &cobra.Command{
		Use:   "reset [file]",
		Short: "Revert a generation left in place by a closed picker or a failed revert",
		Long: `Revert a generation left in place by a closed picker or a failed revert.

The file may be omitted when only one generation is pending.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			store, err := a.newStore()
			if err != nil {
				return err
			}
			s, err := pendingRecord(store, args)
			if err != nil {
				return err
			}

			if forget {
				if err := store.Delete(s.DocumentPath); err != nil {
					return err
				}
				logging.Get().Info("session forgotten", "session", s.ID, "path", s.DocumentPath)
				fmt.Fprintf(out, "Kept the generated text in %s and dropped its record.\n", s.DocumentPath)
				return nil
			}

			doc, err := document.Open(s.DocumentPath)
			if err != nil {
				return err
			}
			defer doc.Close()

			// Refuse to clobber edits made after the generation.
			if s.Generated != nil && !force {
				cur, err := doc.TextRange(*s.Generated)
				if err != nil || cur != s.GeneratedText {
					fmt.Fprintf(out, "%s changed since the generation:\n", s.DocumentPath)
					fmt.Fprint(out, tui.PlainDiff(s.GeneratedText, cur))
					return errors.New("generated text was modified; use --force to reset anyway")
				}
			}

			if err := s.Transition(session.Reverted); err != nil {
				return err
			}
			if err := s.Reset(cmd.Context(), doc); err != nil {
				return err
			}
			if err := store.Delete(s.DocumentPath); err != nil {
				return err
			}
			logging.Get().Info("session reset", "session", s.ID, "path", s.DocumentPath)
			fmt.Fprintf(out, "Reverted %s.\n", s.DocumentPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reset even if the generated text was edited")
	cmd.Flags().BoolVar(&forget, "forget", false, "keep the generated text and drop the record")
	cmd.MarkFlagsMutuallyExclusive("force", "forget")
	return cmd
}

// pendingRecord returns the record for the named file, or the only pending
// record when no file is named.
func pendingRecord(store session.Store, args []string) (*session.Session, error) {
	if len(args) == 1 {
		s, err := store.Load(args[0])
		if errors.Is(err, session.ErrNoSession) {
			return nil, fmt.Errorf("nothing to reset for %s: %w", args[0], err)
		}
		return s, err
	}
	recs, err := store.List()
	if err != nil {
		return nil, err
	}
	switch len(recs) {
	case 0:
		return nil, fmt.Errorf("nothing to reset: %w", session.ErrNoSession)
	case 1:
		return recs[0], nil
	}
	paths := make([]string, len(recs))
	for i, r := range recs {
		paths[i] = r.DocumentPath
	}
	return nil, fmt.Errorf("%d generations are pending (%s); name the file to reset", len(recs), strings.Join(paths, ", "))
}

package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codeweave/internal/session"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [file]",
		Short: "Show generations left in place by a closed picker or a failed revert",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.newStore()
			if err != nil {
				return err
			}

			var recs []*session.Session
			if len(args) == 1 {
				s, err := store.Load(args[0])
				if err != nil {
					if errors.Is(err, session.ErrNoSession) {
						cmd.Printf("no abandoned session for %s\n", args[0])
						return nil
					}
					return err
				}
				recs = append(recs, s)
			} else if recs, err = store.List(); err != nil {
				return err
			}
			if len(recs) == 0 {
				cmd.Println("no abandoned session")
				return nil
			}

			for i, s := range recs {
				if i > 0 {
					cmd.Println()
				}
				cmd.Printf("Session: %s\n", s.ID)
				cmd.Printf("File: %s\n", s.DocumentPath)
				cmd.Printf("State: %s\n", s.State)
				cmd.Printf("Started: %s\n", s.StartedAt.Format(time.RFC3339))
				cmd.Printf("Prompt: %s\n", s.Prompt)
				cmd.Printf("Attempts: %d\n", s.Attempts)
				if s.Generated != nil {
					cmd.Printf("Generated: %s (%d bytes)\n", s.Generated, s.GeneratedLength)
				}
			}
			return nil
		},
	}
}

// Package session drives one AI generation against a document: collecting
// the prompt, streaming the result in, and acting on the user's decision.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fakeyudi/codeweave/internal/document"
)

// State is the lifecycle position of a Session.
type State int

const (
	Idle State = iota
	Prompting
	Streaming
	Finalizing
	AwaitingDecision
	Committed
	Reverted
	Abandoned // generated text left in place: picker closed, or the revert failed
)

var stateNames = []string{"idle", "prompting", "streaming", "finalizing", "awaiting-decision", "committed", "reverted", "abandoned"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	i := slices.Index(stateNames, string(b))
	if i < 0 {
		return fmt.Errorf("unknown session state %q", b)
	}
	*s = State(i)
	return nil
}

// Terminal reports whether no further transition is expected.
func (s State) Terminal() bool {
	return s == Committed || s == Reverted || s == Abandoned
}

// transitions lists the legal successors of each state.
var transitions = map[State][]State{
	Idle:             {Prompting},
	Prompting:        {Idle, Streaming},
	Streaming:        {Finalizing, Reverted, Abandoned},
	Finalizing:       {AwaitingDecision, Reverted, Abandoned},
	AwaitingDecision: {Committed, Reverted, Streaming, Abandoned},
	Abandoned:        {Reverted}, // codeweave reset
}

// ErrIllegalTransition is wrapped by Transition errors.
var ErrIllegalTransition = errors.New("illegal session transition")

// Decision is the user's choice after a generation.
type Decision int

const (
	Keep Decision = iota
	Rerun
	Reset
)

var decisionNames = []string{"keep", "rerun", "reset"}

func (d Decision) String() string {
	if d < 0 || int(d) >= len(decisionNames) {
		return fmt.Sprintf("decision(%d)", int(d))
	}
	return decisionNames[d]
}

// ParseDecision parses "keep", "rerun" or "reset".
func ParseDecision(s string) (Decision, error) {
	i := slices.Index(decisionNames, s)
	if i < 0 {
		return 0, fmt.Errorf("unknown decision %q (use keep, rerun or reset)", s)
	}
	return Decision(i), nil
}

// Session is one generation request and its attempts.
type Session struct {
	ID              string          `json:"id"`
	DocumentPath    string          `json:"document_path"`
	OriginalContent string          `json:"original_content"`
	Selection       document.Range  `json:"selection"`
	SelectedText    string          `json:"selected_text"`
	Generated       *document.Range `json:"generated,omitempty"`
	GeneratedText   string          `json:"generated_text,omitempty"`
	GeneratedLength int             `json:"generated_length"` // bytes applied in the current attempt, grows with each edit
	State           State           `json:"state"`
	Prompt          string          `json:"prompt"`
	Attempts        int             `json:"attempts"`
	StartedAt       time.Time       `json:"started_at"`
}

// Transition moves s to the given state if the move is legal.
func (s *Session) Transition(to State) error {
	if !slices.Contains(transitions[s.State], to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.State, to)
	}
	s.State = to
	return nil
}

// Reset undoes the session's edits. When Generated is set, that range is
// replaced by the originally selected text; otherwise the whole document is
// replaced by OriginalContent. Generated is cleared afterwards. Reset runs on
// a context detached from ctx's cancellation so an aborted run still reverts.
func (s *Session) Reset(ctx context.Context, doc document.Handle) error {
	ctx = context.WithoutCancel(ctx)
	if s.Generated != nil {
		g := *s.Generated
		cur, err := doc.TextRange(g)
		if err != nil || cur != s.SelectedText {
			if err := doc.ApplyEdit(ctx, document.Delete(g), document.Insert(g.Start, s.SelectedText)); err != nil {
				return fmt.Errorf("reset %s: %w", g, err)
			}
		}
		_ = doc.SetSelection(document.Range{Start: g.Start, End: g.Start + len(s.SelectedText)})
	} else if text := doc.Text(); text != s.OriginalContent {
		all := document.Range{Start: 0, End: len(text)}
		if err := doc.ApplyEdit(ctx, document.Delete(all), document.Insert(0, s.OriginalContent)); err != nil {
			return fmt.Errorf("reset document: %w", err)
		}
		_ = doc.SetSelection(s.Selection)
	}
	s.Generated = nil
	s.GeneratedText = ""
	s.GeneratedLength = 0
	return nil
}

// StreamError reports a failure of the provider stream.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return "error interacting with the AI provider: " + e.Err.Error()
}

func (e *StreamError) Unwrap() error { return e.Err }

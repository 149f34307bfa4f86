package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/codeweave/internal/config"
	"github.com/fakeyudi/codeweave/internal/document"
	"github.com/fakeyudi/codeweave/internal/editqueue"
	"github.com/fakeyudi/codeweave/internal/logging"
	"github.com/fakeyudi/codeweave/internal/prompt"
	"github.com/fakeyudi/codeweave/internal/provider"
)

// InputRequest describes what the prompt is for.
type InputRequest struct {
	FileName     string
	SelectedText string
}

// Input is what the user typed.
type Input struct {
	Prompt    string
	ImagePath string // optional
}

// InputCollector asks the user for a prompt. A nil Input means cancelled.
type InputCollector interface {
	Collect(ctx context.Context, req InputRequest) (*Input, error)
}

// Preview is shown to the user when asking for a decision.
type Preview struct {
	FileName  string
	Original  string // text the generation replaced
	Generated string
	Range     document.Range
	Attempt   int
}

// DecisionPicker asks the user what to do with generated text. ok is false
// when the picker was closed without a choice.
type DecisionPicker interface {
	Pick(ctx context.Context, p Preview) (d Decision, ok bool, err error)
}

// ContextSource builds the context payload for a document snapshot.
type ContextSource interface {
	Collect(ctx context.Context, snap prompt.Snapshot) (*prompt.Context, error)
}

// ImageEncoder loads an image attachment.
type ImageEncoder interface {
	Encode(path string) (provider.Image, error)
}

// Generation wires the collaborators of one generation request.
type Generation struct {
	Doc      document.Handle
	Path     string
	Provider provider.Provider
	Input    InputCollector
	Picker   DecisionPicker
	Context  ContextSource // nil uses a prompt.Builder without workspace search
	Images   ImageEncoder  // nil rejects image attachments
	Settings config.Config
	Store    Store // nil skips persisting abandoned sessions
	Logger   *slog.Logger
	Coalesce bool // join pending fragments into one edit
}

// Run drives a session from Idle to a terminal state and returns it. A
// cancelled or empty prompt returns the session in Idle with a nil error.
// Stream and edit failures revert the document and are returned; if the
// revert fails too, the session ends Abandoned and is saved to Store.
func (g *Generation) Run(ctx context.Context) (*Session, error) {
	return g.run(ctx, g.newSession())
}

func (g *Generation) newSession() *Session {
	return &Session{
		ID:           uuid.NewString(),
		DocumentPath: g.Path,
		State:        Idle,
		StartedAt:    time.Now(),
	}
}

func (g *Generation) run(ctx context.Context, sess *Session) (*Session, error) {
	log := g.logger()
	if err := g.Settings.Validate(); err != nil {
		return sess, err
	}
	if err := sess.Transition(Prompting); err != nil {
		return sess, err
	}

	sess.OriginalContent = g.Doc.Text()
	sess.Selection = g.Doc.Selection()
	selected, err := g.Doc.TextRange(sess.Selection)
	if err != nil {
		return sess, g.abort(sess, err)
	}
	sess.SelectedText = selected

	src := g.Context
	if src == nil {
		src = &prompt.Builder{MaxInputTokens: g.Settings.MaxInputTokens}
	}
	pctx, err := src.Collect(ctx, prompt.Snapshot{Path: g.Path, Text: sess.OriginalContent, Selection: sess.Selection})
	if err != nil {
		return sess, g.abort(sess, fmt.Errorf("build context: %w", err))
	}
	for _, w := range pctx.Warnings {
		log.Warn("context warning", "session", sess.ID, "warning", w)
	}

	in, err := g.Input.Collect(ctx, InputRequest{FileName: g.Path, SelectedText: sess.SelectedText})
	if err != nil {
		return sess, g.abort(sess, err)
	}
	if in == nil || strings.TrimSpace(in.Prompt) == "" {
		log.Debug("input cancelled", "session", sess.ID)
		return sess, g.abort(sess, nil)
	}
	sess.Prompt = in.Prompt

	var image *provider.Image
	if in.ImagePath != "" {
		if g.Images == nil {
			return sess, g.abort(sess, errors.New("failed to load image: image attachments are not supported here"))
		}
		img, err := g.Images.Encode(in.ImagePath)
		if err != nil {
			return sess, g.abort(sess, err)
		}
		image = &img
	}
	req := prompt.Compose(pctx, in.Prompt, image, g.Settings)

	for {
		if err := g.attempt(ctx, sess, req); err != nil {
			return sess, err
		}

		preview := Preview{
			FileName:  g.Path,
			Original:  sess.SelectedText,
			Generated: sess.GeneratedText,
			Range:     *sess.Generated,
			Attempt:   sess.Attempts,
		}
		decision, ok, err := g.Picker.Pick(ctx, preview)
		if err != nil || !ok {
			if err != nil {
				log.Warn("decision picker failed", "session", sess.ID, "error", err)
			}
			return sess, g.abandon(sess, err)
		}
		log.Info("decision", "session", sess.ID, "decision", decision.String(), "attempt", sess.Attempts)

		switch decision {
		case Keep:
			return sess, sess.Transition(Committed)
		case Reset:
			if err := sess.Reset(ctx, g.Doc); err != nil {
				return sess, g.strand(sess, err)
			}
			return sess, sess.Transition(Reverted)
		case Rerun:
			if err := g.rerun(ctx, sess); err != nil {
				return sess, g.fail(ctx, sess, err)
			}
		default:
			return sess, fmt.Errorf("unknown decision %v", decision)
		}
	}
}

// attempt streams one response into the document and leaves the session in
// AwaitingDecision with Generated set. On failure the document is reverted
// and the session ends in Reverted.
func (g *Generation) attempt(ctx context.Context, sess *Session, req provider.Request) error {
	log := g.logger()
	if err := sess.Transition(Streaming); err != nil {
		return err
	}
	sess.Attempts++
	sess.GeneratedLength = 0
	start := sess.Selection.Start

	// GeneratedLength is written only by the queue's draining goroutine
	// until settle's Wait returns.
	opts := []editqueue.Option{
		editqueue.WithContext(ctx),
		editqueue.WithOnApplied(func(n int) {
			sess.GeneratedLength += n
			log.Debug("edit applied", "session", sess.ID, "bytes", n, "total", sess.GeneratedLength)
		}),
	}
	if g.Coalesce {
		opts = append(opts, editqueue.WithCoalesce())
	}
	q := editqueue.New(g.Doc, sess.Selection, opts...)

	// settle waits for in-flight edits and records what they inserted.
	settle := func() error {
		err := q.Wait(context.WithoutCancel(ctx))
		if q.SelectionConsumed() {
			sess.Generated = &document.Range{Start: start, End: start + sess.GeneratedLength}
		} else {
			// Nothing landed, so the selection still holds the original text.
			sel := sess.Selection
			sess.Generated = &sel
		}
		return err
	}

	log.Info("streaming", "session", sess.ID, "attempt", sess.Attempts, "model", req.Model)
	stream, err := g.Provider.Stream(ctx, req)
	if err != nil {
		_ = settle()
		return g.fail(ctx, sess, &StreamError{Err: err})
	}
	for {
		frag, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stream.Close()
			_ = settle()
			return g.fail(ctx, sess, &StreamError{Err: err})
		}
		if err := q.Enqueue(frag); err != nil {
			stream.Close()
			_ = settle()
			return g.fail(ctx, sess, q.Err())
		}
	}
	if err := stream.Close(); err != nil {
		log.Debug("closing stream", "session", sess.ID, "error", err)
	}

	if err := sess.Transition(Finalizing); err != nil {
		return err
	}
	if err := settle(); err != nil {
		return g.fail(ctx, sess, err)
	}

	text, err := g.Doc.TextRange(*sess.Generated)
	if err != nil {
		return g.fail(ctx, sess, err)
	}
	sess.GeneratedText = text
	_ = g.Doc.SetSelection(*sess.Generated)
	log.Info("generation finished", "session", sess.ID, "bytes", sess.GeneratedLength)
	return sess.Transition(AwaitingDecision)
}

// rerun puts the originally selected text back in place of the generated
// range and restores the selection, ready for a fresh stream.
func (g *Generation) rerun(ctx context.Context, sess *Session) error {
	gen := *sess.Generated
	if err := g.Doc.ApplyEdit(ctx, document.Delete(gen), document.Insert(gen.Start, sess.SelectedText)); err != nil {
		return &editqueue.EditApplicationError{Index: 0, Err: err}
	}
	if err := g.Doc.SetSelection(sess.Selection); err != nil {
		return err
	}
	sess.GeneratedLength = 0
	sess.Generated = nil
	sess.GeneratedText = ""
	return nil
}

// fail reverts the document and ends the session in Reverted. When the
// revert itself fails the session is stranded instead, and the returned error
// carries both failures.
func (g *Generation) fail(ctx context.Context, sess *Session, cause error) error {
	g.logger().Error("generation failed", "session", sess.ID, "state", sess.State.String(), "error", cause)
	if rerr := sess.Reset(ctx, g.Doc); rerr != nil {
		return g.strand(sess, errors.Join(cause, rerr))
	}
	if err := sess.Transition(Reverted); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// abort returns a session still in Prompting to Idle without touching the
// document.
func (g *Generation) abort(sess *Session, cause error) error {
	if err := sess.Transition(Idle); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// strand handles a revert that could not be applied: the generated text stays
// in place and the session is abandoned with its range intact, so a later
// `codeweave reset --force` can still undo it.
func (g *Generation) strand(sess *Session, cause error) error {
	g.logger().Error("revert failed, leaving generated text in place", "session", sess.ID, "error", cause)
	if sess.Generated != nil && sess.GeneratedText == "" {
		if text, err := g.Doc.TextRange(*sess.Generated); err == nil {
			sess.GeneratedText = text
		}
	}
	return g.abandon(sess, cause)
}

// abandon leaves the generated text in place and records the session so it
// can be reverted later.
func (g *Generation) abandon(sess *Session, cause error) error {
	if err := sess.Transition(Abandoned); err != nil {
		return errors.Join(cause, err)
	}
	if g.Store != nil {
		if err := g.Store.Save(sess); err != nil {
			return errors.Join(cause, err)
		}
	}
	g.logger().Info("session abandoned", "session", sess.ID)
	return cause
}

func (g *Generation) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return logging.Get()
}

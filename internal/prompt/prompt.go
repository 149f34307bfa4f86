// Package prompt assembles the context payload around the cursor and turns it
// into a provider request.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fakeyudi/codeweave/internal/config"
	"github.com/fakeyudi/codeweave/internal/document"
	"github.com/fakeyudi/codeweave/internal/importscan"
	"github.com/fakeyudi/codeweave/internal/provider"
	"github.com/fakeyudi/codeweave/internal/workspace"
)

// Context is everything the model is told about the document and project.
type Context struct {
	FileName     string                  `json:"file_name"`
	Language     string                  `json:"language"`
	Before       string                  `json:"before"`
	After        string                  `json:"after"`
	SelectedText string                  `json:"selected_text,omitempty"`
	Imports      []importscan.Reference  `json:"imports"`
	Matches      []workspace.SymbolMatch `json:"matches"`
	Warnings     []string                `json:"warnings,omitempty"`
}

// Snapshot is the document state the context is built from.
type Snapshot struct {
	Path      string
	Text      string
	Selection document.Range
}

// Builder collects a Context from a snapshot and, when Indexer is set, the
// workspace around it.
type Builder struct {
	Indexer        *workspace.Indexer
	Extractor      importscan.Extractor
	MaxInputTokens int
}

// Collect builds the context for snap. Unreadable workspace files only add
// warnings; cancellation is returned as an error.
func (b *Builder) Collect(ctx context.Context, snap Snapshot) (*Context, error) {
	sel := snap.Selection
	if sel.Start < 0 || sel.End > len(snap.Text) || sel.Start > sel.End {
		return nil, fmt.Errorf("selection %s outside document: %w", sel, document.ErrInvalidRange)
	}

	budget := b.MaxInputTokens
	if budget <= 0 {
		budget = config.Defaults().MaxInputTokens
	}
	c := &Context{
		FileName:     snap.Path,
		Language:     LanguageFor(snap.Path),
		Before:       Before(snap.Text[:sel.Start], budget/2),
		After:        After(snap.Text[sel.End:], budget/2),
		SelectedText: snap.Text[sel.Start:sel.End],
		Imports:      []importscan.Reference{},
		Matches:      []workspace.SymbolMatch{},
	}

	extractor := b.Extractor
	if extractor == nil {
		extractor = importscan.PatternExtractor{}
	}
	if refs := extractor.Extract(snap.Text); len(refs) > 0 {
		c.Imports = refs
	}

	names := importscan.Names(c.Imports)
	if b.Indexer == nil || len(names) == 0 {
		return c, nil
	}
	tree, res := b.Indexer.BuildTree(ctx)
	c.Warnings = append(c.Warnings, res.Warnings...)
	if res.Err != nil {
		if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
			return nil, res.Err
		}
		c.Warnings = append(c.Warnings, "workspace scan incomplete: "+res.Err.Error())
	}
	if m := workspace.FindSymbolDefinitions(tree, names); len(m) > 0 {
		c.Matches = m
	}
	return c, nil
}

// System renders the system instructions for c.
func System(c *Context) string {
	var sb strings.Builder
	if c.SelectedText != "" {
		sb.WriteString("Your task is to change the given code snippet based on the prompt.\n\n")
	} else {
		sb.WriteString("Your task is to write code based on the prompt.\n\n")
	}
	sb.WriteString("Here is some information about the project:\n")
	fmt.Fprintf(&sb, "Current file: %s\n", c.FileName)
	fmt.Fprintf(&sb, "Current language: %s\n", c.Language)
	if c.Before != "" {
		fmt.Fprintf(&sb, "Here is some code from the document before cursor position: %s\n", c.Before)
	}
	if c.After != "" {
		fmt.Fprintf(&sb, "Here is some code from the document after cursor position: %s\n", c.After)
	}

	if len(c.Imports) > 0 {
		sb.WriteString("\nThe document imports:\n")
		for _, ref := range c.Imports {
			fmt.Fprintf(&sb, "- %s from %s\n", strings.Join(ref.Names, ", "), ref.Module)
		}
	}
	if len(c.Matches) > 0 {
		sb.WriteString("\nFiles in the project that define imported symbols:\n")
		for _, m := range c.Matches {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", m.Path, m.Symbol, m.Snippet)
		}
	}

	if c.SelectedText != "" {
		fmt.Fprintf(&sb, "\nHere is the current code that you should change according to the prompt: %s\n\n", c.SelectedText)
		sb.WriteString("Only answer with the changed code without any comments or explanations. The code should be directly usable.")
	} else {
		sb.WriteString("\nOnly answer with code without any comments or explanations. The code should not have any characters for displaying that it is code.")
	}
	return sb.String()
}

// Compose builds the provider request for c and the user's prompt.
func Compose(c *Context, userPrompt string, image *provider.Image, cfg config.Config) provider.Request {
	return provider.Request{
		System:      System(c),
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: userPrompt, Image: image}},
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxOutputTokens,
		Temperature: cfg.Temp(),
	}
}

package document

import (
	"context"
	"fmt"
	"sync"
)

// Buffer is an in-memory Handle. It is safe for concurrent use.
type Buffer struct {
	mu        sync.Mutex
	text      string
	selection Range
	version   int
}

// NewBuffer returns a buffer holding text with the caret at offset 0.
func NewBuffer(text string) *Buffer {
	return &Buffer{text: text}
}

func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

func (b *Buffer) TextRange(r Range) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.Start < 0 || r.End < r.Start || r.End > len(b.text) {
		return "", fmt.Errorf("read %s of %d bytes: %w", r, len(b.text), ErrInvalidRange)
	}
	return b.text[r.Start:r.End], nil
}

// ApplyEdit applies ops in order. The caret ends up after the last op, the way
// an editor moves the cursor past inserted text.
func (b *Buffer) ApplyEdit(ctx context.Context, ops ...Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyLocked(ops)
}

func (b *Buffer) applyLocked(ops []Op) error {
	next, caret, err := apply(b.text, ops)
	if err != nil {
		return err
	}
	b.text = next
	if len(ops) > 0 {
		b.selection = caret
	}
	b.version++
	return nil
}

func (b *Buffer) Selection() Range {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selection
}

func (b *Buffer) SetSelection(r Range) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.Start < 0 || r.End < r.Start || r.End > len(b.text) {
		return fmt.Errorf("select %s of %d bytes: %w", r, len(b.text), ErrInvalidRange)
	}
	b.selection = r
	return nil
}

// Version counts successful edits.
func (b *Buffer) Version() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

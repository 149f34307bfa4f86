// Package document defines the editable document abstraction that generated
// text is streamed into, plus an in-memory and a file-backed implementation.
//
// All offsets are byte offsets into the UTF-8 document text.
package document

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when an edit or read addresses bytes outside
	// the current document.
	ErrInvalidRange = errors.New("range outside document")

	// ErrExternallyModified is returned by File.ApplyEdit when the file on disk
	// changed underneath the document.
	ErrExternallyModified = errors.New("document was modified externally")
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty reports whether the range covers no bytes.
func (r Range) Empty() bool { return r.End <= r.Start }

// Len returns the number of bytes covered by the range.
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start
}

// Overlaps reports whether r and o share at least one byte.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Caret returns an empty range positioned at offset.
func Caret(offset int) Range { return Range{Start: offset, End: offset} }

// OpKind distinguishes the two primitive mutations.
type OpKind int

const (
	OpDelete OpKind = iota
	OpInsert
)

// Op is a single primitive mutation. Ops inside one edit are applied in order,
// each against the text produced by the previous op.
type Op struct {
	Kind  OpKind
	Range Range  // OpDelete
	At    int    // OpInsert
	Text  string // OpInsert
}

// Delete returns an op removing r.
func Delete(r Range) Op { return Op{Kind: OpDelete, Range: r} }

// Insert returns an op inserting text at offset at.
func Insert(at int, text string) Op { return Op{Kind: OpInsert, At: at, Text: text} }

// Handle is a live document that edits are applied to.
type Handle interface {
	// Text returns the full document text.
	Text() string
	// TextRange returns the text covered by r.
	TextRange(r Range) (string, error)
	// ApplyEdit applies ops atomically: either all of them take effect or none.
	ApplyEdit(ctx context.Context, ops ...Op) error
	// Selection returns the current selection (empty when only a caret).
	Selection() Range
	// SetSelection moves the selection.
	SetSelection(r Range) error
}

// apply runs ops against text and returns the result, or ErrInvalidRange.
// It never partially applies.
func apply(text string, ops []Op) (string, Range, error) {
	caret := Range{}
	for i, op := range ops {
		switch op.Kind {
		case OpDelete:
			r := op.Range
			if r.Start < 0 || r.End < r.Start || r.End > len(text) {
				return "", Range{}, fmt.Errorf("op %d: delete %s of %d bytes: %w", i, r, len(text), ErrInvalidRange)
			}
			text = text[:r.Start] + text[r.End:]
			caret = Caret(r.Start)
		case OpInsert:
			if op.At < 0 || op.At > len(text) {
				return "", Range{}, fmt.Errorf("op %d: insert at %d of %d bytes: %w", i, op.At, len(text), ErrInvalidRange)
			}
			text = text[:op.At] + op.Text + text[op.At:]
			caret = Caret(op.At + len(op.Text))
		default:
			return "", Range{}, fmt.Errorf("op %d: unknown kind %d", i, op.Kind)
		}
	}
	return text, caret, nil
}

// OffsetAt converts a 1-based line and column (in bytes) to an offset.
// A column past the end of the line clamps to the line end.
func OffsetAt(text string, line, col int) (int, error) {
	if line < 1 || col < 1 {
		return 0, fmt.Errorf("line and column are 1-based, got %d:%d", line, col)
	}
	offset := 0
	for l := 1; l < line; l++ {
		i := indexByteFrom(text, '\n', offset)
		if i < 0 {
			return 0, fmt.Errorf("line %d beyond end of document (%d lines): %w", line, l, ErrInvalidRange)
		}
		offset = i + 1
	}
	end := indexByteFrom(text, '\n', offset)
	if end < 0 {
		end = len(text)
	}
	if offset+col-1 > end {
		return end, nil
	}
	return offset + col - 1, nil
}

func indexByteFrom(s string, b byte, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

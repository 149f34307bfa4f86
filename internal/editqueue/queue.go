// Package editqueue turns an ordered stream of text fragments into
// single-writer edits against a document.
package editqueue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fakeyudi/codeweave/internal/document"
)

// ErrHalted is wrapped by the error returned from Enqueue after an edit failed.
var ErrHalted = errors.New("edit queue halted")

// EditApplicationError reports that the document rejected an edit.
type EditApplicationError struct {
	Index int // zero-based number of the edit that failed
	Err   error
}

func (e *EditApplicationError) Error() string {
	return fmt.Sprintf("failed to insert text (edit %d): %v", e.Index, e.Err)
}

func (e *EditApplicationError) Unwrap() error { return e.Err }

// Option configures a Queue.
type Option func(*Queue)

// WithOnApplied registers fn to be called with the number of inserted bytes
// after every successful edit. fn runs on the draining goroutine.
func WithOnApplied(fn func(n int)) Option {
	return func(q *Queue) { q.onApplied = fn }
}

// WithCoalesce joins every pending fragment into a single edit.
func WithCoalesce() Option {
	return func(q *Queue) { q.coalesce = true }
}

// WithContext sets the context passed to Handle.ApplyEdit.
func WithContext(ctx context.Context) Option {
	return func(q *Queue) { q.ctx = ctx }
}

// Queue applies enqueued fragments to a document in FIFO order with at most
// one ApplyEdit outstanding.
type Queue struct {
	doc       document.Handle
	ctx       context.Context
	onApplied func(int)
	coalesce  bool

	mu        sync.Mutex
	pending   []string
	busy      bool
	err       error
	selection document.Range // deleted by the first edit when non-empty
	consumed  bool
	cursor    int
	applied   int
	edits     int
	idle      chan struct{} // closed while idle or halted
}

// New returns a queue inserting at selection.Start. A non-empty selection is
// deleted by the same edit that inserts the first fragment.
func New(doc document.Handle, selection document.Range, opts ...Option) *Queue {
	idle := make(chan struct{})
	close(idle)
	q := &Queue{
		doc:       doc,
		ctx:       context.Background(),
		selection: selection,
		consumed:  selection.Empty(),
		cursor:    selection.Start,
		idle:      idle,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends fragment and starts draining if no edit is in flight.
// Empty fragments are ignored. Once the queue has halted, Enqueue returns an
// error wrapping ErrHalted and the edit failure.
func (q *Queue) Enqueue(fragment string) error {
	if fragment == "" {
		return nil
	}
	q.mu.Lock()
	if q.err != nil {
		err := q.err
		q.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrHalted, err)
	}
	q.pending = append(q.pending, fragment)
	if q.busy {
		q.mu.Unlock()
		return nil
	}
	q.busy = true
	q.idle = make(chan struct{})
	q.mu.Unlock()

	go q.drain()
	return nil
}

// drain runs while busy is held, one edit at a time, until nothing is pending
// or an edit fails.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.busy = false
			close(q.idle)
			q.mu.Unlock()
			return
		}
		var text string
		if q.coalesce {
			text = strings.Join(q.pending, "")
			q.pending = q.pending[:0]
		} else {
			text = q.pending[0]
			q.pending = q.pending[1:]
		}
		ops := make([]document.Op, 0, 2)
		if !q.consumed {
			ops = append(ops, document.Delete(q.selection))
		}
		ops = append(ops, document.Insert(q.cursor, text))
		index := q.edits
		q.mu.Unlock()

		err := q.doc.ApplyEdit(q.ctx, ops...)

		q.mu.Lock()
		q.edits++
		if err != nil {
			// Put the fragment back so Pending reflects everything not applied.
			q.pending = append([]string{text}, q.pending...)
			q.err = &EditApplicationError{Index: index, Err: err}
			q.busy = false
			close(q.idle)
			q.mu.Unlock()
			return
		}
		q.consumed = true
		q.cursor += len(text)
		q.applied += len(text)
		onApplied := q.onApplied
		q.mu.Unlock()

		if onApplied != nil {
			onApplied(len(text))
		}
	}
}

// IsIdle reports whether nothing is pending and no edit is in flight.
func (q *Queue) IsIdle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.busy && len(q.pending) == 0
}

// Wait blocks until the queue is idle or halted and returns the halt error.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}
	return q.Err()
}

// Err returns the edit failure that halted the queue, if any.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Applied returns the number of bytes inserted so far.
func (q *Queue) Applied() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.applied
}

// Cursor returns the offset the next fragment will be inserted at.
func (q *Queue) Cursor() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cursor
}

// SelectionConsumed reports whether the initial selection has been deleted
// (always true when it was empty).
func (q *Queue) SelectionConsumed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.consumed
}

// Pending returns the number of fragments not yet applied.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

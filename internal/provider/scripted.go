package provider

import (
	"context"
	"io"
	"sync"
	"time"
)

// Script is the canned response of one Scripted stream.
type Script struct {
	Fragments []string
	Err       error // returned by Next after the fragments
	OpenErr   error // returned by Stream itself
}

// Scripted replays canned fragments. Each call to Stream consumes the next
// script; the last one repeats. It backs tests and `generate --dry-run`.
type Scripted struct {
	Scripts []Script
	Delay   time.Duration // before each fragment

	mu       sync.Mutex
	calls    int
	requests []Request
}

// NewScripted returns a provider that streams fragments once per request.
func NewScripted(fragments ...string) *Scripted {
	return &Scripted{Scripts: []Script{{Fragments: fragments}}}
}

func (s *Scripted) Stream(ctx context.Context, req Request) (Stream, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	var script Script
	if n := len(s.Scripts); n > 0 {
		script = s.Scripts[min(s.calls, n-1)]
	}
	s.calls++
	s.mu.Unlock()

	if script.OpenErr != nil {
		return nil, script.OpenErr
	}
	return &scriptedStream{ctx: ctx, script: script, delay: s.Delay}, nil
}

// Requests returns every request received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

type scriptedStream struct {
	ctx    context.Context
	script Script
	delay  time.Duration
	next   int
	closed bool
}

func (st *scriptedStream) Next() (string, error) {
	if st.closed {
		return "", io.EOF
	}
	if err := st.ctx.Err(); err != nil {
		return "", err
	}
	if st.next >= len(st.script.Fragments) {
		if st.script.Err != nil {
			return "", st.script.Err
		}
		return "", io.EOF
	}
	if st.delay > 0 {
		t := time.NewTimer(st.delay)
		select {
		case <-t.C:
		case <-st.ctx.Done():
			t.Stop()
			return "", st.ctx.Err()
		}
	}
	frag := st.script.Fragments[st.next]
	st.next++
	return frag, nil
}

func (st *scriptedStream) Close() error {
	st.closed = true
	return nil
}

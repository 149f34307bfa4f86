package session

import (
	"context"
	"sync"
)

// StaticInput is an InputCollector that always returns the same input. A nil
// Input behaves like a cancelled prompt.
type StaticInput struct {
	Input *Input
}

func (s StaticInput) Collect(context.Context, InputRequest) (*Input, error) {
	if s.Input == nil {
		return nil, nil
	}
	in := *s.Input
	return &in, nil
}

// Decisions is a DecisionPicker that replays a fixed list of decisions. Once
// the list is exhausted it reports the picker as closed.
type Decisions struct {
	mu       sync.Mutex
	list     []Decision
	previews []Preview
}

// NewDecisions returns a picker answering with ds in order.
func NewDecisions(ds ...Decision) *Decisions {
	return &Decisions{list: ds}
}

func (d *Decisions) Pick(_ context.Context, p Preview) (Decision, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.previews = append(d.previews, p)
	if len(d.list) == 0 {
		return 0, false, nil
	}
	next := d.list[0]
	d.list = d.list[1:]
	return next, true, nil
}

// Previews returns every preview shown so far.
func (d *Decisions) Previews() []Preview {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Preview(nil), d.previews...)
}

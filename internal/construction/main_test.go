package construction

import (
	"context"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type noDeps struct{}

func testCtx() Context[noDeps] {
	return NewContext(context.Background(), noDeps{}, "test-session")
}

// counting wraps a body and counts invocations.
type counting struct {
	id    string
	calls atomic.Int32
	body  func(in string, pctx Context[noDeps]) Outcome[string]
}

func (c *counting) ID() string   { return c.id }
func (c *counting) Name() string { return c.id }

func (c *counting) Execute(in string, pctx Context[noDeps]) Outcome[string] {
	c.calls.Add(1)
	return c.body(in, pctx)
}

func succeeding(id, value string) *counting {
	return &counting{id: id, body: func(string, Context[noDeps]) Outcome[string] {
		return Ok(value)
	}}
}

func failing(id, msg string) *counting {
	c := &counting{id: id}
	c.body = func(string, Context[noDeps]) Outcome[string] {
		return FailErr[string](NewError("%s", msg), id)
	}
	return c
}

// scripted is a Streamer that replays a fixed event sequence and whose
// Execute derives its outcome from the script's terminal event.
type scripted struct {
	id     string
	events []Event[string]
}

func (s *scripted) ID() string   { return s.id }
func (s *scripted) Name() string { return s.id }

func (s *scripted) Execute(in string, pctx Context[noDeps]) Outcome[string] {
	return DriveStream(s.Stream(in, pctx))
}

func (s *scripted) Stream(in string, pctx Context[noDeps]) <-chan Event[string] {
	ch := make(chan Event[string], len(s.events))
	go func() {
		defer close(ch)
		for _, ev := range s.events {
			if !emit(ch, pctx.Signal, ev) {
				return
			}
			if ev.Terminal() {
				return
			}
		}
	}()
	return ch
}

func collect(t *testing.T, events <-chan Event[string]) []Event[string] {
	t.Helper()
	var got []Event[string]
	for ev := range events {
		got = append(got, ev)
	}
	return got
}

func kinds(events []Event[string]) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

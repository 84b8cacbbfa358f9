package construction

import "fmt"

// seqC chains two Constructions: a's value becomes b's input. A failure in
// a short-circuits; b never starts.
type seqC[In, Mid, Out, D any] struct {
	a Construction[In, Mid, D]
	b Construction[Mid, Out, D]
}

// Seq composes a then b sequentially with short-circuit on failure.
func Seq[In, Mid, Out, D any](a Construction[In, Mid, D], b Construction[Mid, Out, D]) Streamer[In, Out, D] {
	return &seqC[In, Mid, Out, D]{a: a, b: b}
}

func (s *seqC[In, Mid, Out, D]) ID() string {
	return fmt.Sprintf("seq(%s,%s)", s.a.ID(), s.b.ID())
}

func (s *seqC[In, Mid, Out, D]) Name() string {
	return fmt.Sprintf("%s -> %s", s.a.Name(), s.b.Name())
}

func (s *seqC[In, Mid, Out, D]) Execute(in In, pctx Context[D]) Outcome[Out] {
	first := s.a.Execute(in, pctx)
	if !first.IsOk() {
		// Pass the failure through untouched; the source id stays a's.
		return fromError[Out](first.Err())
	}
	return s.b.Execute(first.Value(), pctx)
}

// Stream interleaves a's progress events, then b's, terminating on b's
// terminal event. If a fails mid-stream its failed event is forwarded and
// b never starts.
func (s *seqC[In, Mid, Out, D]) Stream(in In, pctx Context[D]) <-chan Event[Out] {
	ch := make(chan Event[Out], streamBuffer)
	go func() {
		defer close(ch)

		var mid Mid
		done := false
		for ev := range streamOf(s.a, in, pctx) {
			switch ev.Kind {
			case EventCompleted:
				mid = *ev.Result
				done = true
			case EventFailed:
				emit(ch, pctx.Signal, FailedEvent[Out](ev.Err, nil))
				return
			case EventHumanRequest:
				// A pause cannot cross a seq boundary; surface it as a failure.
				emit(ch, pctx.Signal, FailedEvent[Out](NewError("upstream %s paused for human input", s.a.ID()).withSource(s.a.ID()), nil))
				return
			default:
				if !forward(ch, pctx, ev) {
					return
				}
			}
		}
		if !done {
			emit(ch, pctx.Signal, FailedEvent[Out](NewError("stream of %s ended without a terminal event", s.a.ID()).withSource(s.a.ID()), nil))
			return
		}

		for ev := range streamOf(s.b, mid, pctx) {
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

// forward re-emits a non-terminal event under a different output type.
// Progress and safety payloads carry no output value, so the conversion is
// a field copy.
func forward[A, Out, D any](ch chan<- Event[Out], pctx Context[D], ev Event[A]) bool {
	converted := Event[Out]{Kind: ev.Kind, Progress: ev.Progress, Violation: ev.Violation}
	return emit(ch, pctx.Signal, converted)
}

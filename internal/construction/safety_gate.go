package construction

import (
	"context"
	"fmt"
)

type safetyGateC[In, Out, D any] struct {
	inner Streamer[In, Out, D]
}

// WithSafetyGate wraps a streaming Construction and intercepts blocking
// safety violations. Progress events pass through untouched, and so do
// warn-severity violations. A block-severity violation is emitted, then
// the gate synthesizes a failed event from the violation detail and
// terminates: the inner Construction's own eventual completed event never
// reaches the caller.
func WithSafetyGate[In, Out, D any](inner Streamer[In, Out, D]) Streamer[In, Out, D] {
	return &safetyGateC[In, Out, D]{inner: inner}
}

func (g *safetyGateC[In, Out, D]) ID() string {
	return fmt.Sprintf("gate(%s)", g.inner.ID())
}

func (g *safetyGateC[In, Out, D]) Name() string {
	return fmt.Sprintf("%s (gated)", g.inner.Name())
}

// Execute drives the gated stream, so a blocking violation surfaces as the
// synthesized failure here too.
func (g *safetyGateC[In, Out, D]) Execute(in In, pctx Context[D]) Outcome[Out] {
	return DriveStream(g.Stream(in, pctx))
}

func (g *safetyGateC[In, Out, D]) Stream(in In, pctx Context[D]) <-chan Event[Out] {
	ch := make(chan Event[Out], streamBuffer)
	go func() {
		defer close(ch)

		// The inner stream runs under a child signal so the gate can stop
		// it after a block without cancelling the caller's signal.
		innerCtx, stopInner := context.WithCancel(pctx.Signal)
		defer stopInner()
		inner := g.inner.Stream(in, pctx.withSignal(innerCtx))
		defer func() {
			stopInner()
			go func() {
				for range inner {
				}
			}()
		}()

		for ev := range inner {
			if ev.Kind == EventSafetyViolation && ev.Violation.Severity == SeverityBlock {
				if !emit(ch, pctx.Signal, ev) {
					return
				}
				err := &Error{
					Kind:     KindGeneric,
					Message:  fmt.Sprintf("blocked by safety rule %s: %s", ev.Violation.Rule, ev.Violation.Detail),
					SourceID: g.inner.ID(),
				}
				emit(ch, pctx.Signal, FailedEvent[Out](err, nil))
				return
			}
			if !emit(ch, pctx.Signal, ev) {
				return
			}
			if ev.Terminal() {
				return
			}
		}
		emit(ch, pctx.Signal, FailedEvent[Out](NewError("stream of %s ended without a terminal event", g.inner.ID()).withSource(g.inner.ID()), nil))
	}()
	return ch
}

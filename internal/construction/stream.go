package construction

import "context"

// streamBuffer bounds the event channels combinators create. Producers
// block once a consumer falls this far behind rather than buffering
// unboundedly.
const streamBuffer = 16

// ExecuteStream adapts any Construction into a single-terminal-event
// stream, so streaming is opt-in: a Construction without a native Stream
// can still participate in streaming compositions.
func ExecuteStream[In, Out, D any](c Construction[In, Out, D], in In, pctx Context[D]) <-chan Event[Out] {
	ch := make(chan Event[Out], 1)
	go func() {
		defer close(ch)
		ch <- eventFromOutcome(c.Execute(in, pctx))
	}()
	return ch
}

// streamOf returns the Construction's native stream when it implements
// Streamer, and the ExecuteStream adaptation otherwise.
func streamOf[In, Out, D any](c Construction[In, Out, D], in In, pctx Context[D]) <-chan Event[Out] {
	if s, ok := c.(Streamer[In, Out, D]); ok {
		return s.Stream(in, pctx)
	}
	return ExecuteStream(c, in, pctx)
}

// DriveStream drains a stream to its terminal event and returns the
// carried outcome. For a well-behaved Streamer this equals calling
// Execute directly. A stream that ends without a terminal event, or that
// hands off to a human_request continuation, yields a failure: DriveStream
// is for unattended consumption and cannot answer a human request.
func DriveStream[Out any](events <-chan Event[Out]) Outcome[Out] {
	for ev := range events {
		if out, ok := outcomeFromEvent(ev); ok {
			return out
		}
		if ev.Kind == EventHumanRequest {
			return fromError[Out](NewError("stream paused for human input; DriveStream cannot answer"))
		}
	}
	return fromError[Out](NewError("stream ended without a terminal event"))
}

// emit sends an event, giving up if the signal fires first. Returns false
// when the send was abandoned.
func emit[Out any](ch chan<- Event[Out], signal context.Context, ev Event[Out]) bool {
	select {
	case ch <- ev:
		return true
	case <-signal.Done():
		return false
	}
}

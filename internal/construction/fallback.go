package construction

import "fmt"

// fallbackC switches from primary to backup on failure.
type fallbackC[In, Out, D any] struct {
	primary Construction[In, Out, D]
	backup  Construction[In, Out, D]
}

// Fallback composes primary with a one-shot backup. On a primary failure
// the backup runs with the original, unmodified input; on success the
// backup is never invoked. The switch is a single escalation - wrap the
// backup in WithRetry if it should be retried.
func Fallback[In, Out, D any](primary, backup Construction[In, Out, D]) Streamer[In, Out, D] {
	return &fallbackC[In, Out, D]{primary: primary, backup: backup}
}

func (f *fallbackC[In, Out, D]) ID() string {
	return fmt.Sprintf("fallback(%s,%s)", f.primary.ID(), f.backup.ID())
}

func (f *fallbackC[In, Out, D]) Name() string {
	return fmt.Sprintf("%s ?: %s", f.primary.Name(), f.backup.Name())
}

func (f *fallbackC[In, Out, D]) Execute(in In, pctx Context[D]) Outcome[Out] {
	out := f.primary.Execute(in, pctx)
	if out.IsOk() {
		return out
	}
	return f.backup.Execute(in, pctx)
}

// Stream forwards the primary's events; a primary failed event is
// swallowed and the backup's stream takes over with the original input.
func (f *fallbackC[In, Out, D]) Stream(in In, pctx Context[D]) <-chan Event[Out] {
	ch := make(chan Event[Out], streamBuffer)
	go func() {
		defer close(ch)

		for ev := range streamOf(f.primary, in, pctx) {
			if ev.Kind == EventFailed {
				// Swallow the failure and switch; a stream that just ends
				// without a terminal is treated the same way.
				break
			}
			if !emit(ch, pctx.Signal, ev) {
				return
			}
			if ev.Terminal() {
				return
			}
		}

		for ev := range streamOf(f.backup, in, pctx) {
			if !emit(ch, pctx.Signal, ev) {
				return
			}
			if ev.Terminal() {
				return
			}
		}
		emit(ch, pctx.Signal, FailedEvent[Out](NewError("stream of %s ended without a terminal event", f.backup.ID()).withSource(f.backup.ID()), nil))
	}()
	return ch
}

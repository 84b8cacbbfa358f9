package construction

import (
	"fmt"
	"time"
)

// RetryPolicy bounds re-attempts of a failing Construction.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy mirrors the orchestrator default of three attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond}
}

// delayFor returns the backoff before the given attempt (1-based):
// exponential doubling from BaseDelay.
func (p RetryPolicy) delayFor(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

type retryC[In, Out, D any] struct {
	inner  Construction[In, Out, D]
	policy RetryPolicy
}

// WithRetry re-invokes inner up to MaxAttempts times while it fails,
// backing off between attempts. The first success wins; if every attempt
// fails the last failure is returned. No retry starts once the context's
// cancellation signal is set.
func WithRetry[In, Out, D any](inner Construction[In, Out, D], policy RetryPolicy) Streamer[In, Out, D] {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &retryC[In, Out, D]{inner: inner, policy: policy}
}

func (r *retryC[In, Out, D]) ID() string {
	return fmt.Sprintf("retry(%s)", r.inner.ID())
}

func (r *retryC[In, Out, D]) Name() string {
	return fmt.Sprintf("%s (max %d attempts)", r.inner.Name(), r.policy.MaxAttempts)
}

func (r *retryC[In, Out, D]) Execute(in In, pctx Context[D]) Outcome[Out] {
	var last Outcome[Out]
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		last = r.inner.Execute(in, pctx)
		if last.IsOk() {
			return last
		}
		if attempt == r.policy.MaxAttempts {
			break
		}
		if !r.waitBackoff(pctx, attempt) {
			break
		}
	}
	return last
}

// waitBackoff sleeps the attempt's backoff, aborting early on cancellation.
func (r *retryC[In, Out, D]) waitBackoff(pctx Context[D], attempt int) bool {
	delay := r.policy.delayFor(attempt)
	if delay <= 0 {
		return !pctx.Cancelled()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-pctx.Signal.Done():
		return false
	}
}

// Stream re-streams each attempt, forwarding progress and safety events.
// Failed terminals are suppressed until the attempts are exhausted; the
// first completed terminal ends the stream.
func (r *retryC[In, Out, D]) Stream(in In, pctx Context[D]) <-chan Event[Out] {
	ch := make(chan Event[Out], streamBuffer)
	go func() {
		defer close(ch)

		var lastErr *Error
		var lastPartial *Out
		for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
			terminalSeen := false
			for ev := range streamOf(r.inner, in, pctx) {
				switch ev.Kind {
				case EventFailed:
					terminalSeen = true
					lastErr = ev.Err
					lastPartial = ev.Partial
				case EventCompleted, EventHumanRequest:
					terminalSeen = true
					emit(ch, pctx.Signal, ev)
					return
				default:
					if !emit(ch, pctx.Signal, ev) {
						return
					}
				}
				if terminalSeen {
					break
				}
			}
			if !terminalSeen {
				lastErr = NewError("stream of %s ended without a terminal event", r.inner.ID()).withSource(r.inner.ID())
				lastPartial = nil
			}
			if attempt == r.policy.MaxAttempts || !r.waitBackoff(pctx, attempt) {
				break
			}
		}
		emit(ch, pctx.Signal, FailedEvent(lastErr, lastPartial))
	}()
	return ch
}

package construction

import "context"

// Context is the per-invocation carrier threaded through every combinator:
// dependency handles, the shared cancellation signal, and the session id.
// It is immutable per invocation; fan-out is the only combinator that
// forks it, and forks share the same signal and session id.
type Context[D any] struct {
	// Deps holds the dependency handles (knowledge store, ledger, ...)
	// the Construction body needs. The substrate never inspects them
	// beyond capability discovery.
	Deps D

	// Signal is the cancellation signal shared by reference through all
	// combinators, including both fan-out branches and a paused handle.
	Signal context.Context

	// SessionID identifies the logical session this invocation belongs to.
	SessionID string
}

// NewContext builds an invocation context.
func NewContext[D any](signal context.Context, deps D, sessionID string) Context[D] {
	if signal == nil {
		signal = context.Background()
	}
	return Context[D]{Deps: deps, Signal: signal, SessionID: sessionID}
}

// Fork returns a branch-scoped copy carrying its own dependency view.
// The cancellation signal and session id are shared, not copied.
func (c Context[D]) Fork(deps D) Context[D] {
	return Context[D]{Deps: deps, Signal: c.Signal, SessionID: c.SessionID}
}

// withSignal swaps the cancellation signal. Internal to combinators that
// must be able to stop an inner stream (safety gate) without cancelling
// the caller's signal.
func (c Context[D]) withSignal(signal context.Context) Context[D] {
	return Context[D]{Deps: c.Deps, Signal: signal, SessionID: c.SessionID}
}

// Cancelled reports whether the shared signal has fired.
func (c Context[D]) Cancelled() bool {
	select {
	case <-c.Signal.Done():
		return true
	default:
		return false
	}
}

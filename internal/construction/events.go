package construction

import "context"

// EventKind tags a streamed Construction event.
type EventKind string

const (
	EventProgress        EventKind = "progress"
	EventSafetyViolation EventKind = "safety_violation"
	EventHumanRequest    EventKind = "human_request"
	EventCompleted       EventKind = "completed"
	EventFailed          EventKind = "failed"
)

// Severity of a safety violation. Block converts the remainder of a gated
// stream into a failure; Warn is observational only.
type Severity string

const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
)

// Progress reports incremental work inside a streaming Construction.
type Progress struct {
	Step            string
	PercentComplete float64 // negative when unknown
}

// SafetyViolation reports a safety rule firing mid-stream.
type SafetyViolation struct {
	Rule     string
	Severity Severity
	Detail   string
}

// HumanRequest asks a human to settle a low-confidence result. Evidence is
// carried by reference; the ledger entries themselves stay in the ledger.
type HumanRequest struct {
	Question     string
	Context      map[string]interface{}
	EvidenceRefs []string
	TimeoutMs    int64 // 0 means no timeout; enforcement is the caller's policy
}

// HumanResponse is what a human hands back to resume a paused pipeline.
type HumanResponse struct {
	Decision           string
	Note               string
	OverrideConfidence *float64
	Payload            map[string]interface{}
}

// Continuation lets a streaming consumer resume a paused Construction and
// keep reading events from the same loop across the pause boundary.
type Continuation[Out any] interface {
	Resume(ctx context.Context, resp HumanResponse) <-chan Event[Out]
}

// Event is the sum type a streaming Construction emits. Exactly one of the
// variant payloads is populated, selected by Kind. A stream carries zero
// or more progress/safety_violation events, then exactly one terminal
// event: completed, failed, or a human_request handed off to its
// continuation.
type Event[Out any] struct {
	Kind EventKind

	Progress  *Progress
	Violation *SafetyViolation

	Request      *HumanRequest
	Continuation Continuation[Out]

	Result *Out // completed

	Err     *Error // failed
	Partial *Out
}

// Terminal reports whether the event ends the stream. A human_request is a
// hand-off: the stream ends, and events continue on the continuation.
func (e Event[Out]) Terminal() bool {
	switch e.Kind {
	case EventCompleted, EventFailed, EventHumanRequest:
		return true
	default:
		return false
	}
}

// ProgressEvent builds a progress event.
func ProgressEvent[Out any](step string, percent float64) Event[Out] {
	return Event[Out]{Kind: EventProgress, Progress: &Progress{Step: step, PercentComplete: percent}}
}

// ViolationEvent builds a safety_violation event.
func ViolationEvent[Out any](rule string, severity Severity, detail string) Event[Out] {
	return Event[Out]{Kind: EventSafetyViolation, Violation: &SafetyViolation{Rule: rule, Severity: severity, Detail: detail}}
}

// CompletedEvent builds the success terminal event.
func CompletedEvent[Out any](result Out) Event[Out] {
	return Event[Out]{Kind: EventCompleted, Result: &result}
}

// FailedEvent builds the failure terminal event from an outcome's error.
func FailedEvent[Out any](err *Error, partial *Out) Event[Out] {
	return Event[Out]{Kind: EventFailed, Err: err, Partial: partial}
}

// eventFromOutcome converts a terminal Outcome into its terminal event.
func eventFromOutcome[Out any](out Outcome[Out]) Event[Out] {
	if out.IsOk() {
		return CompletedEvent(out.Value())
	}
	return FailedEvent[Out](out.Err(), out.partial)
}

// outcomeFromEvent converts a terminal event back into an Outcome.
// Returns false for non-terminal events and for human_request hand-offs,
// which have no outcome yet.
func outcomeFromEvent[Out any](ev Event[Out]) (Outcome[Out], bool) {
	switch ev.Kind {
	case EventCompleted:
		return Ok(*ev.Result), true
	case EventFailed:
		return Outcome[Out]{err: ev.Err, partial: ev.Partial}, true
	default:
		return Outcome[Out]{}, false
	}
}

package construction

import (
	"fmt"
	"time"
)

// ErrorKind classifies a Construction failure.
type ErrorKind string

const (
	// KindInput - the input failed schema validation before the body ran.
	KindInput ErrorKind = "input"
	// KindCapability - a declared required capability is unavailable.
	KindCapability ErrorKind = "capability"
	// KindTimeout - an attempt exceeded its allotted time.
	KindTimeout ErrorKind = "timeout"
	// KindGeneric - any other in-body failure.
	KindGeneric ErrorKind = "generic"
)

// Error is the failure payload of an Outcome. All failure in the substrate
// is data, not control flow: Constructions return Errors inside Outcomes
// instead of raising them through a global exception channel.
type Error struct {
	Kind     ErrorKind
	Message  string
	SourceID string // id of the Construction that produced the failure

	Capability string        // set for KindCapability: the missing capability name
	Duration   time.Duration // set for KindTimeout: the attempted duration

	cause error
}

// NewError returns a generic construction error.
func NewError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindGeneric, Message: fmt.Sprintf(format, args...)}
}

// InputError returns an input-validation error.
func InputError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInput, Message: fmt.Sprintf(format, args...)}
}

// CapabilityError returns an error for a missing required capability.
func CapabilityError(capability string) *Error {
	return &Error{
		Kind:       KindCapability,
		Capability: capability,
		Message:    fmt.Sprintf("required capability %q is unavailable", capability),
	}
}

// TimeoutError returns an error for an attempt that ran out of time.
func TimeoutError(attempted time.Duration, format string, args ...interface{}) *Error {
	return &Error{Kind: KindTimeout, Duration: attempted, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an ordinary Go error as a generic construction error.
func WrapError(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindGeneric, Message: fmt.Sprintf(format, args...), cause: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.SourceID != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.SourceID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// withSource stamps the originating Construction id onto the error.
// The first stamp wins: an error that already names its source keeps it,
// so failures stay attributable through nested combinators.
func (e *Error) withSource(sourceID string) *Error {
	if e.SourceID != "" || sourceID == "" {
		return e
	}
	clone := *e
	clone.SourceID = sourceID
	return &clone
}

package construction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"codeatlas/internal/evidence"
)

// Resume errors. Double-resume and resume-after-cancel are caller errors
// surfaced explicitly rather than silently re-completing.
var (
	ErrNotPaused       = errors.New("handle is not paused")
	ErrAlreadyResumed  = errors.New("handle was already resumed")
	ErrResumeCancelled = errors.New("session cancelled while paused")
)

// BuildRequest turns a low-confidence partial result into the question put
// to a human.
type BuildRequest[Out any] func(partial Outcome[Out], conf Confidence) HumanRequest

// PauseOptions configures the confidence gate.
type PauseOptions struct {
	// ConfidenceThreshold below which the pipeline suspends. A result
	// whose confidence is absent cannot be certified and also suspends.
	ConfidenceThreshold float64
	// Timeout bounds how long a paused handle may remain unresumed. The
	// framework runs no timer; the value is surfaced on the request for
	// callers that enforce it.
	Timeout time.Duration
}

// HandleState is the lifecycle position of a pause handle.
type HandleState string

const (
	HandlePaused    HandleState = "paused"
	HandleCompleted HandleState = "completed"
)

// PauseForHuman gates a Construction on result confidence: results at or
// above the threshold pass through untouched, results below it suspend the
// pipeline, record an escalation in the evidence ledger, and wait for a
// human decision. Resume never re-executes the inner body.
type PauseForHuman[In any, Out Assessed[Out], D any] struct {
	inner  Construction[In, Out, D]
	build  BuildRequest[Out]
	ledger evidence.Ledger
	opts   PauseOptions
}

// NewPauseForHuman builds the gate. The ledger is injected explicitly so
// paused state stays reconstructable by the host.
func NewPauseForHuman[In any, Out Assessed[Out], D any](
	inner Construction[In, Out, D],
	build BuildRequest[Out],
	ledger evidence.Ledger,
	opts PauseOptions,
) *PauseForHuman[In, Out, D] {
	return &PauseForHuman[In, Out, D]{inner: inner, build: build, ledger: ledger, opts: opts}
}

func (p *PauseForHuman[In, Out, D]) ID() string {
	return fmt.Sprintf("pause(%s)", p.inner.ID())
}

func (p *PauseForHuman[In, Out, D]) Name() string {
	return fmt.Sprintf("%s (human gate <%.2f)", p.inner.Name(), p.opts.ConfidenceThreshold)
}

// Handle is the suspended state of a paused execution, held as plain data
// (construction id, partial outcome, partial evidence, request) so a host
// could serialize it or hand it to another process.
type Handle[Out Assessed[Out]] struct {
	mu sync.Mutex

	state           HandleState
	constructionID  string
	request         HumanRequest
	partial         Outcome[Out]
	partialEvidence []string
	escalationID    string
	pausedAt        time.Time
	resumed         bool
	result          Outcome[Out]

	ledger evidence.Ledger
	signal context.Context
}

// State returns the handle's lifecycle position.
func (h *Handle[Out]) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Request returns the question put to the human. Zero for completed handles.
func (h *Handle[Out]) Request() HumanRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.request
}

// PartialEvidence returns the evidence refs accumulated before the pause.
func (h *Handle[Out]) PartialEvidence() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.partialEvidence...)
}

// Result returns the terminal outcome once the handle is completed.
func (h *Handle[Out]) Result() (Outcome[Out], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != HandleCompleted {
		return Outcome[Out]{}, false
	}
	return h.result, true
}

// Start evaluates the inner Construction once. Confidence at or above the
// threshold completes directly with zero ledger writes; below it (or
// absent) the handle pauses, an escalation_request is appended, and the
// caller owns getting a human response to Resume.
func (p *PauseForHuman[In, Out, D]) Start(in In, pctx Context[D]) *Handle[Out] {
	h := &Handle[Out]{
		constructionID: p.inner.ID(),
		ledger:         p.ledger,
		signal:         pctx.Signal,
	}

	out := p.inner.Execute(in, pctx)
	if !out.IsOk() {
		// The evaluation itself failed before a confidence check could
		// run; there is no paused->failed->resume path.
		h.state = HandleCompleted
		h.result = out
		return h
	}

	conf := out.Value().Confidence()
	num := conf.NumericValue()
	if !math.IsNaN(num) && num >= p.opts.ConfidenceThreshold {
		h.state = HandleCompleted
		h.result = out
		return h
	}

	req := p.build(out, conf)
	if p.opts.Timeout > 0 && req.TimeoutMs == 0 {
		req.TimeoutMs = p.opts.Timeout.Milliseconds()
	}

	rec, err := p.ledger.Append(pctx.Signal, evidence.Entry{
		Kind: evidence.KindEscalationRequest,
		Payload: map[string]interface{}{
			"construction": p.inner.ID(),
			"session":      pctx.SessionID,
			"question":     req.Question,
			"context":      req.Context,
			"evidence":     req.EvidenceRefs,
			"confidence":   num,
			"threshold":    p.opts.ConfidenceThreshold,
		},
	})
	if err != nil {
		h.state = HandleCompleted
		h.result = FailErr[Out](WrapError(err, "recording escalation request"), p.inner.ID())
		return h
	}

	h.state = HandlePaused
	h.request = req
	h.partial = out
	h.partialEvidence = append([]string(nil), out.Value().EvidenceRefs()...)
	h.escalationID = rec.ID
	h.pausedAt = rec.Timestamp
	return h
}

// Resume completes a paused handle from a human response. It does not
// re-invoke the inner Construction: the partial result is re-scored with
// the human's confidence, a human_override entry is appended, and the
// final evidence refs are the union of the partial refs with the
// escalation and override entry ids.
func (h *Handle[Out]) Resume(resp HumanResponse) (Outcome[Out], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.resumed {
		return Outcome[Out]{}, ErrAlreadyResumed
	}
	if h.state != HandlePaused {
		return Outcome[Out]{}, ErrNotPaused
	}
	select {
	case <-h.signal.Done():
		return Outcome[Out]{}, fmt.Errorf("%w: %v", ErrResumeCancelled, h.signal.Err())
	default:
	}

	rec, err := h.ledger.Append(h.signal, evidence.Entry{
		Kind: evidence.KindHumanOverride,
		Payload: map[string]interface{}{
			"construction": h.constructionID,
			"escalation":   h.escalationID,
			"decision":     resp.Decision,
			"note":         resp.Note,
			"override":     resp.OverrideConfidence,
		},
	})
	if err != nil {
		return Outcome[Out]{}, fmt.Errorf("recording human override: %w", err)
	}

	value := h.partial.Value()
	orig := value.Confidence()
	var conf Confidence
	if resp.OverrideConfidence != nil {
		conf = Derived(*resp.OverrideConfidence, "human_override", orig)
	} else {
		conf = Deterministic(true, "human decision: "+resp.Decision)
	}

	refs := mergeRefs(h.partialEvidence, h.escalationID, rec.ID)
	value = value.WithConfidence(conf).WithEvidence(refs)

	h.resumed = true
	h.state = HandleCompleted
	h.result = Ok(value)
	return h.result, nil
}

// mergeRefs unions refs preserving first-seen order.
func mergeRefs(base []string, extra ...string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, ref := range append(append([]string(nil), base...), extra...) {
		if _, dup := seen[ref]; dup || ref == "" {
			continue
		}
		seen[ref] = struct{}{}
		merged = append(merged, ref)
	}
	return merged
}

// continuation adapts a paused handle into the streaming protocol so a
// consumer can stay inside one receive loop across the pause boundary.
type continuation[Out Assessed[Out]] struct {
	handle *Handle[Out]
}

func (c *continuation[Out]) Resume(ctx context.Context, resp HumanResponse) <-chan Event[Out] {
	ch := make(chan Event[Out], 1)
	go func() {
		defer close(ch)
		out, err := c.handle.Resume(resp)
		if err != nil {
			ch <- FailedEvent[Out](WrapError(err, "resume failed").withSource(c.handle.constructionID), nil)
			return
		}
		select {
		case ch <- eventFromOutcome(out):
		case <-ctx.Done():
		}
	}()
	return ch
}

// Stream runs the gate and, on a pause, emits a human_request event whose
// continuation yields the post-resume events.
func (p *PauseForHuman[In, Out, D]) Stream(in In, pctx Context[D]) <-chan Event[Out] {
	ch := make(chan Event[Out], 1)
	go func() {
		defer close(ch)
		h := p.Start(in, pctx)
		if out, done := h.Result(); done {
			emit(ch, pctx.Signal, eventFromOutcome(out))
			return
		}
		req := h.Request()
		emit(ch, pctx.Signal, Event[Out]{
			Kind:         EventHumanRequest,
			Request:      &req,
			Continuation: &continuation[Out]{handle: h},
		})
	}()
	return ch
}

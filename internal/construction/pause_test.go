package construction

import (
	"context"
	"errors"
	"math"
	"testing"

	"codeatlas/internal/evidence"
)

func assessing(id string, conf Confidence, refs ...string) Construction[string, Assessment[string], noDeps] {
	return New(id, id, func(in string, _ Context[noDeps]) Outcome[Assessment[string]] {
		return Ok(Assess(in+" analyzed", conf, refs...))
	})
}

func askHuman(partial Outcome[Assessment[string]], conf Confidence) HumanRequest {
	return HumanRequest{
		Question:     "accept this analysis?",
		Context:      map[string]interface{}{"value": partial.Value().Value},
		EvidenceRefs: partial.Value().EvidenceRefs(),
	}
}

func pauseGate(inner Construction[string, Assessment[string], noDeps], ledger evidence.Ledger, threshold float64) *PauseForHuman[string, Assessment[string], noDeps] {
	return NewPauseForHuman(inner, askHuman, ledger, PauseOptions{ConfidenceThreshold: threshold})
}

func TestPauseBelowThresholdSuspends(t *testing.T) {
	ledger := evidence.NewMemoryLedger()
	gate := pauseGate(assessing("scorer", Derived(0.42, "weak signal"), "ev_1", "ev_2"), ledger, 0.6)

	h := gate.Start("input", testCtx())
	if h.State() != HandlePaused {
		t.Fatalf("expected paused, got %s", h.State())
	}
	partial := h.PartialEvidence()
	if len(partial) != 2 || partial[0] != "ev_1" || partial[1] != "ev_2" {
		t.Fatalf("unexpected partial evidence: %v", partial)
	}
	if n := ledger.CountKind(evidence.KindEscalationRequest); n != 1 {
		t.Fatalf("expected one escalation_request, got %d", n)
	}
	if _, done := h.Result(); done {
		t.Fatalf("paused handle must not expose a result")
	}
}

func TestPauseResumeWithOverrideConfidence(t *testing.T) {
	ledger := evidence.NewMemoryLedger()
	gate := pauseGate(assessing("scorer", Derived(0.42, "weak signal"), "ev_1", "ev_2"), ledger, 0.6)

	h := gate.Start("input", testCtx())
	override := 0.91
	out, err := h.Resume(HumanResponse{Decision: "approve", OverrideConfidence: &override})
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if !out.IsOk() {
		t.Fatalf("unexpected failure: %v", out.Err())
	}

	value := out.Value()
	if got := value.Confidence().NumericValue(); math.Abs(got-0.91) > 1e-5 {
		t.Fatalf("confidence = %v, want 0.91", got)
	}

	refs := value.EvidenceRefs()
	if len(refs) != 4 {
		t.Fatalf("expected partial + escalation + override refs, got %v", refs)
	}
	want := map[string]bool{"ev_1": false, "ev_2": false}
	recs := ledger.Records()
	for _, rec := range recs {
		want[rec.ID] = false
	}
	for _, ref := range refs {
		if _, known := want[ref]; !known {
			t.Fatalf("unexpected evidence ref %q", ref)
		}
		want[ref] = true
	}
	for ref, seen := range want {
		if !seen {
			t.Fatalf("missing evidence ref %q in %v", ref, refs)
		}
	}
	if n := ledger.CountKind(evidence.KindHumanOverride); n != 1 {
		t.Fatalf("expected one human_override, got %d", n)
	}
}

func TestPauseResumeWithoutOverrideIsDeterministic(t *testing.T) {
	ledger := evidence.NewMemoryLedger()
	gate := pauseGate(assessing("scorer", Absent("no detector"), "ev_1"), ledger, 0.6)

	h := gate.Start("input", testCtx())
	if h.State() != HandlePaused {
		t.Fatalf("absent confidence must pause, got %s", h.State())
	}
	out, err := h.Resume(HumanResponse{Decision: "approve"})
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	conf := out.Value().Confidence()
	if conf.Kind != ConfidenceDeterministic || conf.NumericValue() != 1 {
		t.Fatalf("a plain approval must certify deterministically, got %+v", conf)
	}
}

func TestPauseAboveThresholdPassesThrough(t *testing.T) {
	ledger := evidence.NewMemoryLedger()
	gate := pauseGate(assessing("scorer", Derived(0.8, "strong signal"), "ev_1"), ledger, 0.6)

	h := gate.Start("input", testCtx())
	if h.State() != HandleCompleted {
		t.Fatalf("expected completed, got %s", h.State())
	}
	out, done := h.Result()
	if !done || !out.IsOk() {
		t.Fatalf("expected a successful result")
	}
	if got := out.Value().Confidence().NumericValue(); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("pass-through must not rescore, got %v", got)
	}
	if len(ledger.Records()) != 0 {
		t.Fatalf("pass-through must write nothing to the ledger, got %d records", len(ledger.Records()))
	}
}

func TestPauseInnerFailureCompletesDirectly(t *testing.T) {
	ledger := evidence.NewMemoryLedger()
	inner := New("scorer", "Scorer", func(string, Context[noDeps]) Outcome[Assessment[string]] {
		return FailErr[Assessment[string]](NewError("analysis crashed"), "scorer")
	})
	gate := pauseGate(inner, ledger, 0.6)

	h := gate.Start("input", testCtx())
	if h.State() != HandleCompleted {
		t.Fatalf("a failed evaluation must not pause, got %s", h.State())
	}
	out, _ := h.Result()
	if out.IsOk() {
		t.Fatalf("expected the inner failure to surface")
	}
	if len(ledger.Records()) != 0 {
		t.Fatalf("failure path must write nothing to the ledger")
	}
}

func TestPauseDoubleResumeFails(t *testing.T) {
	ledger := evidence.NewMemoryLedger()
	gate := pauseGate(assessing("scorer", Derived(0.3, "weak"), "ev_1"), ledger, 0.6)

	h := gate.Start("input", testCtx())
	if _, err := h.Resume(HumanResponse{Decision: "approve"}); err != nil {
		t.Fatalf("first resume failed: %v", err)
	}
	if _, err := h.Resume(HumanResponse{Decision: "reject"}); !errors.Is(err, ErrAlreadyResumed) {
		t.Fatalf("second resume must fail with ErrAlreadyResumed, got %v", err)
	}
	if n := ledger.CountKind(evidence.KindHumanOverride); n != 1 {
		t.Fatalf("the rejected resume must not append, got %d overrides", n)
	}
}

func TestPauseResumeAfterCancellationFails(t *testing.T) {
	ledger := evidence.NewMemoryLedger()
	gate := pauseGate(assessing("scorer", Derived(0.3, "weak"), "ev_1"), ledger, 0.6)

	ctx, cancel := context.WithCancel(context.Background())
	h := gate.Start("input", NewContext(ctx, noDeps{}, "s"))
	if h.State() != HandlePaused {
		t.Fatalf("expected paused, got %s", h.State())
	}
	cancel()

	if _, err := h.Resume(HumanResponse{Decision: "approve"}); !errors.Is(err, ErrResumeCancelled) {
		t.Fatalf("resume after cancellation must fail with ErrResumeCancelled, got %v", err)
	}
}

func TestPauseResumeNeverReExecutesInner(t *testing.T) {
	ledger := evidence.NewMemoryLedger()
	inner := &countingAssess{id: "scorer"}
	gate := pauseGate(inner, ledger, 0.6)

	h := gate.Start("input", testCtx())
	if _, err := h.Resume(HumanResponse{Decision: "approve"}); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("resume must not re-run the inner construction, got %d calls", inner.calls)
	}
}

type countingAssess struct {
	id    string
	calls int
}

func (c *countingAssess) ID() string   { return c.id }
func (c *countingAssess) Name() string { return c.id }

func (c *countingAssess) Execute(in string, _ Context[noDeps]) Outcome[Assessment[string]] {
	c.calls++
	return Ok(Assess(in, Derived(0.1, "guess"), "ev_1"))
}

func TestPauseStreamHandsOffToContinuation(t *testing.T) {
	ledger := evidence.NewMemoryLedger()
	gate := pauseGate(assessing("scorer", Derived(0.3, "weak"), "ev_1"), ledger, 0.6)

	events := gate.Stream("input", testCtx())
	ev, open := <-events
	if !open || ev.Kind != EventHumanRequest {
		t.Fatalf("expected a human_request hand-off, got %+v", ev)
	}
	if ev.Request.Question == "" || ev.Continuation == nil {
		t.Fatalf("hand-off must carry the request and a continuation")
	}
	if _, open := <-events; open {
		t.Fatalf("stream must close after the hand-off")
	}

	var terminal Event[Assessment[string]]
	for resumed := range ev.Continuation.Resume(context.Background(), HumanResponse{Decision: "approve"}) {
		terminal = resumed
	}
	if terminal.Kind != EventCompleted {
		t.Fatalf("continuation must complete, got %s", terminal.Kind)
	}
}

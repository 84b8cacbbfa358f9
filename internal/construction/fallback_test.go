package construction

import "testing"

func TestFallbackSkipsBackupOnSuccess(t *testing.T) {
	primary := succeeding("primary", "fast answer")
	backup := succeeding("backup", "slow answer")

	out := Fallback[string, string, noDeps](primary, backup).Execute("in", testCtx())
	if !out.IsOk() || out.Value() != "fast answer" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if backup.calls.Load() != 0 {
		t.Fatalf("backup must not run when the primary succeeds")
	}
}

func TestFallbackRunsBackupWithOriginalInput(t *testing.T) {
	primary := failing("primary", "model unavailable")
	var seen string
	backup := &counting{id: "backup"}
	backup.body = func(in string, _ Context[noDeps]) Outcome[string] {
		seen = in
		return Ok("recovered")
	}

	out := Fallback[string, string, noDeps](primary, backup).Execute("original", testCtx())
	if !out.IsOk() || out.Value() != "recovered" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if seen != "original" {
		t.Fatalf("backup must receive the original input, got %q", seen)
	}
}

func TestFallbackIsOneShot(t *testing.T) {
	primary := failing("primary", "down")
	backup := failing("backup", "also down")

	out := Fallback[string, string, noDeps](primary, backup).Execute("in", testCtx())
	if out.IsOk() {
		t.Fatalf("expected failure")
	}
	if out.SourceID() != "backup" {
		t.Fatalf("final failure must be the backup's, got %q", out.SourceID())
	}
	if primary.calls.Load() != 1 || backup.calls.Load() != 1 {
		t.Fatalf("each side runs exactly once: primary=%d backup=%d",
			primary.calls.Load(), backup.calls.Load())
	}
}

func TestFallbackStreamSwallowsPrimaryFailure(t *testing.T) {
	primary := &scripted{id: "primary", events: []Event[string]{
		ProgressEvent[string]("trying", 0.3),
		FailedEvent[string](NewError("nope").withSource("primary"), nil),
	}}
	backup := &scripted{id: "backup", events: []Event[string]{
		CompletedEvent("recovered"),
	}}

	got := collect(t, Fallback[string, string, noDeps](primary, backup).Stream("in", testCtx()))
	want := []EventKind{EventProgress, EventCompleted}
	if len(got) != len(want) {
		t.Fatalf("unexpected events: %v", kinds(got))
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Fatalf("event %d: got %s, want %s", i, got[i].Kind, k)
		}
	}
	if *got[1].Result != "recovered" {
		t.Fatalf("unexpected result: %q", *got[1].Result)
	}
}

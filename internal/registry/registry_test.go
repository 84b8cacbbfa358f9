package registry

import (
	"context"
	"errors"
	"testing"

	"codeatlas/internal/construction"
)

type testDeps struct {
	caps Capabilities
}

func (d testDeps) Capabilities() Capabilities { return d.caps }

func testPCtx(caps Capabilities) construction.Context[interface{}] {
	return construction.NewContext(context.Background(), interface{}(testDeps{caps: caps}), "test-session")
}

func echoRunner(calls *int) Runner {
	return func(in map[string]interface{}, _ construction.Context[interface{}]) construction.Outcome[Result] {
		*calls++
		return construction.Ok(construction.Assess[interface{}](in, construction.Derived(0.9, "echo")))
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	var calls int
	_, err := r.Register(Manifest{ID: "echo", Description: "echoes its input"}, echoRunner(&calls))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	entry, err := r.Lookup("echo")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if entry.Manifest.Name != "echo" {
		t.Fatalf("empty name must default to the id, got %q", entry.Manifest.Name)
	}

	if _, err := r.Lookup("missing"); !errors.Is(err, ErrUnknownID) {
		t.Fatalf("expected ErrUnknownID, got %v", err)
	}
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	r := New()
	var calls int
	if _, err := r.Register(Manifest{ID: "echo"}, echoRunner(&calls)); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := r.Register(Manifest{ID: "echo"}, echoRunner(&calls)); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestManifestsSortedByID(t *testing.T) {
	r := New()
	var calls int
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if _, err := r.Register(Manifest{ID: id}, echoRunner(&calls)); err != nil {
			t.Fatalf("register %s failed: %v", id, err)
		}
	}
	manifests := r.Manifests()
	if len(manifests) != 3 {
		t.Fatalf("expected 3 manifests, got %d", len(manifests))
	}
	for i, want := range []string{"alpha", "mid", "zeta"} {
		if manifests[i].ID != want {
			t.Fatalf("manifest %d: got %s, want %s", i, manifests[i].ID, want)
		}
	}
}

func TestBuildChecksCapabilitiesBeforeBody(t *testing.T) {
	var calls int
	built := Build(Manifest{
		ID:                   "graph_stats",
		RequiredCapabilities: []string{CapGraphMetrics},
	}, echoRunner(&calls))

	out := built.Execute(map[string]interface{}{}, testPCtx(Capabilities{}))
	if out.IsOk() {
		t.Fatalf("expected a capability failure")
	}
	if out.Err().Kind != construction.KindCapability {
		t.Fatalf("expected capability kind, got %s", out.Err().Kind)
	}
	if out.Err().Capability != CapGraphMetrics {
		t.Fatalf("unexpected capability: %q", out.Err().Capability)
	}
	if calls != 0 {
		t.Fatalf("body must not run without the capability")
	}

	out = built.Execute(map[string]interface{}{}, testPCtx(Capabilities{Core: []string{CapGraphMetrics}}))
	if !out.IsOk() {
		t.Fatalf("unexpected failure: %v", out.Err())
	}
	if calls != 1 {
		t.Fatalf("body must run once the capability is present")
	}
}

func TestBuildValidatesInputBeforeBody(t *testing.T) {
	var calls int
	built := Build(Manifest{
		ID: "ranked",
		InputSchema: ObjectSchema(map[string]*Schema{
			"path":  {Type: "string"},
			"depth": {Type: "integer"},
		}, "path"),
	}, echoRunner(&calls))

	out := built.Execute(map[string]interface{}{"depth": 3}, testPCtx(Capabilities{}))
	if out.IsOk() {
		t.Fatalf("expected an input failure")
	}
	if out.Err().Kind != construction.KindInput {
		t.Fatalf("expected input kind, got %s", out.Err().Kind)
	}
	if calls != 0 {
		t.Fatalf("body must not run on invalid input")
	}

	out = built.Execute(map[string]interface{}{"path": "internal/", "depth": 3}, testPCtx(Capabilities{}))
	if !out.IsOk() {
		t.Fatalf("unexpected failure: %v", out.Err())
	}
	if calls != 1 {
		t.Fatalf("body must run on valid input")
	}
}

package knowledge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"codeatlas/internal/registry"
)

func TestAssertAndQuery(t *testing.T) {
	s := NewStore()
	if err := s.AssertBatch([]Fact{
		{Predicate: "function", Args: []interface{}{"pkg/server.go", "handleConn"}},
		{Predicate: "function", Args: []interface{}{"pkg/server.go", "listen"}},
		{Predicate: "edge", Args: []interface{}{"listen", "/calls", "handleConn"}},
	}); err != nil {
		t.Fatalf("assert failed: %v", err)
	}

	funcs, err := s.Query("function")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(funcs) != 2 {
		t.Fatalf("expected 2 function facts, got %d", len(funcs))
	}
	for _, f := range funcs {
		if f.Args[0] != "pkg/server.go" {
			t.Fatalf("unexpected arg round-trip: %v", f.Args)
		}
	}

	edges, err := s.Query("edge")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(edges) != 1 || edges[0].Args[1] != "/calls" {
		t.Fatalf("name constant must round-trip, got %v", edges)
	}
}

func TestAssertDuplicateIsNoOp(t *testing.T) {
	s := NewStore()
	fact := Fact{Predicate: "function", Args: []interface{}{"a.go", "f"}}
	if err := s.Assert(fact); err != nil {
		t.Fatalf("assert failed: %v", err)
	}
	if err := s.Assert(fact); err != nil {
		t.Fatalf("duplicate assert failed: %v", err)
	}
	facts, err := s.Query("function")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("duplicate must not be stored twice, got %d facts", len(facts))
	}
}

func TestAssertRejectsArityMismatch(t *testing.T) {
	s := NewStore()
	if err := s.Assert(Fact{Predicate: "function", Args: []interface{}{"a.go", "f"}}); err != nil {
		t.Fatalf("assert failed: %v", err)
	}
	if err := s.Assert(Fact{Predicate: "function", Args: []interface{}{"a.go"}}); err == nil {
		t.Fatalf("arity mismatch must be rejected")
	}
}

func TestAssertRejectsUnsupportedArg(t *testing.T) {
	s := NewStore()
	if err := s.Assert(Fact{Predicate: "weight", Args: []interface{}{3.14}}); err == nil {
		t.Fatalf("float args are not representable and must be rejected")
	}
}

func TestQueryUnknownPredicate(t *testing.T) {
	s := NewStore()
	facts, err := s.Query("missing")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if facts != nil {
		t.Fatalf("unknown predicate must return nothing, got %v", facts)
	}
}

func TestPredicateCounts(t *testing.T) {
	s := NewStore()
	if err := s.AssertBatch([]Fact{
		{Predicate: "function", Args: []interface{}{"a.go", "f"}},
		{Predicate: "function", Args: []interface{}{"a.go", "g"}},
		{Predicate: "module", Args: []interface{}{"a"}},
	}); err != nil {
		t.Fatalf("assert failed: %v", err)
	}

	want := map[string]int{"function": 2, "module": 1}
	if diff := cmp.Diff(want, s.PredicateCounts()); diff != "" {
		t.Fatalf("unexpected counts (-want +got):\n%s", diff)
	}
	if s.Count() != 3 {
		t.Fatalf("expected 3 facts, got %d", s.Count())
	}
}

func TestCapabilities(t *testing.T) {
	caps := NewStore().Capabilities()
	if !caps.Has(registry.CapGraphMetrics) {
		t.Fatalf("graph metrics must be a core capability")
	}
	if caps.Has(registry.CapEmbeddings) {
		t.Fatalf("the reference store has no embedding support")
	}
}

func TestFactString(t *testing.T) {
	f := Fact{Predicate: "edge", Args: []interface{}{"a", "/calls", 2}}
	if got := f.String(); got != `edge("a", /calls, 2)` {
		t.Fatalf("unexpected datalog form: %s", got)
	}
}

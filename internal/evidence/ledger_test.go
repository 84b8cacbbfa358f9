package evidence

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryLedgerAppendOrder(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	first, err := l.Append(ctx, Entry{Kind: "analysis", Payload: map[string]interface{}{"n": 1}})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	second, err := l.Append(ctx, Entry{Kind: "analysis", Payload: map[string]interface{}{"n": 2}})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	recs := l.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != first.ID || recs[1].ID != second.ID {
		t.Fatalf("records out of append order")
	}
	if first.ID == second.ID {
		t.Fatalf("record ids must be distinct")
	}
}

func TestMemoryLedgerConcurrentAppendsGetDistinctIDs(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			if _, err := l.Append(ctx, Entry{Kind: "branch"}); err != nil {
				t.Errorf("append failed: %v", err)
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, rec := range l.Records() {
		if seen[rec.ID] {
			t.Fatalf("duplicate id %q", rec.ID)
		}
		seen[rec.ID] = true
	}
	if len(seen) != writers {
		t.Fatalf("expected %d records, got %d", writers, len(seen))
	}
}

func TestMemoryLedgerRejectsCancelledContext(t *testing.T) {
	l := NewMemoryLedger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := l.Append(ctx, Entry{Kind: "analysis"}); err == nil {
		t.Fatalf("append on a cancelled context must fail")
	}
	if len(l.Records()) != 0 {
		t.Fatalf("a failed append must not be recorded")
	}
}

func TestCountKind(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		l.Append(ctx, Entry{Kind: KindEscalationRequest})
	}
	l.Append(ctx, Entry{Kind: KindHumanOverride})

	if n := l.CountKind(KindEscalationRequest); n != 3 {
		t.Fatalf("expected 3 escalations, got %d", n)
	}
	if n := l.CountKind(KindHumanOverride); n != 1 {
		t.Fatalf("expected 1 override, got %d", n)
	}
	if n := l.CountKind("missing"); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}

func TestNewIDPrefix(t *testing.T) {
	id := NewID()
	if len(id) <= 3 || id[:3] != "ev_" {
		t.Fatalf("unexpected id shape: %q", id)
	}
}

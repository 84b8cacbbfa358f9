// Package evidence implements the append-only evidence ledger. Analysis
// results justify their conclusions by referencing ledger record ids;
// the records themselves are never embedded in results.
package evidence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Well-known entry kinds the substrate itself writes. Analysis routines
// append their own kinds alongside these.
const (
	KindEscalationRequest = "escalation_request"
	KindHumanOverride     = "human_override"
)

// Entry is what a caller appends: a kind plus an arbitrary payload.
type Entry struct {
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload"`
}

// Record is the stored form: the entry plus the ledger-assigned id and
// timestamp. Ids are opaque and compared by identity, never by content.
type Record struct {
	ID        string                 `json:"id"`
	Kind      string                 `json:"kind"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// Ledger is the append-only store contract. There is no update or delete:
// a conclusion's justification cannot be rewritten after the fact.
// Concurrent appends from different pipeline branches each get a distinct
// id; relative order across branches is unspecified.
type Ledger interface {
	Append(ctx context.Context, entry Entry) (Record, error)
}

// NewID returns a fresh evidence id.
func NewID() string {
	return "ev_" + uuid.NewString()
}

// MemoryLedger is the in-process Ledger used by tests and short-lived
// pipelines. Appends from one caller appear in call order.
type MemoryLedger struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Append implements Ledger.
func (l *MemoryLedger) Append(ctx context.Context, entry Entry) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	rec := Record{
		ID:        NewID(),
		Kind:      entry.Kind,
		Payload:   entry.Payload,
		Timestamp: time.Now().UTC(),
	}
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
	return rec, nil
}

// Records returns a snapshot of all appended records in append order.
// Read-side helper for hosts and tests; not part of the core contract.
func (l *MemoryLedger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// CountKind returns how many records of the given kind were appended.
func (l *MemoryLedger) CountKind(kind string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, rec := range l.records {
		if rec.Kind == kind {
			n++
		}
	}
	return n
}

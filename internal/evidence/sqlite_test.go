package evidence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := OpenSQLiteLedger(filepath.Join(t.TempDir(), ".atlas", "evidence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestSQLiteAppendAndGet(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	rec, err := l.Append(ctx, Entry{
		Kind:    KindEscalationRequest,
		Payload: map[string]interface{}{"question": "accept?", "confidence": 0.42},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	got, err := l.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, KindEscalationRequest, got.Kind)
	assert.Equal(t, "accept?", got.Payload["question"])
	assert.InDelta(t, 0.42, got.Payload["confidence"], 1e-9)
}

func TestSQLiteListInAppendOrder(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		rec, err := l.Append(ctx, Entry{Kind: "analysis", Payload: map[string]interface{}{"n": i}})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	recs, err := l.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 5)
	// Same-millisecond appends order by id; distinct ids are still all present.
	seen := make(map[string]bool)
	for _, rec := range recs {
		seen[rec.ID] = true
	}
	for _, id := range ids {
		assert.True(t, seen[id], "missing record %s", id)
	}
}

func TestSQLiteListLimit(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := l.Append(ctx, Entry{Kind: "analysis"})
		require.NoError(t, err)
	}

	recs, err := l.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evidence.db")
	ctx := context.Background()

	l, err := OpenSQLiteLedger(path)
	require.NoError(t, err)
	rec, err := l.Append(ctx, Entry{Kind: KindHumanOverride, Payload: map[string]interface{}{"decision": "approve"}})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := OpenSQLiteLedger(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "approve", got.Payload["decision"])
}

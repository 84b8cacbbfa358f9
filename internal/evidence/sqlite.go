package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"codeatlas/internal/logging"
)

// SQLiteLedger is the durable Ledger. Entries survive the process so a
// paused escalation can be answered after a restart.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLiteLedger opens (creating if needed) the ledger database at path.
func OpenSQLiteLedger(path string) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	// Same pragma set the local stores use: tolerate concurrent writers,
	// WAL for readers-during-append.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.EvidenceDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.EvidenceDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.EvidenceDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	l := &SQLiteLedger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Evidence("Opened evidence ledger at %s", path)
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS evidence (
			id        TEXT PRIMARY KEY,
			kind      TEXT NOT NULL,
			payload   TEXT NOT NULL,
			ts_millis INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_evidence_kind ON evidence(kind);
		CREATE INDEX IF NOT EXISTS idx_evidence_ts ON evidence(ts_millis);
	`)
	if err != nil {
		return fmt.Errorf("migrating evidence schema: %w", err)
	}
	return nil
}

// Append implements Ledger.
func (l *SQLiteLedger) Append(ctx context.Context, entry Entry) (Record, error) {
	rec := Record{
		ID:        NewID(),
		Kind:      entry.Kind,
		Payload:   entry.Payload,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return Record{}, fmt.Errorf("encoding evidence payload: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		"INSERT INTO evidence (id, kind, payload, ts_millis) VALUES (?, ?, ?, ?)",
		rec.ID, rec.Kind, string(payload), rec.Timestamp.UnixMilli())
	if err != nil {
		return Record{}, fmt.Errorf("appending evidence: %w", err)
	}
	return rec, nil
}

// Get returns a single record by id.
func (l *SQLiteLedger) Get(ctx context.Context, id string) (Record, error) {
	row := l.db.QueryRowContext(ctx,
		"SELECT id, kind, payload, ts_millis FROM evidence WHERE id = ?", id)
	return scanRecord(row)
}

// List returns up to limit records in append order, read-side convenience
// for the CLI ledger dump.
func (l *SQLiteLedger) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, kind, payload, ts_millis FROM evidence ORDER BY ts_millis, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing evidence: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec     Record
		payload string
		millis  int64
	)
	if err := row.Scan(&rec.ID, &rec.Kind, &payload, &millis); err != nil {
		return Record{}, fmt.Errorf("scanning evidence record: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
		return Record{}, fmt.Errorf("decoding evidence payload: %w", err)
	}
	rec.Timestamp = time.UnixMilli(millis).UTC()
	return rec, nil
}

package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

// SQLiteLog is an append-only Log backed by SQLite, for deployments that
// want queryable audit history instead of a flat file. Same contract as
// FileLog: insert-only, no updates or deletes.
type SQLiteLog struct {
	db *sql.DB
}

// OpenSQLiteLog opens (creating if needed) the audit table at dsn.
func OpenSQLiteLog(dsn string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	const schema = `
		CREATE TABLE IF NOT EXISTS audit_log (
			seq        INTEGER PRIMARY KEY,
			id         TEXT NOT NULL,
			timestamp  TEXT NOT NULL,
			event_type TEXT NOT NULL,
			actor      TEXT NOT NULL,
			details    TEXT,
			signature  TEXT NOT NULL,
			key_id     TEXT NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: init schema: %w", err)
	}
	return &SQLiteLog{db: db}, nil
}

// Append inserts one entry.
func (l *SQLiteLog) Append(entry contracts.AuditLogEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("audit: marshal details: %w", err)
	}
	_, err = l.db.Exec(
		`INSERT INTO audit_log (seq, id, timestamp, event_type, actor, details, signature, key_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Sequence, entry.ID, entry.Timestamp.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
		string(entry.EventType), entry.Actor, string(details), entry.Signature, entry.KeyID,
	)
	if err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

// Entries reads the full log in sequence order.
func (l *SQLiteLog) Entries() ([]contracts.AuditLogEntry, error) {
	rows, err := l.db.Query(
		`SELECT seq, id, timestamp, event_type, actor, details, signature, key_id
		 FROM audit_log ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("audit: query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []contracts.AuditLogEntry
	for rows.Next() {
		var entry contracts.AuditLogEntry
		var ts, eventType, details string
		if err := rows.Scan(&entry.Sequence, &entry.ID, &ts, &eventType, &entry.Actor, &details, &entry.Signature, &entry.KeyID); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		entry.EventType = contracts.AuditEventType(eventType)
		if err := entry.Timestamp.UnmarshalText([]byte(ts)); err != nil {
			return nil, fmt.Errorf("audit: parse timestamp: %w", err)
		}
		if details != "" && details != "null" {
			if err := json.Unmarshal([]byte(details), &entry.Details); err != nil {
				return nil, fmt.Errorf("audit: parse details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

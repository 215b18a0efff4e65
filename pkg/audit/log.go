// Package audit maintains the authoritative, append-only trail of
// lifecycle events. Every entry is signed before it is written; entries
// are never mutated or deleted. A best-effort forwarder can mirror
// entries to a remote sink, but the local log is the source of truth.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

// Log is an append-only store of signed audit entries.
type Log interface {
	Append(entry contracts.AuditLogEntry) error
	Entries() ([]contracts.AuditLogEntry, error)
}

// FileLog persists entries as newline-delimited JSON, one file per
// process/environment.
type FileLog struct {
	mu   sync.Mutex
	path string
}

// NewFileLog creates (or reopens) the append-only log at path.
func NewFileLog(path string) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	_ = f.Close()
	return &FileLog{path: path}, nil
}

// Append writes one JSON line. The file is opened append-only per write
// so concurrent processes cannot interleave partial records.
func (l *FileLog) Append(entry contracts.AuditLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("audit: open for append: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	return nil
}

// Entries reads back the full log. Malformed lines are skipped; gaps they
// leave are surfaced by VerifyLog's sequence check.
func (l *FileLog) Entries() ([]contracts.AuditLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []contracts.AuditLogEntry
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var entry contracts.AuditLogEntry
		if err := decoder.Decode(&entry); err != nil {
			break
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// MemoryLog is a transient Log for tests.
type MemoryLog struct {
	mu      sync.Mutex
	entries []contracts.AuditLogEntry

	// FailNext makes the next Append fail, for degraded-trail tests.
	FailNext error
}

// NewMemoryLog creates an in-memory audit log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append stores the entry in memory.
func (l *MemoryLog) Append(entry contracts.AuditLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailNext != nil {
		err := l.FailNext
		l.FailNext = nil
		return err
	}
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns a copy of the stored entries.
func (l *MemoryLog) Entries() ([]contracts.AuditLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]contracts.AuditLogEntry, len(l.entries))
	copy(out, l.entries)
	return out, nil
}

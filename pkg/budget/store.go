package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

// Store persists day-keyed usage records. Read-modify-write cycles are
// serialized by the Monitor; stores only need to be individually safe.
type Store interface {
	// Get returns the record for an ISO date, or a zero record if none.
	Get(ctx context.Context, day string) (contracts.UsageRecord, error)

	// Put replaces the record for an ISO date.
	Put(ctx context.Context, day string, record contracts.UsageRecord) error
}

// FileStore keeps the whole ledger as a single JSON object keyed by ISO
// calendar date, matching the on-disk layout consumed by reporting tools.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store at path. The file is created lazily.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (map[string]contracts.UsageRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]contracts.UsageRecord{}, nil
		}
		return nil, fmt.Errorf("budget: read ledger: %w", err)
	}
	ledger := map[string]contracts.UsageRecord{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ledger); err != nil {
			return nil, fmt.Errorf("budget: parse ledger: %w", err)
		}
	}
	return ledger, nil
}

// Get reads one day's record.
func (s *FileStore) Get(_ context.Context, day string) (contracts.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.load()
	if err != nil {
		return contracts.UsageRecord{}, err
	}
	if record, ok := ledger[day]; ok {
		return record.Clone(), nil
	}
	return contracts.UsageRecord{Sessions: map[string]contracts.SessionUsage{}}, nil
}

// Put writes one day's record back, rewriting the ledger atomically via a
// temp file rename.
func (s *FileStore) Put(_ context.Context, day string, record contracts.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.load()
	if err != nil {
		return err
	}
	ledger[day] = record.Clone()

	data, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("budget: marshal ledger: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("budget: write ledger: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("budget: replace ledger: %w", err)
	}
	return nil
}

// MemoryStore is a transient Store for tests.
type MemoryStore struct {
	mu     sync.Mutex
	ledger map[string]contracts.UsageRecord

	// FailNext makes the next Put fail, for fail-closed tests.
	FailNext error
}

// NewMemoryStore creates an in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ledger: map[string]contracts.UsageRecord{}}
}

// Get reads one day's record.
func (s *MemoryStore) Get(_ context.Context, day string) (contracts.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.ledger[day]; ok {
		return record.Clone(), nil
	}
	return contracts.UsageRecord{Sessions: map[string]contracts.SessionUsage{}}, nil
}

// Put writes one day's record.
func (s *MemoryStore) Put(_ context.Context, day string, record contracts.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext != nil {
		err := s.FailNext
		s.FailNext = nil
		return err
	}
	s.ledger[day] = record.Clone()
	return nil
}

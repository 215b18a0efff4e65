package budget

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

// PostgresStore implements Store on a shared transactional ledger, for
// deployments where several workers meter into the same budget.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get reads one day's record.
func (s *PostgresStore) Get(ctx context.Context, day string) (contracts.UsageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT total_tokens, total_cost, sessions FROM usage_ledger WHERE day = $1", day)

	var record contracts.UsageRecord
	var sessions []byte
	err := row.Scan(&record.TotalTokens, &record.TotalCost, &sessions)
	if err == sql.ErrNoRows {
		return contracts.UsageRecord{Sessions: map[string]contracts.SessionUsage{}}, nil
	}
	if err != nil {
		return contracts.UsageRecord{}, fmt.Errorf("budget: get usage: %w", err)
	}
	record.Sessions = map[string]contracts.SessionUsage{}
	if len(sessions) > 0 {
		if err := json.Unmarshal(sessions, &record.Sessions); err != nil {
			return contracts.UsageRecord{}, fmt.Errorf("budget: parse sessions: %w", err)
		}
	}
	return record, nil
}

// Put upserts one day's record.
func (s *PostgresStore) Put(ctx context.Context, day string, record contracts.UsageRecord) error {
	sessions, err := json.Marshal(record.Sessions)
	if err != nil {
		return fmt.Errorf("budget: marshal sessions: %w", err)
	}
	const query = `
		INSERT INTO usage_ledger (day, total_tokens, total_cost, sessions)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day) DO UPDATE SET
			total_tokens = EXCLUDED.total_tokens,
			total_cost = EXCLUDED.total_cost,
			sessions = EXCLUDED.sessions
	`
	if _, err := s.db.ExecContext(ctx, query, day, record.TotalTokens, record.TotalCost, sessions); err != nil {
		return fmt.Errorf("budget: persist usage: %w", err)
	}
	return nil
}

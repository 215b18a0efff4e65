package budget

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

func TestPostgresStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"total_tokens", "total_cost", "sessions"}).
		AddRow(1500, 0.75, `{"sess-1":{"tokens":1500,"cost":0.75}}`)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT total_tokens, total_cost, sessions FROM usage_ledger WHERE day = $1")).
		WithArgs("2026-01-12").
		WillReturnRows(rows)

	record, err := store.Get(ctx, "2026-01-12")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), record.TotalTokens)
	assert.InDelta(t, 0.75, record.Sessions["sess-1"].Cost, 1e-9)

	// Absent day yields a zero record, not an error.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT total_tokens, total_cost, sessions FROM usage_ledger WHERE day = $1")).
		WithArgs("2026-01-13").
		WillReturnRows(sqlmock.NewRows([]string{"total_tokens", "total_cost", "sessions"}))

	record, err = store.Get(ctx, "2026-01-13")
	require.NoError(t, err)
	assert.Zero(t, record.TotalTokens)
	assert.NotNil(t, record.Sessions)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorePut(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO usage_ledger")).
		WithArgs("2026-01-12", int64(2000), 1.25, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Put(context.Background(), "2026-01-12", contracts.UsageRecord{
		TotalTokens: 2000,
		TotalCost:   1.25,
		Sessions:    map[string]contracts.SessionUsage{"sess-1": {Tokens: 2000, Cost: 1.25}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package audit

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

func TestSQLiteLogRoundTrip(t *testing.T) {
	log, err := OpenSQLiteLog(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer func() { _ = log.Close() }()

	trail := NewTrail(newTestSigner(t), log, slog.Default())
	ctx := context.Background()

	_, err = trail.Record(ctx, contracts.EventEscalation, "human_review_agent", map[string]any{
		"reason": "low OCR confidence",
		"doc_id": "D-42",
	})
	require.NoError(t, err)
	_, err = trail.Record(ctx, contracts.EventOverride, "officer:O-9", nil)
	require.NoError(t, err)

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].Sequence)
	assert.Equal(t, "low OCR confidence", entries[0].Details["reason"])

	report, err := trail.VerifyLog()
	require.NoError(t, err)
	assert.True(t, report.Intact())
}

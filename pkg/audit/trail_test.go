package audit

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
	"github.com/govassist-labs/mesob/core/pkg/merkle"
	"github.com/govassist-labs/mesob/core/pkg/observability"
	"github.com/govassist-labs/mesob/core/pkg/signing"
)

func newTestSigner(t *testing.T) signing.Signer {
	t.Helper()
	s, err := signing.FromSecret([]byte("trail-test-secret"), "trail-key", false)
	require.NoError(t, err)
	return s
}

func TestTrailRecordSignsAndPersists(t *testing.T) {
	log := NewMemoryLog()
	trail := NewTrail(newTestSigner(t), log, slog.Default())

	entry, err := trail.Record(context.Background(), contracts.EventExtraction, "vision_router", map[string]any{
		"confidence": 0.85,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), entry.Sequence)
	assert.Equal(t, "trail-key", entry.KeyID)
	assert.NotEmpty(t, entry.Signature)

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	report, err := trail.VerifyLog()
	require.NoError(t, err)
	assert.True(t, report.Intact())
}

func TestTrailVerifyDetectsTampering(t *testing.T) {
	log := NewMemoryLog()
	trail := NewTrail(newTestSigner(t), log, slog.Default())

	_, err := trail.Record(context.Background(), contracts.EventEvaluation, "compliance_agent", map[string]any{"status": "PASS"})
	require.NoError(t, err)

	log.mu.Lock()
	log.entries[0].Actor = "someone_else"
	log.mu.Unlock()

	report, err := trail.VerifyLog()
	require.NoError(t, err)
	assert.False(t, report.Intact())
	assert.Equal(t, []uint64{1}, report.InvalidSignatures)
}

func TestTrailPersistenceFailureIsNonFatal(t *testing.T) {
	log := NewMemoryLog()
	trail := NewTrail(newTestSigner(t), log, slog.Default())
	ctx := context.Background()

	log.FailNext = errors.New("disk full")
	entry, err := trail.Record(ctx, contracts.EventMasking, "safety_agent", nil)
	require.NoError(t, err, "persistence failure must not block the caller")
	assert.Equal(t, uint64(1), entry.Sequence)
	assert.Equal(t, uint64(1), trail.DegradedAppends())

	// The next successful append emits a degraded-trail marker and the
	// lost sequence is visible as a continuity gap.
	_, err = trail.Record(ctx, contracts.EventEvaluation, "compliance_agent", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), trail.DegradedAppends())

	report, err := trail.VerifyLog()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, report.MissingSequences)
	assert.Equal(t, 1, report.DegradedMarkers)
}

func TestTrailResumesSequenceFromExistingLog(t *testing.T) {
	log := NewMemoryLog()
	signer := newTestSigner(t)
	ctx := context.Background()

	first := NewTrail(signer, log, slog.Default())
	for i := 0; i < 3; i++ {
		_, err := first.Record(ctx, contracts.EventTransition, "orchestrator", nil)
		require.NoError(t, err)
	}

	// A restarted process over the same log must continue numbering,
	// not reissue sequence 1.
	restarted := NewTrail(signer, log, slog.Default())
	entry, err := restarted.Record(ctx, contracts.EventTransition, "orchestrator", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), entry.Sequence)

	report, err := restarted.VerifyLog()
	require.NoError(t, err)
	assert.True(t, report.Intact())
}

func TestTrailVerifyDetectsSequenceRegression(t *testing.T) {
	log := NewMemoryLog()
	trail := NewTrail(newTestSigner(t), log, slog.Default())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := trail.Record(ctx, contracts.EventTransition, "orchestrator", nil)
		require.NoError(t, err)
	}

	// Replay a validly signed early entry at the tail, as a writer that
	// lost its place would. Signatures all verify; only the sequence
	// order betrays the problem.
	log.mu.Lock()
	log.entries = append(log.entries, log.entries[0])
	log.mu.Unlock()

	report, err := trail.VerifyLog()
	require.NoError(t, err)
	assert.False(t, report.Intact())
	assert.Equal(t, []uint64{1}, report.OutOfOrder)
	assert.Empty(t, report.InvalidSignatures)
	assert.Empty(t, report.MissingSequences)
}

func TestTrailAnchorsSignatures(t *testing.T) {
	log := NewMemoryLog()
	anchorer := merkle.NewAnchorer(2, time.Minute, slog.Default())
	trail := NewTrail(newTestSigner(t), log, slog.Default(), WithAnchorer(anchorer))
	ctx := context.Background()

	e1, err := trail.Record(ctx, contracts.EventExtraction, "vision_router", nil)
	require.NoError(t, err)
	e2, err := trail.Record(ctx, contracts.EventEvaluation, "compliance_agent", nil)
	require.NoError(t, err)

	records := anchorer.Records()
	require.Len(t, records, 1)
	want, _ := merkle.Root([]string{e1.Signature, e2.Signature})
	assert.Equal(t, want, records[0].RootHash)
	assert.Equal(t, 2, records[0].LeafCount)
}

func TestFileLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := NewFileLog(path)
	require.NoError(t, err)

	trail := NewTrail(newTestSigner(t), log, slog.Default())
	_, err = trail.Record(context.Background(), contracts.EventPortalSubmission, "portal_connector", map[string]any{
		"tracking_id": "ET-MESOB-2026-X99",
	})
	require.NoError(t, err)

	entries, err := log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, contracts.EventPortalSubmission, entries[0].EventType)

	report, err := trail.VerifyLog()
	require.NoError(t, err)
	assert.True(t, report.Intact())
}

type flakySink struct {
	failures int
	got      chan contracts.AuditLogEntry
}

func (s *flakySink) Forward(_ context.Context, entry contracts.AuditLogEntry) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.got <- entry
	return nil
}

func TestForwarderRetriesThenDelivers(t *testing.T) {
	sink := &flakySink{failures: 2, got: make(chan contracts.AuditLogEntry, 1)}
	fwd := NewForwarder(sink, 8, 3, slog.Default())
	fwd.baseDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fwd.Run(ctx)

	fwd.Enqueue(contracts.AuditLogEntry{Sequence: 7})

	select {
	case entry := <-sink.got:
		assert.Equal(t, uint64(7), entry.Sequence)
	case <-time.After(2 * time.Second):
		t.Fatal("entry never delivered")
	}
	assert.Equal(t, uint64(0), fwd.Failures())
}

func TestForwarderCountsAbandonedEntries(t *testing.T) {
	obs, err := observability.New(context.Background(), &observability.Config{Enabled: false})
	require.NoError(t, err)

	sink := &flakySink{failures: 100, got: make(chan contracts.AuditLogEntry, 1)}
	fwd := NewForwarder(sink, 8, 2, slog.Default()).WithMetrics(obs)
	fwd.baseDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fwd.Run(ctx)

	fwd.Enqueue(contracts.AuditLogEntry{Sequence: 1})

	assert.Eventually(t, func() bool {
		return fwd.Failures() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

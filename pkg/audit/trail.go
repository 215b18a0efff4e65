package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
	"github.com/govassist-labs/mesob/core/pkg/merkle"
	"github.com/govassist-labs/mesob/core/pkg/signing"
)

// Trail signs and persists lifecycle events. Appends are serialized by an
// internal lock; the trail is safe for concurrent recorders.
//
// Persistence failures are non-fatal: the caller's flow continues, the
// failure is counted, and a degraded-trail marker is emitted with the
// next successful append so the gap is detectable from the log itself.
type Trail struct {
	mu       sync.Mutex
	seq      uint64
	degraded uint64 // appends lost since the last marker

	signer    signing.Signer
	log       Log
	anchorer  *merkle.Anchorer
	forwarder *Forwarder
	logger    *slog.Logger
	clock     func() time.Time
}

// TrailOption customizes a Trail.
type TrailOption func(*Trail)

// WithAnchorer batches every recorded signature into merkle anchors.
func WithAnchorer(a *merkle.Anchorer) TrailOption {
	return func(t *Trail) { t.anchorer = a }
}

// WithForwarder mirrors entries to a remote sink, best effort.
func WithForwarder(f *Forwarder) TrailOption {
	return func(t *Trail) { t.forwarder = f }
}

// WithTrailClock overrides the clock for deterministic testing.
func WithTrailClock(clock func() time.Time) TrailOption {
	return func(t *Trail) { t.clock = clock }
}

// NewTrail creates a trail writing signed entries to log. The sequence
// continues from the highest sequence already persisted, so a process
// restart over an existing log never reissues numbers. If the log cannot
// be read the trail starts fresh; any resulting regression is still
// surfaced by VerifyLog.
func NewTrail(signer signing.Signer, log Log, logger *slog.Logger, opts ...TrailOption) *Trail {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Trail{
		signer: signer,
		log:    log,
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	entries, err := log.Entries()
	if err != nil {
		logger.Warn("existing audit log unreadable, sequence starts fresh", "error", err)
		return t
	}
	for _, entry := range entries {
		if entry.Sequence > t.seq {
			t.seq = entry.Sequence
		}
	}
	return t
}

// signedPayload is the portion of an entry covered by the signature.
type signedPayload struct {
	ID        string                  `json:"id"`
	Sequence  uint64                  `json:"sequence"`
	Timestamp string                  `json:"timestamp"`
	EventType contracts.AuditEventType `json:"event_type"`
	Actor     string                  `json:"actor"`
	Details   map[string]any          `json:"details,omitempty"`
}

func payloadOf(entry contracts.AuditLogEntry) signedPayload {
	return signedPayload{
		ID:        entry.ID,
		Sequence:  entry.Sequence,
		Timestamp: entry.Timestamp.UTC().Format(time.RFC3339Nano),
		EventType: entry.EventType,
		Actor:     entry.Actor,
		Details:   entry.Details,
	}
}

// Record signs and appends one lifecycle event, returning the entry.
// The returned error covers signing only; a persistence failure is
// handled internally as a degraded trail.
func (t *Trail) Record(ctx context.Context, eventType contracts.AuditEventType, actor string, details map[string]any) (contracts.AuditLogEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, err := t.appendLocked(eventType, actor, details)
	if err != nil {
		return contracts.AuditLogEntry{}, err
	}

	if t.anchorer != nil {
		t.anchorer.Add(ctx, entry.Signature)
	}
	if t.forwarder != nil {
		t.forwarder.Enqueue(entry)
	}
	return entry, nil
}

func (t *Trail) appendLocked(eventType contracts.AuditEventType, actor string, details map[string]any) (contracts.AuditLogEntry, error) {
	t.seq++
	entry := contracts.AuditLogEntry{
		ID:        uuid.New().String(),
		Sequence:  t.seq,
		Timestamp: t.clock().UTC(),
		EventType: eventType,
		Actor:     actor,
		Details:   details,
		KeyID:     t.signer.KeyID(),
	}

	sig, err := t.signer.Sign(payloadOf(entry))
	if err != nil {
		return contracts.AuditLogEntry{}, err
	}
	entry.Signature = sig

	if err := t.log.Append(entry); err != nil {
		t.degraded++
		t.logger.Warn("audit append failed, trail degraded",
			"sequence", entry.Sequence,
			"event_type", entry.EventType,
			"error", err)
		return entry, nil
	}

	if t.degraded > 0 && eventType != contracts.EventTrailDegraded {
		lost := t.degraded
		t.degraded = 0
		if _, err := t.appendLocked(contracts.EventTrailDegraded, "audit_trail", map[string]any{
			"lost_appends": lost,
			"recovered_at": entry.Sequence,
		}); err != nil {
			t.logger.Warn("degraded-trail marker not recorded", "error", err)
		}
	}
	return entry, nil
}

// DegradedAppends reports appends lost since the last successful marker.
func (t *Trail) DegradedAppends() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.degraded
}

// IntegrityReport summarizes a log verification pass.
type IntegrityReport struct {
	Total             int
	InvalidSignatures []uint64 // sequences whose signature did not verify
	MissingSequences  []uint64 // gaps in the sequence continuity
	OutOfOrder        []uint64 // sequences that repeat or run backwards
	DegradedMarkers   int
}

// Intact reports whether the log verified cleanly: every signature
// valid, sequences strictly increasing, no gaps.
func (r IntegrityReport) Intact() bool {
	return len(r.InvalidSignatures) == 0 && len(r.MissingSequences) == 0 && len(r.OutOfOrder) == 0
}

// VerifyLog checks every entry's signature against its own payload and
// the continuity of sequence numbers.
func (t *Trail) VerifyLog() (IntegrityReport, error) {
	entries, err := t.log.Entries()
	if err != nil {
		return IntegrityReport{}, err
	}

	report := IntegrityReport{Total: len(entries)}
	var prev uint64
	for i, entry := range entries {
		if !t.signer.Verify(payloadOf(entry), entry.Signature) {
			report.InvalidSignatures = append(report.InvalidSignatures, entry.Sequence)
		}
		if entry.EventType == contracts.EventTrailDegraded {
			report.DegradedMarkers++
		}
		// A repeated or regressing sequence means a second writer (or a
		// restart that lost its place); a gap means lost appends.
		if i > 0 && entry.Sequence <= prev {
			report.OutOfOrder = append(report.OutOfOrder, entry.Sequence)
		} else {
			for missing := prev + 1; missing < entry.Sequence; missing++ {
				report.MissingSequences = append(report.MissingSequences, missing)
			}
			prev = entry.Sequence
		}
	}
	return report, nil
}

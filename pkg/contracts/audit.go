package contracts

import "time"

// AuditEventType names a lifecycle event recorded on the audit trail.
type AuditEventType string

const (
	EventExtraction       AuditEventType = "ocr_extraction"
	EventMasking          AuditEventType = "pii_masking"
	EventEvaluation       AuditEventType = "compliance_check"
	EventEscalation       AuditEventType = "escalation_to_human"
	EventOverride         AuditEventType = "manual_override"
	EventPortalSubmission AuditEventType = "portal_submission"
	EventTransition       AuditEventType = "state_transition"
	EventTrailDegraded    AuditEventType = "trail_degraded"
)

// AuditLogEntry is a signed, append-only record of a lifecycle event.
// Entries are never mutated or deleted; the log's integrity invariant
// depends on this.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type AuditLogEntry struct {
	ID        string         `json:"id"`
	Sequence  uint64         `json:"sequence"`
	Timestamp time.Time      `json:"timestamp"`
	EventType AuditEventType `json:"event_type"`
	Actor     string         `json:"actor"`
	Details   map[string]any `json:"details,omitempty"`
	Signature string         `json:"signature"`
	KeyID     string         `json:"key_id"`
}

// MerkleAnchorRecord is the periodic commitment over a batch of audit
// signatures. Derived and recomputable, never independently mutated.
type MerkleAnchorRecord struct {
	RootHash  string    `json:"root_hash"`
	LeafCount int       `json:"leaf_count"`
	Timestamp time.Time `json:"timestamp"`
}

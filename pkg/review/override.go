package review

import (
	"context"
	"fmt"

	"github.com/govassist-labs/mesob/core/pkg/audit"
	"github.com/govassist-labs/mesob/core/pkg/contracts"
	"github.com/govassist-labs/mesob/core/pkg/signing"
)

// Overrider applies manual corrections from human officers. The corrected
// report is re-signed so downstream consumers can verify it carries the
// officer's context, and the override is recorded on the audit trail.
type Overrider struct {
	signer signing.Signer
	trail  *audit.Trail
}

// NewOverrider creates an overrider with the given signer and trail.
func NewOverrider(signer signing.Signer, trail *audit.Trail) *Overrider {
	return &Overrider{signer: signer, trail: trail}
}

// Apply produces a signed override record for the document.
func (o *Overrider) Apply(ctx context.Context, documentID, officerID string, status contracts.ComplianceStatus, corrections map[string]any) (contracts.OverrideRecord, error) {
	record := contracts.OverrideRecord{
		DocumentID:  documentID,
		Status:      status,
		Corrections: corrections,
		ReviewedBy:  officerID,
		KeyID:       o.signer.KeyID(),
	}

	payload := map[string]any{
		"document_id": record.DocumentID,
		"status":      record.Status,
		"corrections": record.Corrections,
		"reviewed_by": record.ReviewedBy,
	}
	sig, err := o.signer.Sign(payload)
	if err != nil {
		return contracts.OverrideRecord{}, fmt.Errorf("review: sign override: %w", err)
	}
	record.Signature = sig

	if _, err := o.trail.Record(ctx, contracts.EventOverride, "officer:"+officerID, map[string]any{
		"doc_id":    documentID,
		"status":    string(status),
		"signature": sig,
	}); err != nil {
		return contracts.OverrideRecord{}, fmt.Errorf("review: audit override: %w", err)
	}
	return record, nil
}

// Verify checks an override record's signature.
func (o *Overrider) Verify(record contracts.OverrideRecord) bool {
	payload := map[string]any{
		"document_id": record.DocumentID,
		"status":      record.Status,
		"corrections": record.Corrections,
		"reviewed_by": record.ReviewedBy,
	}
	return o.signer.Verify(payload, record.Signature)
}

package contracts

import "time"

// Features are the document-quality flags reported by a feature detector.
// Pointers distinguish "explicitly absent" from "not detected at all":
// a warning is only warranted when a flag is explicitly false.
type Features struct {
	HasStamp     *bool `json:"has_stamp,omitempty"`
	HasSignature *bool `json:"has_signature,omitempty"`
}

// ExtractionResult is the stable output contract of the vision/OCR
// capability. Confidence is in [0,1].
//
//nolint:govet // fieldalignment: struct layout is human-readable
type ExtractionResult struct {
	RawText    string            `json:"raw_text"`
	Confidence float64           `json:"confidence"`
	Method     string            `json:"method"`
	Features   Features          `json:"features"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// ReviewTicket is the payload handed to the human review queue when a
// document leaves automated processing.
type ReviewTicket struct {
	TicketID      string        `json:"ticket_id"`
	DocumentID    string        `json:"document_id"`
	Reason        string        `json:"reason"`
	ExtractedData ExtractedData `json:"extracted_data"`
	CreatedAt     time.Time     `json:"created_at"`
}

// OverrideRecord is a re-signed report produced when a human officer
// applies manual corrections.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type OverrideRecord struct {
	DocumentID  string           `json:"document_id"`
	Status      ComplianceStatus `json:"status"`
	Corrections map[string]any   `json:"corrections"`
	ReviewedBy  string           `json:"reviewed_by"`
	Signature   string           `json:"signature"`
	KeyID       string           `json:"key_id"`
}

// SubmissionReceipt is the portal's acknowledgement of an application.
// On transport failure the tracking id is locally minted; Fallback marks
// that case.
type SubmissionReceipt struct {
	TrackingID  string    `json:"tracking_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	Fallback    bool      `json:"fallback"`
}

// RegulationSnippet is one retrieved regulation fragment.
type RegulationSnippet struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

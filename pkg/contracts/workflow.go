// Package contracts defines the shared data contracts of the compliance
// orchestration core: workflow state, compliance reports, audit records,
// usage ledgers and the capability payloads exchanged with external
// collaborators (vision, review queue, portal).
package contracts

// DocumentState is the closed enumeration of orchestration states.
// Transitions are monotonic toward a terminal state; a terminal state
// never re-enters a non-terminal one.
type DocumentState string

const (
	StateReceived   DocumentState = "RECEIVED"
	StateExtracting DocumentState = "EXTRACTING"
	StateMasking    DocumentState = "MASKING"
	StateEvaluating DocumentState = "EVALUATING"
	StateComplete   DocumentState = "COMPLETE"
	StateEscalated  DocumentState = "ESCALATED"
	StateFailed     DocumentState = "FAILED"
)

// Terminal reports whether the state is terminal.
func (s DocumentState) Terminal() bool {
	switch s {
	case StateComplete, StateEscalated, StateFailed:
		return true
	}
	return false
}

// WorkflowContext is the per-document mutable record carried through a
// single orchestration run. DocumentID is immutable once set. The context
// is owned exclusively by one run at a time; it is not safe for sharing
// across concurrent runs.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type WorkflowContext struct {
	DocumentID    string             `json:"document_id"`
	SessionID     string             `json:"session_id"`
	Service       string             `json:"service"`
	Action        string             `json:"action"`
	State         DocumentState      `json:"state"`
	ExtractedData ExtractedData      `json:"extracted_data"`
	Confidence    map[string]float64 `json:"confidence"`
	Issues        []Issue            `json:"issues"`
	AuditIDs      []string           `json:"audit_ids"`
	Report        *ComplianceReport  `json:"report,omitempty"`
	Escalation    *ReviewTicket      `json:"escalation,omitempty"`
}

// ExtractedData is the normalized output of extraction plus any
// user-declared document types seeded before the run.
type ExtractedData struct {
	Documents  []string          `json:"documents"`
	RawText    string            `json:"raw_text,omitempty"`
	MaskedText string            `json:"masked_text,omitempty"`
	PIIMasked  bool              `json:"pii_masked"`
	Features   Features          `json:"features"`
	Fields     map[string]string `json:"fields,omitempty"`
}

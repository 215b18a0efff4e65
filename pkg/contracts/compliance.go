package contracts

// ComplianceStatus is the outcome of a deterministic evaluation.
type ComplianceStatus string

const (
	StatusPass        ComplianceStatus = "PASS"
	StatusFail        ComplianceStatus = "FAIL"
	StatusConditional ComplianceStatus = "CONDITIONAL"
	StatusUncertain   ComplianceStatus = "UNCERTAIN"
)

// IssueSeverity classifies a compliance issue.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "ERROR"
	SeverityWarning IssueSeverity = "WARNING"
	SeverityInfo    IssueSeverity = "INFO"
)

// Issue codes emitted by the deterministic engine.
const (
	CodeMissingDocument  = "MISSING_DOCUMENT"
	CodeStampMissing     = "STAMP_MISSING"
	CodeSignatureMissing = "SIGNATURE_MISSING"
	CodeEngineGap        = "ENGINE_GAP"
)

// Issue is a single finding in a compliance report.
type Issue struct {
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Severity    IssueSeverity `json:"severity"`
	Remediation string        `json:"remediation,omitempty"`
}

// ComplianceReport is produced once per evaluation and immutable after
// creation. ReadinessScore is always in [0,100].
type ComplianceReport struct {
	Status         ComplianceStatus `json:"status"`
	ReadinessScore int              `json:"readiness_score"`
	Issues         []Issue          `json:"issues"`
}

// PlaybookStep is one procedural step of a government service playbook,
// naming the evidentiary documents it requires.
type PlaybookStep struct {
	Name         string   `json:"name" yaml:"name"`
	Requirements []string `json:"requirements" yaml:"requirements"`
}

// Playbook is the immutable declarative procedure for a (service, action)
// pair. Loaded once per evaluation and never mutated.
type Playbook struct {
	SchemaVersion string         `json:"schema_version" yaml:"schema_version"`
	Jurisdiction  string         `json:"jurisdiction" yaml:"jurisdiction"`
	Service       string         `json:"service" yaml:"service"`
	Action        string         `json:"action" yaml:"action"`
	Steps         []PlaybookStep `json:"steps" yaml:"steps"`
}

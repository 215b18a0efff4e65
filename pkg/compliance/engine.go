// Package compliance evaluates extracted document data against service
// playbooks. The engine is a pure function: identical inputs always yield
// identical reports, with no network or time dependency, so it is safe to
// re-run under at-least-once retry semantics.
package compliance

import (
	"fmt"
	"math"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

// Engine is the deterministic compliance evaluator.
type Engine struct{}

// NewEngine creates the evaluator.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate checks the extracted data against the playbook and produces an
// immutable report. ReadinessScore is the rounded percentage of required
// documents present, clamped to [0,100].
func (e *Engine) Evaluate(extracted contracts.ExtractedData, playbook contracts.Playbook) contracts.ComplianceReport {
	required := flattenRequirements(playbook)

	// No requirements, nothing to fail: an empty playbook is fully ready
	// regardless of other data.
	if len(required) == 0 {
		return contracts.ComplianceReport{
			Status:         deriveStatus(extracted.Documents, nil),
			ReadinessScore: 100,
		}
	}

	present := make(map[string]bool, len(extracted.Documents))
	for _, doc := range extracted.Documents {
		present[doc] = true
	}

	var missing []string
	for _, doc := range required {
		if !present[doc] {
			missing = append(missing, doc)
		}
	}

	score := readinessScore(len(required), len(missing))

	var issues []contracts.Issue
	for _, doc := range missing {
		issues = append(issues, contracts.Issue{
			Code:        contracts.CodeMissingDocument,
			Message:     fmt.Sprintf("Required document missing: %s", doc),
			Severity:    contracts.SeverityError,
			Remediation: fmt.Sprintf("Upload a clear scan or photo of: %s", doc),
		})
	}
	issues = append(issues, featureIssues(extracted.Features)...)

	return contracts.ComplianceReport{
		Status:         deriveStatus(extracted.Documents, issues),
		ReadinessScore: score,
		Issues:         issues,
	}
}

// readinessScore maps the fraction of required documents present onto
// [0,100], rounding half away from zero. A score of 100 is reserved for
// the fully complete case: anything missing caps the score at 99 so the
// score never claims readiness it does not have.
func readinessScore(total, missing int) int {
	score := int(math.Round(float64(total-missing) / float64(total) * 100))
	if missing > 0 && score > 99 {
		score = 99
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// flattenRequirements collects every step's requirements into one
// ordered, de-duplicated list.
func flattenRequirements(playbook contracts.Playbook) []string {
	seen := make(map[string]bool)
	var required []string
	for _, step := range playbook.Steps {
		for _, doc := range step.Requirements {
			if doc == "" || seen[doc] {
				continue
			}
			seen[doc] = true
			required = append(required, doc)
		}
	}
	return required
}

// featureIssues warns on quality flags only when a detector explicitly
// reported them false; an absent flag is not a warning.
func featureIssues(features contracts.Features) []contracts.Issue {
	var issues []contracts.Issue
	if features.HasStamp != nil && !*features.HasStamp {
		issues = append(issues, contracts.Issue{
			Code:        contracts.CodeStampMissing,
			Message:     "Official stamp not detected on the uploaded document.",
			Severity:    contracts.SeverityWarning,
			Remediation: "Retake the photo ensuring the stamp is fully visible and in focus.",
		})
	}
	if features.HasSignature != nil && !*features.HasSignature {
		issues = append(issues, contracts.Issue{
			Code:        contracts.CodeSignatureMissing,
			Message:     "Required signature not detected on the uploaded document.",
			Severity:    contracts.SeverityWarning,
			Remediation: "Retake or re-upload the document with a visible signature.",
		})
	}
	return issues
}

// deriveStatus applies the precedence order: UNCERTAIN when the present
// document list is empty, else FAIL on any error, else CONDITIONAL on any
// warning, else PASS.
func deriveStatus(presentDocs []string, issues []contracts.Issue) contracts.ComplianceStatus {
	if len(presentDocs) == 0 {
		return contracts.StatusUncertain
	}
	hasError, hasWarning := false, false
	for _, issue := range issues {
		switch issue.Severity {
		case contracts.SeverityError:
			hasError = true
		case contracts.SeverityWarning:
			hasWarning = true
		}
	}
	switch {
	case hasError:
		return contracts.StatusFail
	case hasWarning:
		return contracts.StatusConditional
	default:
		return contracts.StatusPass
	}
}

// GapReport is the report produced when no deterministic rule set is
// configured for a service: an UNCERTAIN outcome with a single INFO
// issue, routed to human review by the orchestrator.
func GapReport(service, action string) contracts.ComplianceReport {
	return contracts.ComplianceReport{
		Status:         contracts.StatusUncertain,
		ReadinessScore: 0,
		Issues: []contracts.Issue{{
			Code:     contracts.CodeEngineGap,
			Message:  fmt.Sprintf("No deterministic rule set configured for %s/%s.", service, action),
			Severity: contracts.SeverityInfo,
		}},
	}
}

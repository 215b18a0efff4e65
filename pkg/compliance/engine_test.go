package compliance

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

func boolPtr(b bool) *bool { return &b }

func tradeLicensePlaybook() contracts.Playbook {
	return contracts.Playbook{
		SchemaVersion: "1.0.0",
		Jurisdiction:  "addis-ababa",
		Service:       "Trade License",
		Action:        "renewal",
		Steps: []contracts.PlaybookStep{
			{Name: "submit-evidence", Requirements: []string{"TradeLicense", "TIN"}},
			{Name: "premises", Requirements: []string{"Lease", "TIN"}},
		},
	}
}

func TestEvaluateMissingDocument(t *testing.T) {
	// Playbook requires [TradeLicense, TIN, Lease]; TIN appears twice in
	// the steps but is counted once.
	engine := NewEngine()

	report := engine.Evaluate(contracts.ExtractedData{
		Documents: []string{"TradeLicense", "TIN"},
	}, tradeLicensePlaybook())

	assert.Equal(t, contracts.StatusFail, report.Status)
	assert.Equal(t, 67, report.ReadinessScore)
	require.Len(t, report.Issues, 1)
	issue := report.Issues[0]
	assert.Equal(t, contracts.CodeMissingDocument, issue.Code)
	assert.Equal(t, contracts.SeverityError, issue.Severity)
	assert.Equal(t, "Upload a clear scan or photo of: Lease", issue.Remediation)
}

func TestEvaluateAllPresent(t *testing.T) {
	engine := NewEngine()

	report := engine.Evaluate(contracts.ExtractedData{
		Documents: []string{"TradeLicense", "TIN", "Lease"},
	}, tradeLicensePlaybook())

	assert.Equal(t, contracts.StatusPass, report.Status)
	assert.Equal(t, 100, report.ReadinessScore)
	assert.Empty(t, report.Issues)
}

func TestEvaluateEmptyPresentIsUncertain(t *testing.T) {
	engine := NewEngine()

	report := engine.Evaluate(contracts.ExtractedData{}, tradeLicensePlaybook())

	// UNCERTAIN overrides the FAIL the missing documents would imply.
	assert.Equal(t, contracts.StatusUncertain, report.Status)
	assert.Equal(t, 0, report.ReadinessScore)
	assert.Len(t, report.Issues, 3)
}

func TestEvaluateFeatureWarnings(t *testing.T) {
	engine := NewEngine()
	playbook := tradeLicensePlaybook()

	// Explicitly false flags warn and downgrade to CONDITIONAL.
	report := engine.Evaluate(contracts.ExtractedData{
		Documents: []string{"TradeLicense", "TIN", "Lease"},
		Features:  contracts.Features{HasStamp: boolPtr(false), HasSignature: boolPtr(true)},
	}, playbook)
	assert.Equal(t, contracts.StatusConditional, report.Status)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, contracts.CodeStampMissing, report.Issues[0].Code)

	// Absent flags are not warnings.
	report = engine.Evaluate(contracts.ExtractedData{
		Documents: []string{"TradeLicense", "TIN", "Lease"},
	}, playbook)
	assert.Equal(t, contracts.StatusPass, report.Status)
}

func TestEvaluateEmptyPlaybook(t *testing.T) {
	engine := NewEngine()

	report := engine.Evaluate(contracts.ExtractedData{
		Documents: []string{"Anything"},
		Features:  contracts.Features{HasStamp: boolPtr(false)},
	}, contracts.Playbook{SchemaVersion: "1.0.0"})

	// No requirements, nothing to fail: score 100, no issues, even with
	// a false quality flag.
	assert.Equal(t, contracts.StatusPass, report.Status)
	assert.Equal(t, 100, report.ReadinessScore)
	assert.Empty(t, report.Issues)
}

func TestEvaluateIdempotent(t *testing.T) {
	engine := NewEngine()
	extracted := contracts.ExtractedData{Documents: []string{"TIN"}}
	playbook := tradeLicensePlaybook()

	first := engine.Evaluate(extracted, playbook)
	second := engine.Evaluate(extracted, playbook)
	assert.Equal(t, first, second)
}

func TestGapReport(t *testing.T) {
	report := GapReport("Passport", "renewal")
	assert.Equal(t, contracts.StatusUncertain, report.Status)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, contracts.CodeEngineGap, report.Issues[0].Code)
	assert.Equal(t, contracts.SeverityInfo, report.Issues[0].Severity)
}

func TestReadinessScoreProperties(t *testing.T) {
	engine := NewEngine()

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 300
	properties := gopter.NewProperties(params)

	genDocs := gen.SliceOf(gen.Identifier())

	properties.Property("score in [0,100] and 100 iff nothing missing", prop.ForAll(
		func(required, present []string) bool {
			playbook := contracts.Playbook{
				SchemaVersion: "1.0.0",
				Steps:         []contracts.PlaybookStep{{Name: "all", Requirements: required}},
			}
			report := engine.Evaluate(contracts.ExtractedData{Documents: present}, playbook)
			if report.ReadinessScore < 0 || report.ReadinessScore > 100 {
				return false
			}
			missing := 0
			for _, issue := range report.Issues {
				if issue.Code == contracts.CodeMissingDocument {
					missing++
				}
			}
			return (report.ReadinessScore == 100) == (missing == 0)
		},
		genDocs,
		genDocs,
	))

	properties.Property("status matches issue severities", prop.ForAll(
		func(required, present []string) bool {
			playbook := contracts.Playbook{
				SchemaVersion: "1.0.0",
				Steps:         []contracts.PlaybookStep{{Name: "all", Requirements: required}},
			}
			report := engine.Evaluate(contracts.ExtractedData{Documents: present}, playbook)

			if len(present) == 0 {
				return report.Status == contracts.StatusUncertain
			}
			hasError := false
			for _, issue := range report.Issues {
				if issue.Severity == contracts.SeverityError {
					hasError = true
				}
			}
			if hasError {
				return report.Status == contracts.StatusFail
			}
			return report.Status == contracts.StatusPass || report.Status == contracts.StatusConditional
		},
		genDocs,
		genDocs,
	))

	properties.TestingRun(t)
}

// Package orchestrator coordinates the document lifecycle: extraction,
// PII masking, deterministic compliance evaluation and, when automated
// processing cannot finish, escalation to human review. Every state
// change is audited before it takes effect; audit persistence failure
// degrades the trail but never blocks the workflow.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/govassist-labs/mesob/core/pkg/audit"
	"github.com/govassist-labs/mesob/core/pkg/compliance"
	"github.com/govassist-labs/mesob/core/pkg/contracts"
	"github.com/govassist-labs/mesob/core/pkg/llm"
	"github.com/govassist-labs/mesob/core/pkg/observability"
	"github.com/govassist-labs/mesob/core/pkg/portal"
	"github.com/govassist-labs/mesob/core/pkg/privacy"
	"github.com/govassist-labs/mesob/core/pkg/regulation"
	"github.com/govassist-labs/mesob/core/pkg/review"
	"github.com/govassist-labs/mesob/core/pkg/vision"
)

// DefaultConfidenceThreshold is the extraction confidence below which a
// document routes to human review.
const DefaultConfidenceThreshold = 0.6

// Escalation reasons surfaced on review tickets and audit events.
const (
	ReasonLowConfidence   = "low OCR confidence"
	ReasonExtractionError = "extraction error"
	ReasonBudgetExceeded  = "budget exceeded"
	ReasonCancelled       = "run cancelled"
)

const actorOrchestrator = "orchestrator"

// Document is one intake submission handed to Run.
type Document struct {
	ID                string
	SessionID         string
	Service           string
	Action            string
	Payload           []byte
	DeclaredDocuments []string
}

// Deps are the required collaborators of the engine. All are injected;
// the engine holds no global state.
type Deps struct {
	Extractor vision.Extractor
	Masker    *privacy.Masker
	Evaluator *compliance.Engine
	Registry  *compliance.Registry
	Trail     *audit.Trail
	Queue     review.Queue
	Portal    portal.Client
}

// Engine runs the document workflow state machine.
type Engine struct {
	deps        Deps
	governed    *llm.Governed
	regulations regulation.Retriever
	obs         *observability.Provider
	logger      *slog.Logger
	threshold   float64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithGovernedLLM enables the advisory officer-summary call during
// evaluation, gated by the budget enforcer.
func WithGovernedLLM(g *llm.Governed) Option {
	return func(e *Engine) { e.governed = g }
}

// WithRegulations supplies regulation context for the summary prompt.
func WithRegulations(r regulation.Retriever) Option {
	return func(e *Engine) { e.regulations = r }
}

// WithObservability wires tracing and workflow metrics.
func WithObservability(p *observability.Provider) Option {
	return func(e *Engine) { e.obs = p }
}

// WithConfidenceThreshold overrides the extraction confidence floor.
func WithConfidenceThreshold(v float64) Option {
	return func(e *Engine) { e.threshold = v }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine builds an engine over the given collaborators.
func NewEngine(deps Deps, opts ...Option) *Engine {
	e := &Engine{
		deps:      deps,
		logger:    slog.Default().With("component", "orchestrator"),
		threshold: DefaultConfidenceThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drives one document from intake to a terminal state and returns
// the finished workflow context. Cancellation is observed between
// steps: the run transitions to FAILED and the context error is
// returned alongside the partial result.
func (e *Engine) Run(ctx context.Context, doc Document) (*contracts.WorkflowContext, error) {
	wc := &contracts.WorkflowContext{
		DocumentID: doc.ID,
		SessionID:  doc.SessionID,
		Service:    doc.Service,
		Action:     doc.Action,
		State:      contracts.StateReceived,
		ExtractedData: contracts.ExtractedData{
			Documents: doc.DeclaredDocuments,
		},
		Confidence: map[string]float64{},
	}
	if wc.SessionID == "" {
		wc.SessionID = doc.ID
	}

	var finish func(string, error)
	if e.obs != nil {
		ctx, finish = e.obs.TrackWorkflow(ctx, doc.ID)
	}

	var runErr error
	for !wc.State.Terminal() {
		sig := e.step(ctx, wc, doc)

		// Cancellation is observed at step boundaries: whatever the
		// step produced stays recorded, but no further transition is
		// taken except the one to FAILED.
		if err := ctx.Err(); err != nil {
			e.transition(ctx, wc, contracts.StateFailed, ReasonCancelled)
			runErr = err
			break
		}

		to, ok := nextState(wc.State, sig)
		if !ok {
			e.transition(ctx, wc, contracts.StateFailed, fmt.Sprintf("no transition from %s", wc.State))
			runErr = fmt.Errorf("orchestrator: no transition from state %s", wc.State)
			break
		}

		e.transition(ctx, wc, to, sig.reason)
		if to == contracts.StateEscalated {
			e.escalate(ctx, wc, sig.reason)
		}
	}

	if finish != nil {
		finish(string(wc.State), runErr)
	}
	e.logger.Info("workflow finished",
		slog.String("document_id", wc.DocumentID),
		slog.String("state", string(wc.State)))
	return wc, runErr
}

// step executes the work of the current state and reports its signals.
func (e *Engine) step(ctx context.Context, wc *contracts.WorkflowContext, doc Document) signals {
	switch wc.State {
	case contracts.StateReceived:
		// Intake itself has no side effects.
		return signals{}
	case contracts.StateExtracting:
		return e.extract(ctx, wc, doc)
	case contracts.StateMasking:
		return e.mask(ctx, wc)
	case contracts.StateEvaluating:
		return e.evaluate(ctx, wc)
	default:
		return signals{}
	}
}

func (e *Engine) extract(ctx context.Context, wc *contracts.WorkflowContext, doc Document) signals {
	result, err := e.deps.Extractor.Extract(ctx, doc.Payload)
	if err != nil {
		wc.Confidence["extraction"] = 0
		e.record(ctx, wc, contracts.EventExtraction, map[string]any{
			"document_id": wc.DocumentID,
			"confidence":  0.0,
			"error":       err.Error(),
		})
		return signals{extractionErr: true, reason: ReasonExtractionError}
	}

	wc.ExtractedData.RawText = result.RawText
	wc.ExtractedData.Features = result.Features
	if len(result.Fields) > 0 {
		if wc.ExtractedData.Fields == nil {
			wc.ExtractedData.Fields = map[string]string{}
		}
		for k, v := range result.Fields {
			wc.ExtractedData.Fields[k] = v
		}
	}
	wc.Confidence["extraction"] = result.Confidence

	e.record(ctx, wc, contracts.EventExtraction, map[string]any{
		"document_id": wc.DocumentID,
		"confidence":  result.Confidence,
		"method":      result.Method,
	})

	if result.Confidence < e.threshold {
		return signals{lowConfidence: true, reason: ReasonLowConfidence}
	}
	return signals{}
}

func (e *Engine) mask(ctx context.Context, wc *contracts.WorkflowContext) signals {
	result := e.deps.Masker.Mask(wc.ExtractedData.RawText)
	wc.ExtractedData.MaskedText = result.MaskedText
	wc.ExtractedData.PIIMasked = result.PIIDetected

	e.record(ctx, wc, contracts.EventMasking, map[string]any{
		"document_id": wc.DocumentID,
		"pii_masked":  result.PIIDetected,
	})
	return signals{}
}

func (e *Engine) evaluate(ctx context.Context, wc *contracts.WorkflowContext) signals {
	var report contracts.ComplianceReport
	playbook, err := e.deps.Registry.Lookup(wc.Service, wc.Action)
	switch {
	case errors.Is(err, compliance.ErrNoPlaybook):
		report = compliance.GapReport(wc.Service, wc.Action)
	case err != nil:
		e.logger.Warn("playbook lookup failed",
			slog.String("service", wc.Service),
			slog.Any("error", err))
		report = compliance.GapReport(wc.Service, wc.Action)
	default:
		report = e.deps.Evaluator.Evaluate(wc.ExtractedData, playbook)
	}

	if e.governed != nil {
		if denied := e.summarize(ctx, wc, report); denied {
			return signals{budgetDenied: true, reason: ReasonBudgetExceeded}
		}
	}

	wc.Report = &report
	wc.Issues = append(wc.Issues, report.Issues...)

	e.record(ctx, wc, contracts.EventEvaluation, map[string]any{
		"document_id":     wc.DocumentID,
		"status":          string(report.Status),
		"readiness_score": report.ReadinessScore,
		"issue_count":     len(report.Issues),
	})

	var reason string
	if report.Status == contracts.StatusFail || report.Status == contracts.StatusUncertain {
		reason = fmt.Sprintf("compliance status %s", report.Status)
	}
	return signals{status: report.Status, reason: reason}
}

// summarize runs the governed officer-summary call. It reports whether
// the budget enforcer denied the call. The summary is applied to the
// context only when the run has not been cancelled.
func (e *Engine) summarize(ctx context.Context, wc *contracts.WorkflowContext, report contracts.ComplianceReport) bool {
	resp, err := e.governed.Invoke(ctx, wc.SessionID, e.summaryRequest(ctx, wc, report))
	switch {
	case errors.Is(err, llm.ErrBudgetExceeded):
		return true
	case errors.Is(err, llm.ErrCancelled):
		// Completed call, result discarded.
		return false
	case err != nil:
		// Advisory only: the deterministic report stands.
		e.logger.Warn("officer summary unavailable",
			slog.String("document_id", wc.DocumentID),
			slog.Any("error", err))
		return false
	}

	if wc.ExtractedData.Fields == nil {
		wc.ExtractedData.Fields = map[string]string{}
	}
	wc.ExtractedData.Fields["officer_summary"] = resp.Content
	return false
}

func (e *Engine) summaryRequest(ctx context.Context, wc *contracts.WorkflowContext, report contracts.ComplianceReport) llm.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Compliance status %s, readiness %d.\n", report.Status, report.ReadinessScore)
	for _, issue := range report.Issues {
		fmt.Fprintf(&sb, "- [%s] %s\n", issue.Severity, issue.Message)
	}

	if e.regulations != nil {
		snippets, err := e.regulations.Retrieve(ctx, wc.Service, wc.Action)
		if err != nil {
			e.logger.Debug("regulation retrieval failed", slog.Any("error", err))
		}
		for _, s := range snippets {
			fmt.Fprintf(&sb, "Regulation %s: %s\n", s.ID, s.Content)
		}
	}

	// Only masked text leaves the process.
	return llm.Request{
		Model: "llama-3.1-70b-versatile",
		Messages: []llm.Message{
			{Role: "system", Content: "Summarize the compliance findings for a case officer."},
			{Role: "user", Content: sb.String() + "\n" + wc.ExtractedData.MaskedText},
		},
		MaxOutputTokens: 512,
	}
}

// transition audits the state change and then applies it.
func (e *Engine) transition(ctx context.Context, wc *contracts.WorkflowContext, to contracts.DocumentState, reason string) {
	details := map[string]any{
		"document_id": wc.DocumentID,
		"from":        string(wc.State),
		"to":          string(to),
	}
	if reason != "" {
		details["reason"] = reason
	}
	e.record(ctx, wc, contracts.EventTransition, details)

	if e.obs != nil {
		e.obs.RecordTransition(ctx, string(wc.State), string(to))
	}
	wc.State = to
}

func (e *Engine) escalate(ctx context.Context, wc *contracts.WorkflowContext, reason string) {
	ticket := review.NewTicket(wc.DocumentID, reason, wc.ExtractedData)
	if _, err := e.deps.Queue.Submit(ctx, ticket); err != nil {
		// The workflow is escalated regardless; only the queue handoff
		// is lost, and the audit trail still carries the ticket.
		e.logger.Warn("review queue submit failed",
			slog.String("document_id", wc.DocumentID),
			slog.Any("error", err))
	}
	wc.Escalation = &ticket

	e.record(ctx, wc, contracts.EventEscalation, map[string]any{
		"document_id": wc.DocumentID,
		"ticket_id":   ticket.TicketID,
		"reason":      reason,
	})
	if e.obs != nil {
		e.obs.RecordEscalation(ctx, reason)
	}
}

// Submit sends a completed workflow to the external portal. The client
// never returns an error: transport failure yields a locally minted
// fallback receipt, recorded as such on the trail.
func (e *Engine) Submit(ctx context.Context, wc *contracts.WorkflowContext, applicationType string) contracts.SubmissionReceipt {
	receipt := e.deps.Portal.SubmitApplication(ctx, portal.Application{
		DocumentID:      wc.DocumentID,
		ApplicationType: applicationType,
		Fields:          wc.ExtractedData.Fields,
	})

	e.record(ctx, wc, contracts.EventPortalSubmission, map[string]any{
		"document_id": wc.DocumentID,
		"tracking_id": receipt.TrackingID,
		"status":      receipt.Status,
		"fallback":    receipt.Fallback,
	})
	return receipt
}

// record appends one lifecycle event and tracks its id on the context.
// Signing failure is the only hard error a Trail surfaces; the workflow
// carries on either way.
func (e *Engine) record(ctx context.Context, wc *contracts.WorkflowContext, event contracts.AuditEventType, details map[string]any) {
	entry, err := e.deps.Trail.Record(context.WithoutCancel(ctx), event, actorOrchestrator, details)
	if err != nil {
		e.logger.Error("audit record failed",
			slog.String("event_type", string(event)),
			slog.Any("error", err))
		return
	}
	wc.AuditIDs = append(wc.AuditIDs, entry.ID)
}

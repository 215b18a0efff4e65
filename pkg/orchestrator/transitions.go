package orchestrator

import "github.com/govassist-labs/mesob/core/pkg/contracts"

// signals carries the observations from executing one state's work. The
// transition predicates consume them; nothing else does.
type signals struct {
	extractionErr bool
	lowConfidence bool
	budgetDenied  bool
	status        contracts.ComplianceStatus
	reason        string
}

type transition struct {
	from contracts.DocumentState
	when func(signals) bool
	to   contracts.DocumentState
}

func always(signals) bool { return true }

// transitions is the closed transition table. The dispatcher picks the
// first row whose predicate matches, so escalation rows precede the
// happy-path row for the same state.
var transitions = []transition{
	{contracts.StateReceived, always, contracts.StateExtracting},

	{contracts.StateExtracting, func(s signals) bool { return s.extractionErr || s.lowConfidence }, contracts.StateEscalated},
	{contracts.StateExtracting, always, contracts.StateMasking},

	// Masking is pure and cannot fail the flow.
	{contracts.StateMasking, always, contracts.StateEvaluating},

	{contracts.StateEvaluating, func(s signals) bool { return s.budgetDenied }, contracts.StateEscalated},
	{contracts.StateEvaluating, func(s signals) bool {
		return s.status == contracts.StatusFail || s.status == contracts.StatusUncertain
	}, contracts.StateEscalated},
	{contracts.StateEvaluating, always, contracts.StateComplete},
}

// nextState resolves the successor of from given the step's signals.
func nextState(from contracts.DocumentState, s signals) (contracts.DocumentState, bool) {
	for _, t := range transitions {
		if t.from == from && t.when(s) {
			return t.to, true
		}
	}
	return from, false
}

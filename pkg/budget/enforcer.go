package budget

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Decision is the outcome of a budget check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Limits configures the enforcement thresholds in USD.
type Limits struct {
	DailyUSD   float64
	SessionUSD float64
}

// Enforcer gates governed calls against the monitor's ledger. Fails
// closed: any error reading the ledger denies the call.
//
// Reservations close the check-before/account-after race: a caller
// reserves the estimated cost before dispatch, then commits the actual
// cost on success or releases the reservation on failure. Concurrent
// reservations count toward the limits, so two calls in the same session
// cannot both pass a check that only one of them fits under.
type Enforcer struct {
	mu       sync.Mutex
	monitor  *Monitor
	limits   Limits
	reserved map[string]reservation
}

type reservation struct {
	sessionID string
	amount    float64
}

// NewEnforcer creates an enforcer over monitor with the given limits.
func NewEnforcer(monitor *Monitor, limits Limits) *Enforcer {
	return &Enforcer{
		monitor:  monitor,
		limits:   limits,
		reserved: map[string]reservation{},
	}
}

// IsAllowed checks whether a governed call may be dispatched for the
// session. The reason is human-readable and surfaced verbatim to the
// caller on denial.
func (e *Enforcer) IsAllowed(ctx context.Context, sessionID string) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkLocked(ctx, sessionID, 0)
}

// Reserve tentatively reserves the estimated cost ahead of dispatch.
// On denial no reservation is held and the decision carries the reason.
func (e *Enforcer) Reserve(ctx context.Context, sessionID string, estimatedUSD float64) (string, Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	decision, err := e.checkLocked(ctx, sessionID, estimatedUSD)
	if err != nil || !decision.Allowed {
		return "", decision, err
	}

	id := uuid.New().String()
	e.reserved[id] = reservation{sessionID: sessionID, amount: estimatedUSD}
	return id, decision, nil
}

// Commit replaces a reservation with the actual metered usage.
func (e *Enforcer) Commit(ctx context.Context, reservationID, model string, inputTokens, outputTokens int64) (float64, error) {
	e.mu.Lock()
	res, ok := e.reserved[reservationID]
	delete(e.reserved, reservationID)
	e.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("budget: unknown reservation %q", reservationID)
	}
	return e.monitor.TrackUsage(ctx, model, inputTokens, outputTokens, res.sessionID)
}

// Release drops a reservation without recording usage (call failed).
func (e *Enforcer) Release(reservationID string) {
	e.mu.Lock()
	delete(e.reserved, reservationID)
	e.mu.Unlock()
}

func (e *Enforcer) checkLocked(ctx context.Context, sessionID string, extra float64) (Decision, error) {
	usage, err := e.monitor.DailyUsage(ctx)
	if err != nil {
		// Fail closed: an unreadable ledger denies the call.
		return Decision{Allowed: false, Reason: fmt.Sprintf("budget check failed: %v", err)}, err
	}

	dayReserved, sessionReserved := 0.0, 0.0
	for _, res := range e.reserved {
		dayReserved += res.amount
		if res.sessionID == sessionID {
			sessionReserved += res.amount
		}
	}

	if usage.TotalCost+dayReserved+extra >= e.limits.DailyUSD {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("Daily budget limit of $%.2f reached.", e.limits.DailyUSD),
		}, nil
	}

	if sessionID != "" {
		sessionCost := usage.Sessions[sessionID].Cost + sessionReserved + extra
		if sessionCost >= e.limits.SessionUSD {
			return Decision{
				Allowed: false,
				Reason:  fmt.Sprintf("Session budget limit of $%.2f reached.", e.limits.SessionUSD),
			}, nil
		}
	}

	return Decision{Allowed: true, Reason: "Within budget"}, nil
}

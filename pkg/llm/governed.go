package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/govassist-labs/mesob/core/pkg/budget"
	"github.com/govassist-labs/mesob/core/pkg/observability"
)

// ErrBudgetExceeded is returned when the enforcer denies a call. The
// wrapped message carries the enforcer's reason verbatim.
var ErrBudgetExceeded = errors.New("budget exceeded")

// ErrCancelled is returned when cancellation was observed after the
// provider call completed. Usage is still metered; the result is
// discarded.
var ErrCancelled = errors.New("call cancelled")

// approxCharsPerToken converts prompt length to an input-token estimate
// for the pre-dispatch reservation. Actual usage from the provider
// replaces the estimate at commit time.
const approxCharsPerToken = 4

// Governed dispatches model calls through the budget enforcer. Every
// call reserves its estimated cost before dispatch and commits actual
// usage after, so concurrent calls cannot jointly exceed the daily cap.
type Governed struct {
	invoker  Invoker
	enforcer *budget.Enforcer
	monitor  *budget.Monitor
	metrics  *observability.Provider
	logger   *slog.Logger
}

// NewGoverned builds a governed client over the given provider.
func NewGoverned(invoker Invoker, enforcer *budget.Enforcer, monitor *budget.Monitor, logger *slog.Logger) *Governed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Governed{invoker: invoker, enforcer: enforcer, monitor: monitor, logger: logger}
}

// WithMetrics reports the cost of each committed call to the
// observability provider.
func (g *Governed) WithMetrics(p *observability.Provider) *Governed {
	g.metrics = p
	return g
}

// Invoke runs one governed call for the given session.
//
// If the enforcer denies the reservation, the error wraps
// ErrBudgetExceeded with the enforcer's reason. If the context is
// observed cancelled after the provider returns, the usage is committed
// but the response is discarded and ErrCancelled is returned.
func (g *Governed) Invoke(ctx context.Context, sessionID string, req Request) (*Response, error) {
	estimate := g.monitor.EstimateCost(req.Model, g.estimateInputTokens(req), req.MaxOutputTokens)

	reservationID, decision, err := g.enforcer.Reserve(ctx, sessionID, estimate)
	if err != nil {
		return nil, fmt.Errorf("reserve budget: %w", err)
	}
	if !decision.Allowed {
		g.logger.Warn("governed call denied",
			slog.String("session_id", sessionID),
			slog.String("model", req.Model),
			slog.String("reason", decision.Reason))
		return nil, fmt.Errorf("%w: %s", ErrBudgetExceeded, decision.Reason)
	}

	resp, err := g.invoker.Invoke(ctx, req)
	if err != nil {
		g.enforcer.Release(reservationID)
		return nil, fmt.Errorf("invoke model: %w", err)
	}

	cost, commitErr := g.enforcer.Commit(ctx, reservationID, req.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if commitErr != nil {
		g.logger.Error("usage commit failed",
			slog.String("session_id", sessionID),
			slog.String("model", req.Model),
			slog.Any("error", commitErr))
	} else {
		if g.metrics != nil {
			g.metrics.RecordCallCost(ctx, req.Model, cost)
		}
		g.logger.Debug("governed call complete",
			slog.String("session_id", sessionID),
			slog.String("model", req.Model),
			slog.Int64("input_tokens", resp.Usage.InputTokens),
			slog.Int64("output_tokens", resp.Usage.OutputTokens),
			slog.Float64("cost_usd", cost))
	}

	// An in-flight call completes and is metered, but its result is
	// not applied once cancellation has been observed.
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
	return resp, nil
}

func (g *Governed) estimateInputTokens(req Request) int64 {
	var chars int64
	for _, m := range req.Messages {
		chars += int64(len(m.Content))
	}
	tokens := chars / approxCharsPerToken
	if tokens == 0 && chars > 0 {
		tokens = 1
	}
	return tokens
}

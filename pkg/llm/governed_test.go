package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govassist-labs/mesob/core/pkg/budget"
	"github.com/govassist-labs/mesob/core/pkg/observability"
)

func newGoverned(t *testing.T, invoker Invoker, limits budget.Limits) (*Governed, *budget.Monitor) {
	t.Helper()
	monitor := budget.NewMonitor(budget.NewMemoryStore(), nil)
	enforcer := budget.NewEnforcer(monitor, limits)
	return NewGoverned(invoker, enforcer, monitor, nil), monitor
}

func TestGovernedInvokeMetersUsage(t *testing.T) {
	invoker := &StaticInvoker{Response: &Response{
		Content: "compliant",
		Usage:   Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
	}}
	g, monitor := newGoverned(t, invoker, budget.Limits{DailyUSD: 10.00, SessionUSD: 5.00})

	resp, err := g.Invoke(context.Background(), "session-1", Request{
		Model:    "llama-3.1-70b-versatile",
		Messages: []Message{{Role: "user", Content: "evaluate this document"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "compliant", resp.Content)

	usage, err := monitor.DailyUsage(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.38, usage.TotalCost, 1e-9)
	assert.Equal(t, int64(2_000_000), usage.TotalTokens)
}

func TestGovernedInvokeRecordsCostWithMetrics(t *testing.T) {
	obs, err := observability.New(context.Background(), &observability.Config{Enabled: false})
	require.NoError(t, err)

	invoker := &StaticInvoker{Response: &Response{
		Content: "compliant",
		Usage:   Usage{InputTokens: 1000, OutputTokens: 1000},
	}}
	g, monitor := newGoverned(t, invoker, budget.Limits{DailyUSD: 10.00, SessionUSD: 5.00})
	g = g.WithMetrics(obs)

	_, err = g.Invoke(context.Background(), "session-1", Request{
		Model:    "llama-3.1-70b-versatile",
		Messages: []Message{{Role: "user", Content: "evaluate this document"}},
	})
	require.NoError(t, err)

	usage, err := monitor.DailyUsage(context.Background())
	require.NoError(t, err)
	assert.Positive(t, usage.TotalCost)
}

func TestGovernedInvokeDeniedSurfacesReason(t *testing.T) {
	invoker := &StaticInvoker{Response: &Response{
		Content: "ok",
		Usage:   Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
	}}
	g, _ := newGoverned(t, invoker, budget.Limits{DailyUSD: 1.00, SessionUSD: 1.00})

	// First call commits $1.38, past the $1.00 daily cap.
	_, err := g.Invoke(context.Background(), "session-1", Request{
		Model:    "llama-3.1-70b-versatile",
		Messages: []Message{{Role: "user", Content: "first"}},
	})
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), "session-1", Request{
		Model:    "llama-3.1-70b-versatile",
		Messages: []Message{{Role: "user", Content: "second"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Contains(t, err.Error(), "Daily budget limit of $1.00 reached.")
}

func TestGovernedInvokeProviderErrorReleasesReservation(t *testing.T) {
	invoker := &StaticInvoker{Err: errors.New("provider unavailable")}
	g, monitor := newGoverned(t, invoker, budget.Limits{DailyUSD: 10.00, SessionUSD: 5.00})

	_, err := g.Invoke(context.Background(), "session-1", Request{
		Model:    "llama-3.1-70b-versatile",
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBudgetExceeded)

	// Nothing metered, nothing reserved: a fresh call still fits.
	usage, err := monitor.DailyUsage(context.Background())
	require.NoError(t, err)
	assert.Zero(t, usage.TotalCost)

	invoker.Err = nil
	invoker.Response = &Response{Content: "ok", Usage: Usage{InputTokens: 10, OutputTokens: 10}}
	_, err = g.Invoke(context.Background(), "session-1", Request{
		Model:    "llama-3.1-70b-versatile",
		Messages: []Message{{Role: "user", Content: "retry"}},
	})
	assert.NoError(t, err)
}

func TestGovernedInvokeCancelledDiscardsResultButMeters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	invoker := invokerFunc(func(innerCtx context.Context, req Request) (*Response, error) {
		// Cancellation lands while the provider call is in flight.
		cancel()
		return &Response{Content: "late", Usage: Usage{InputTokens: 1_000_000, OutputTokens: 0}}, nil
	})
	g, monitor := newGoverned(t, invoker, budget.Limits{DailyUSD: 10.00, SessionUSD: 5.00})

	resp, err := g.Invoke(ctx, "session-1", Request{
		Model:    "llama-3.1-70b-versatile",
		Messages: []Message{{Role: "user", Content: "slow"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Nil(t, resp)

	// The completed call is still metered even though its result was dropped.
	usage, err := monitor.DailyUsage(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.59, usage.TotalCost, 1e-9)
}

type invokerFunc func(ctx context.Context, req Request) (*Response, error)

func (f invokerFunc) Invoke(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

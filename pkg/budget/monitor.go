package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

const dayFormat = "2006-01-02"

// Monitor tracks token usage and cost per day and per session. All
// read-modify-write cycles against the store run under a single lock, so
// concurrent trackers cannot lose updates.
type Monitor struct {
	mu    sync.Mutex
	store Store
	rates RateTable
	clock func() time.Time
}

// NewMonitor creates a monitor over store with the given rate table.
func NewMonitor(store Store, rates RateTable) *Monitor {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Monitor{store: store, rates: rates, clock: time.Now}
}

// WithClock overrides the clock for deterministic testing.
func (m *Monitor) WithClock(clock func() time.Time) *Monitor {
	m.clock = clock
	return m
}

// TrackUsage records one completed call and returns its cost. Totals are
// mutated additively only.
func (m *Monitor) TrackUsage(ctx context.Context, model string, inputTokens, outputTokens int64, sessionID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := m.clock().UTC().Format(dayFormat)
	record, err := m.store.Get(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("budget: load day record: %w", err)
	}
	if record.Sessions == nil {
		record.Sessions = map[string]contracts.SessionUsage{}
	}

	cost := m.rates.Cost(model, inputTokens, outputTokens)
	tokens := inputTokens + outputTokens

	record.TotalTokens += tokens
	record.TotalCost += cost
	if sessionID != "" {
		s := record.Sessions[sessionID]
		s.Tokens += tokens
		s.Cost += cost
		record.Sessions[sessionID] = s
	}

	if err := m.store.Put(ctx, day, record); err != nil {
		return cost, fmt.Errorf("budget: persist day record: %w", err)
	}
	return cost, nil
}

// DailyUsage returns the aggregate for the current UTC day.
func (m *Monitor) DailyUsage(ctx context.Context) (contracts.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Get(ctx, m.clock().UTC().Format(dayFormat))
}

// EstimateCost prices a prospective call without recording it.
func (m *Monitor) EstimateCost(model string, inputTokens, outputTokens int64) float64 {
	return m.rates.Cost(model, inputTokens, outputTokens)
}

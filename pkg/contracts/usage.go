package contracts

// SessionUsage is the per-session slice of a day's usage.
type SessionUsage struct {
	Tokens int64   `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// UsageRecord is the day-keyed aggregate of governed-call spend.
// Mutated additively only; read on every budget check.
type UsageRecord struct {
	TotalTokens int64                   `json:"total_tokens"`
	TotalCost   float64                 `json:"total_cost"`
	Sessions    map[string]SessionUsage `json:"sessions"`
}

// Clone returns a deep copy so callers cannot mutate store state.
func (u UsageRecord) Clone() UsageRecord {
	out := UsageRecord{
		TotalTokens: u.TotalTokens,
		TotalCost:   u.TotalCost,
		Sessions:    make(map[string]SessionUsage, len(u.Sessions)),
	}
	for id, s := range u.Sessions {
		out.Sessions[id] = s
	}
	return out
}

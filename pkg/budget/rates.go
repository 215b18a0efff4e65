// Package budget meters governed language-model spend and gates calls
// against daily and per-session limits. The gate runs before dispatch and
// usage is recorded after completion; reservations close the window in
// which concurrent calls could race past a limit.
package budget

// Rate is the USD price per one million tokens for a model.
type Rate struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// RateTable maps model names to rates. Unknown models fall back to the
// "default" entry.
type RateTable map[string]Rate

// DefaultRateKey is the fallback entry for unknown models.
const DefaultRateKey = "default"

// DefaultRates mirrors the provider price list in effect at release.
func DefaultRates() RateTable {
	return RateTable{
		"llama-3.1-70b-versatile": {InputPerMTok: 0.59, OutputPerMTok: 0.79},
		DefaultRateKey:            {InputPerMTok: 0.50, OutputPerMTok: 0.50},
	}
}

// Cost computes the USD cost of a call under this table.
func (t RateTable) Cost(model string, inputTokens, outputTokens int64) float64 {
	rate, ok := t[model]
	if !ok {
		rate = t[DefaultRateKey]
	}
	const mTok = 1_000_000
	return float64(inputTokens)/mTok*rate.InputPerMTok + float64(outputTokens)/mTok*rate.OutputPerMTok
}

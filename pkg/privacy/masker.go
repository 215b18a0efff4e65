// Package privacy masks personally identifiable information in extracted
// document text before any of it reaches a governed model call. Masking
// is a pure transformation: it cannot fail the flow, only rewrite text.
package privacy

import (
	"regexp"
	"sort"
	"strings"
)

// Masker redacts PII using a fixed pattern set.
type Masker struct {
	patterns map[string]*regexp.Regexp
	order    []string
}

// NewMasker creates a masker with the default pattern set: emails,
// Ethiopian phone numbers, passport numbers and Amharic honorific names.
func NewMasker() *Masker {
	patterns := map[string]*regexp.Regexp{
		"email":        regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`),
		"phone_et":     regexp.MustCompile(`(\+251|0)9\d{8}`),
		"passport":     regexp.MustCompile(`[A-Z]\d{7}[A-Z]`),
		"amharic_name": regexp.MustCompile(`(አቶ|ወ/ሮ|ወ/ሪት)\s+[\x{1200}-\x{137F}]+`),
	}
	order := make([]string, 0, len(patterns))
	for label := range patterns {
		order = append(order, label)
	}
	// Fixed application order keeps masking deterministic.
	sort.Strings(order)
	return &Masker{patterns: patterns, order: order}
}

// Result reports the outcome of a masking pass.
type Result struct {
	MaskedText  string
	PIIDetected bool
}

// Mask replaces every detected PII span with a labeled placeholder.
func (m *Masker) Mask(text string) Result {
	masked := text
	for _, label := range m.order {
		masked = m.patterns[label].ReplaceAllString(masked, "[MASKED_"+strings.ToUpper(label)+"]")
	}
	return Result{MaskedText: masked, PIIDetected: masked != text}
}

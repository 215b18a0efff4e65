// Package vision defines the extraction capability contract. The OCR and
// feature-detection internals live behind this interface in external
// services; the orchestrator depends only on the output contract.
package vision

import (
	"context"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

// Extractor turns raw document bytes into structured extraction output.
// Implementations are I/O-bound and may be retried by the execution
// substrate, so they must be side-effect free on failure.
type Extractor interface {
	Extract(ctx context.Context, documentBytes []byte) (contracts.ExtractionResult, error)
}

// StaticExtractor returns a fixed result for every document. It stands in
// for the real vision service in development and tests, honoring the same
// output contract.
type StaticExtractor struct {
	Result contracts.ExtractionResult
	Err    error
}

// Extract returns the configured result.
func (s *StaticExtractor) Extract(_ context.Context, _ []byte) (contracts.ExtractionResult, error) {
	if s.Err != nil {
		return contracts.ExtractionResult{}, s.Err
	}
	return s.Result, nil
}

package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "mesob-core", config.ServiceName)
	require.Equal(t, "development", config.Environment)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.True(t, config.Enabled)
	require.False(t, config.Insecure)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)

	// Record methods are no-ops when disabled.
	ctx := context.Background()
	p.RecordTransition(ctx, "RECEIVED", "EXTRACTING")
	p.RecordEscalation(ctx, "low OCR confidence")
	p.RecordForwardFailure(ctx, 3)
	p.RecordCallCost(ctx, "llama-3.1-70b-versatile", 0.02)

	ctx, done := p.TrackWorkflow(ctx, "doc-1")
	require.NotNil(t, ctx)
	done("COMPLETE", nil)

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestTrackWorkflowRecordsError(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	ctx, done := p.TrackWorkflow(context.Background(), "doc-2")
	require.NotNil(t, ctx)
	done("FAILED", errors.New("extraction error"))
}

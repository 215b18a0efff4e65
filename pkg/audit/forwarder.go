package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
	"github.com/govassist-labs/mesob/core/pkg/observability"
)

// RemoteSink receives mirrored audit entries. The sink is advisory only;
// the local log remains authoritative regardless of sink behavior.
type RemoteSink interface {
	Forward(ctx context.Context, entry contracts.AuditLogEntry) error
}

// Forwarder mirrors entries to a remote sink from a background loop with
// a bounded retry count per entry. Failures are swallowed after counting;
// they can never affect an entry's acceptance on the local trail.
type Forwarder struct {
	sink       RemoteSink
	queue      chan contracts.AuditLogEntry
	maxRetries int
	baseDelay  time.Duration
	failures   atomic.Uint64
	metrics    *observability.Provider
	logger     *slog.Logger
}

// NewForwarder creates a forwarder with a bounded in-process queue.
func NewForwarder(sink RemoteSink, queueSize, maxRetries int, logger *slog.Logger) *Forwarder {
	if queueSize <= 0 {
		queueSize = 256
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		sink:       sink,
		queue:      make(chan contracts.AuditLogEntry, queueSize),
		maxRetries: maxRetries,
		baseDelay:  100 * time.Millisecond,
		logger:     logger,
	}
}

// WithMetrics reports dropped and abandoned entries to the observability
// provider in addition to the local counter.
func (f *Forwarder) WithMetrics(p *observability.Provider) *Forwarder {
	f.metrics = p
	return f
}

// Enqueue hands an entry to the background loop. A full queue drops the
// entry and counts a failure rather than blocking the recorder.
func (f *Forwarder) Enqueue(entry contracts.AuditLogEntry) {
	select {
	case f.queue <- entry:
	default:
		f.fail(context.Background())
		f.logger.Warn("audit forward queue full, entry dropped", "sequence", entry.Sequence)
	}
}

// Run drains the queue until ctx is cancelled.
func (f *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-f.queue:
			f.forward(ctx, entry)
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, entry contracts.AuditLogEntry) {
	delay := f.baseDelay
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if err := f.sink.Forward(ctx, entry); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			f.fail(context.WithoutCancel(ctx))
			return
		case <-time.After(delay):
			delay *= 2
		}
	}
	f.fail(ctx)
	f.logger.Warn("audit forward abandoned after retries",
		"sequence", entry.Sequence,
		"retries", f.maxRetries)
}

func (f *Forwarder) fail(ctx context.Context) {
	f.failures.Add(1)
	if f.metrics != nil {
		f.metrics.RecordForwardFailure(ctx, 1)
	}
}

// Failures returns the number of entries that could not be mirrored.
func (f *Forwarder) Failures() uint64 {
	return f.failures.Load()
}

package merkle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

// AnchorSink receives finished anchor records, e.g. for publication to a
// timestamping service. Implementations must not block for long; the
// anchorer holds no lock while publishing.
type AnchorSink interface {
	Publish(ctx context.Context, record contracts.MerkleAnchorRecord, leaves []string) error
}

// Anchorer accumulates audit signatures and commits them in batches:
// whenever BatchSize entries are pending, or Interval has elapsed with at
// least one pending entry, whichever comes first.
type Anchorer struct {
	mu      sync.Mutex
	pending []string

	batchSize int
	interval  time.Duration
	clock     func() time.Time
	sink      AnchorSink
	logger    *slog.Logger

	records []contracts.MerkleAnchorRecord
}

// AnchorerOption customizes an Anchorer.
type AnchorerOption func(*Anchorer)

// WithClock overrides the clock for deterministic testing.
func WithClock(clock func() time.Time) AnchorerOption {
	return func(a *Anchorer) { a.clock = clock }
}

// WithSink sets the publication sink. Without a sink, records are only
// retained locally.
func WithSink(sink AnchorSink) AnchorerOption {
	return func(a *Anchorer) { a.sink = sink }
}

// NewAnchorer creates an anchorer flushing every batchSize entries or
// every interval, whichever comes first.
func NewAnchorer(batchSize int, interval time.Duration, logger *slog.Logger, opts ...AnchorerOption) *Anchorer {
	if batchSize <= 0 {
		batchSize = 64
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Anchorer{
		batchSize: batchSize,
		interval:  interval,
		clock:     time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add queues one audit signature. When the batch is full the batch is
// anchored immediately and the record returned.
func (a *Anchorer) Add(ctx context.Context, signature string) *contracts.MerkleAnchorRecord {
	a.mu.Lock()
	a.pending = append(a.pending, signature)
	if len(a.pending) < a.batchSize {
		a.mu.Unlock()
		return nil
	}
	record, leaves := a.anchorLocked()
	a.mu.Unlock()

	a.publish(ctx, record, leaves)
	return record
}

// Flush anchors whatever is pending, if anything.
func (a *Anchorer) Flush(ctx context.Context) *contracts.MerkleAnchorRecord {
	a.mu.Lock()
	if len(a.pending) == 0 {
		a.mu.Unlock()
		return nil
	}
	record, leaves := a.anchorLocked()
	a.mu.Unlock()

	a.publish(ctx, record, leaves)
	return record
}

// Run flushes on the configured interval until ctx is cancelled. A final
// flush runs on shutdown so no pending signatures are left unanchored.
func (a *Anchorer) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.Flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Records returns a copy of all anchor records produced so far.
func (a *Anchorer) Records() []contracts.MerkleAnchorRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]contracts.MerkleAnchorRecord, len(a.records))
	copy(out, a.records)
	return out
}

func (a *Anchorer) anchorLocked() (*contracts.MerkleAnchorRecord, []string) {
	leaves := a.pending
	a.pending = nil

	root, ok := Root(leaves)
	if !ok {
		return nil, nil
	}
	record := contracts.MerkleAnchorRecord{
		RootHash:  root,
		LeafCount: len(leaves),
		Timestamp: a.clock().UTC(),
	}
	a.records = append(a.records, record)
	return &record, leaves
}

func (a *Anchorer) publish(ctx context.Context, record *contracts.MerkleAnchorRecord, leaves []string) {
	if record == nil || a.sink == nil {
		return
	}
	if err := a.sink.Publish(ctx, *record, leaves); err != nil {
		// Anchors are recomputable from the local log; publication is
		// advisory and must not affect the primary flow.
		a.logger.Warn("anchor publication failed",
			"root", record.RootHash,
			"leaf_count", record.LeafCount,
			"error", err)
	}
}

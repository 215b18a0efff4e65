// Package service assembles a working orchestration runtime from
// configuration. Extraction and model dispatch stay injected: both are
// external collaborators the core only knows by contract.
package service

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/govassist-labs/mesob/core/pkg/audit"
	"github.com/govassist-labs/mesob/core/pkg/budget"
	"github.com/govassist-labs/mesob/core/pkg/compliance"
	"github.com/govassist-labs/mesob/core/pkg/config"
	"github.com/govassist-labs/mesob/core/pkg/llm"
	"github.com/govassist-labs/mesob/core/pkg/merkle"
	"github.com/govassist-labs/mesob/core/pkg/observability"
	"github.com/govassist-labs/mesob/core/pkg/orchestrator"
	"github.com/govassist-labs/mesob/core/pkg/portal"
	"github.com/govassist-labs/mesob/core/pkg/privacy"
	"github.com/govassist-labs/mesob/core/pkg/review"
	"github.com/govassist-labs/mesob/core/pkg/signing"
	"github.com/govassist-labs/mesob/core/pkg/vision"
)

// Runtime is a fully wired orchestration core.
type Runtime struct {
	Engine   *orchestrator.Engine
	Trail    *audit.Trail
	Anchorer *merkle.Anchorer
	Monitor  *budget.Monitor
	Enforcer *budget.Enforcer
	Registry *compliance.Registry

	db      *sql.DB
	closers []func() error
}

// Build wires a runtime from cfg. In production a missing signing
// secret is a hard error; development falls back to an ephemeral,
// non-authoritative key. obs is optional; when set, workflow metrics
// and governed-call costs are reported through it.
func Build(cfg *config.Config, extractor vision.Extractor, invoker llm.Invoker, obs *observability.Provider, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	signer, err := signing.FromSecret([]byte(cfg.SigningSecret), cfg.SigningKeyID, cfg.Production())
	if err != nil {
		return nil, fmt.Errorf("service: signing key: %w", err)
	}

	log, err := audit.NewFileLog(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("service: audit log: %w", err)
	}

	anchorer := merkle.NewAnchorer(cfg.AnchorBatchSize, cfg.AnchorInterval, logger)
	trail := audit.NewTrail(signer, log, logger, audit.WithAnchorer(anchorer))

	rt := &Runtime{Trail: trail, Anchorer: anchorer}

	var store budget.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("service: open ledger database: %w", err)
		}
		rt.db = db
		store = budget.NewPostgresStore(db)
	} else {
		store = budget.NewFileStore(cfg.UsageLedgerPath)
	}

	rt.Monitor = budget.NewMonitor(store, nil)
	rt.Enforcer = budget.NewEnforcer(rt.Monitor, budget.Limits{
		DailyUSD:   cfg.DailyBudgetUSD,
		SessionUSD: cfg.SessionBudgetUSD,
	})

	registry, err := compliance.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("service: playbook registry: %w", err)
	}
	if cfg.PlaybookDir != "" {
		// A missing directory means an empty registry: every lookup
		// resolves to an engine gap and escalates.
		if _, statErr := os.Stat(cfg.PlaybookDir); statErr == nil {
			if err := registry.LoadDir(cfg.PlaybookDir); err != nil {
				return nil, fmt.Errorf("service: load playbooks: %w", err)
			}
		}
	}
	rt.Registry = registry

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	rt.closers = append(rt.closers, redisClient.Close)

	// With no portal URL every submission takes the local fallback
	// path, which is the intended offline behavior.
	portalClient := portal.NewHTTPClient(
		cfg.PortalURL, []byte(cfg.PortalSecret), cfg.PortalKeyID, cfg.PortalRPS, logger)

	opts := []orchestrator.Option{
		orchestrator.WithConfidenceThreshold(cfg.ConfidenceThreshold),
		orchestrator.WithLogger(logger),
	}
	if obs != nil {
		opts = append(opts, orchestrator.WithObservability(obs))
	}
	if invoker != nil {
		governed := llm.NewGoverned(invoker, rt.Enforcer, rt.Monitor, logger)
		if obs != nil {
			governed = governed.WithMetrics(obs)
		}
		opts = append(opts, orchestrator.WithGovernedLLM(governed))
	}

	rt.Engine = orchestrator.NewEngine(orchestrator.Deps{
		Extractor: extractor,
		Masker:    privacy.NewMasker(),
		Evaluator: compliance.NewEngine(),
		Registry:  registry,
		Trail:     trail,
		Queue:     review.NewRedisQueue(redisClient, ""),
		Portal:    portalClient,
	}, opts...)

	return rt, nil
}

// Close releases held resources.
func (r *Runtime) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Package config loads service configuration from environment
// variables with development-friendly defaults. Production is detected
// via ENVIRONMENT=production and tightens what may be defaulted: the
// signing key source refuses to start without a real secret there.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds orchestrator configuration.
type Config struct {
	Environment string
	LogLevel    string

	// Signing.
	SigningSecret string
	SigningKeyID  string

	// Budget limits in USD.
	DailyBudgetUSD   float64
	SessionBudgetUSD float64
	UsageLedgerPath  string
	DatabaseURL      string

	// Audit trail.
	AuditLogPath    string
	AnchorBatchSize int
	AnchorInterval  time.Duration

	// Orchestration.
	ConfidenceThreshold float64
	PlaybookDir         string

	// External services.
	RedisAddr    string
	PortalURL    string
	PortalKeyID  string
	PortalSecret string
	PortalRPS    float64
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// Load loads configuration from environment variables.
func Load() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	keyID := os.Getenv("SIGNING_KEY_ID")
	if keyID == "" {
		keyID = "audit-key-1"
	}

	ledgerPath := os.Getenv("USAGE_LEDGER_PATH")
	if ledgerPath == "" {
		ledgerPath = "data/usage_ledger.json"
	}

	auditPath := os.Getenv("AUDIT_LOG_PATH")
	if auditPath == "" {
		auditPath = "data/audit_log.jsonl"
	}

	playbookDir := os.Getenv("PLAYBOOK_DIR")
	if playbookDir == "" {
		playbookDir = "playbooks"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	return &Config{
		Environment:         env,
		LogLevel:            logLevel,
		SigningSecret:       os.Getenv("AUDIT_SIGNING_SECRET"),
		SigningKeyID:        keyID,
		DailyBudgetUSD:      envFloat("DAILY_BUDGET_USD", 10.00),
		SessionBudgetUSD:    envFloat("SESSION_BUDGET_USD", 1.00),
		UsageLedgerPath:     ledgerPath,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		AuditLogPath:        auditPath,
		AnchorBatchSize:     envInt("ANCHOR_BATCH_SIZE", 64),
		AnchorInterval:      envDuration("ANCHOR_INTERVAL", 30*time.Second),
		ConfidenceThreshold: envFloat("OCR_CONFIDENCE_THRESHOLD", 0.6),
		PlaybookDir:         playbookDir,
		RedisAddr:           redisAddr,
		PortalURL:           os.Getenv("PORTAL_URL"),
		PortalKeyID:         os.Getenv("PORTAL_KEY_ID"),
		PortalSecret:        os.Getenv("PORTAL_SECRET"),
		PortalRPS:           envFloat("PORTAL_RPS", 2.0),
	}
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

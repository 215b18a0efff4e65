// Package portal submits validated applications to the government portal.
// Submission is terminally best-effort: on any transport failure a locally
// minted fallback tracking id is returned instead of an error, so a portal
// outage can never fail a completed document.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/govassist-labs/mesob/core/pkg/contracts"
)

// Application is the payload submitted to the portal. Fields carries the
// flat extracted key/value pairs straight from the workflow context.
type Application struct {
	DocumentID      string            `json:"document_id"`
	ApplicationType string            `json:"applicationType"`
	Fields          map[string]string `json:"fields,omitempty"`
}

// Client submits applications and returns a receipt, never an error.
type Client interface {
	SubmitApplication(ctx context.Context, app Application) contracts.SubmissionReceipt
}

// HTTPClient is the production portal client. Requests carry a short-lived
// JWT minted from the shared portal credential, and are throttled by a
// client-side rate limiter to stay inside the portal's quota.
type HTTPClient struct {
	baseURL    string
	credential []byte
	issuer     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	clock      func() time.Time
}

// NewHTTPClient creates a portal client. rps bounds outbound submissions
// per second.
func NewHTTPClient(baseURL string, credential []byte, issuer string, rps float64, logger *slog.Logger) *HTTPClient {
	if rps <= 0 {
		rps = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		baseURL:    baseURL,
		credential: credential,
		issuer:     issuer,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
		clock:      time.Now,
	}
}

// SubmitApplication posts the application. Any failure along the way
// downgrades to a fallback receipt.
func (c *HTTPClient) SubmitApplication(ctx context.Context, app Application) contracts.SubmissionReceipt {
	if err := c.limiter.Wait(ctx); err != nil {
		return c.fallback(app, err)
	}

	token, err := c.mintToken()
	if err != nil {
		return c.fallback(app, err)
	}

	body, err := json.Marshal(app)
	if err != nil {
		return c.fallback(app, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/applications", bytes.NewReader(body))
	if err != nil {
		return c.fallback(app, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fallback(app, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fallback(app, fmt.Errorf("portal returned %s", resp.Status))
	}

	var receipt contracts.SubmissionReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return c.fallback(app, err)
	}
	if receipt.TrackingID == "" {
		return c.fallback(app, fmt.Errorf("portal response missing tracking_id"))
	}
	if receipt.SubmittedAt.IsZero() {
		receipt.SubmittedAt = c.clock().UTC()
	}
	return receipt
}

// mintToken signs a short-lived JWT over the shared credential.
func (c *HTTPClient) mintToken() (string, error) {
	now := c.clock().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(2 * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.credential)
}

func (c *HTTPClient) fallback(app Application, cause error) contracts.SubmissionReceipt {
	c.logger.Warn("portal submission failed, minting fallback tracking id",
		"document_id", app.DocumentID,
		"error", cause)
	return contracts.SubmissionReceipt{
		TrackingID:  "LOCAL-" + uuid.New().String(),
		Status:      "PENDING_RESUBMISSION",
		SubmittedAt: c.clock().UTC(),
		Fallback:    true,
	}
}

// StaticClient returns a fixed receipt; used in development and tests.
type StaticClient struct {
	Receipt contracts.SubmissionReceipt
}

// SubmitApplication returns the configured receipt.
func (s *StaticClient) SubmitApplication(_ context.Context, _ Application) contracts.SubmissionReceipt {
	return s.Receipt
}

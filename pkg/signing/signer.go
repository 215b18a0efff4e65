// Package signing produces and verifies the versioned HMAC tags attached
// to every audit record and override artifact. Payloads are canonicalized
// with RFC 8785 before the MAC is computed, so signatures are independent
// of map key ordering.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/govassist-labs/mesob/core/pkg/canonicalize"
)

// TagPrefix versions the signature format. A future key or MAC rotation
// bumps the prefix so old tags remain verifiable by version.
const TagPrefix = "v1:"

// Signer signs canonical payloads and verifies existing tags.
type Signer interface {
	// Sign returns a versioned tag over the canonical form of payload.
	Sign(payload any) (string, error)

	// Verify recomputes the tag and compares in constant time.
	Verify(payload any, signature string) bool

	// KeyID identifies the key the signer holds.
	KeyID() string

	// Authoritative reports whether tags from this signer may be
	// presented as production-authoritative. Ephemeral dev keys are not.
	Authoritative() bool
}

// HMACSigner implements Signer with HMAC-SHA256 over JCS bytes.
type HMACSigner struct {
	key           []byte
	keyID         string
	authoritative bool
}

// NewHMACSigner wraps an already-derived signing key.
func NewHMACSigner(key []byte, keyID string, authoritative bool) *HMACSigner {
	return &HMACSigner{key: key, keyID: keyID, authoritative: authoritative}
}

// Sign canonicalizes payload and returns "v1:" + hex(HMAC-SHA256).
func (s *HMACSigner) Sign(payload any) (string, error) {
	canonical, err := canonicalize.JCS(payload)
	if err != nil {
		return "", fmt.Errorf("signing: canonicalize payload: %w", err)
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(canonical)
	return TagPrefix + hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the tag for payload and compares in constant time.
// Any canonicalization failure verifies as false.
func (s *HMACSigner) Verify(payload any, signature string) bool {
	expected, err := s.Sign(payload)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}

// KeyID returns the identifier of the held key.
func (s *HMACSigner) KeyID() string { return s.keyID }

// Authoritative reports whether this signer's tags are production-grade.
func (s *HMACSigner) Authoritative() bool { return s.authoritative }

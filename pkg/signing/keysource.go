package signing

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrMisconfigured is returned when a production deployment has no managed
// signing secret. Production must never fall back to an ephemeral key.
var ErrMisconfigured = errors.New("signing: production requires a managed signing secret")

const derivedKeySize = 32

// DeriveKey derives a per-key-id signing key from the managed master
// secret via HKDF-SHA256. Rotating key ids yields independent keys without
// re-provisioning the master secret.
func DeriveKey(masterSecret []byte, keyID string) ([]byte, error) {
	if len(masterSecret) == 0 {
		return nil, errors.New("signing: empty master secret")
	}
	r := hkdf.New(sha256.New, masterSecret, nil, []byte("mesob:signing:"+keyID))
	key := make([]byte, derivedKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("signing: hkdf expand: %w", err)
	}
	return key, nil
}

// FromSecret builds the process signer from a managed secret source.
//
// In production an empty secret is fatal (ErrMisconfigured). Outside
// production an ephemeral per-process key is generated instead; the
// resulting signer is marked non-authoritative so its tags can never be
// presented as production records.
func FromSecret(masterSecret []byte, keyID string, production bool) (*HMACSigner, error) {
	if len(masterSecret) > 0 {
		key, err := DeriveKey(masterSecret, keyID)
		if err != nil {
			return nil, err
		}
		return NewHMACSigner(key, keyID, true), nil
	}

	if production {
		return nil, ErrMisconfigured
	}

	key := make([]byte, derivedKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("signing: ephemeral key generation: %w", err)
	}
	return NewHMACSigner(key, keyID+"-ephemeral", false), nil
}

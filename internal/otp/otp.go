// Package otp generates, stores, and single-use-verifies the numeric
// passcodes used for identity proofing (email verification and password
// reset).
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/taskify/taskify-api/internal/kv"
	"github.com/taskify/taskify-api/internal/security"
)

const keyPrefix = "otp:"

// Service issues 6-digit codes keyed by the target contact address. Only the
// code's fingerprint is stored, with a TTL; a successful verify consumes the
// record.
type Service struct {
	store kv.Store
	ttl   time.Duration
}

// NewService builds an OTP service. ttl bounds how long a pending code stays
// valid (5 minutes in the default configuration).
func NewService(store kv.Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl}
}

// Generate returns a uniformly random 6-digit numeric code.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Store records the code's fingerprint under the address, overwriting any
// pending code so only the newest one is valid.
func (s *Service) Store(ctx context.Context, address, code string) error {
	return s.store.Set(ctx, keyPrefix+address, security.Fingerprint(code), s.ttl)
}

// Verify reports whether candidate matches the pending code for the address.
// A match consumes the record. Mismatch and absence are indistinguishable to
// the caller so the result cannot be used as an enumeration oracle. The
// second return value carries store faults only.
func (s *Service) Verify(ctx context.Context, address, candidate string) (bool, error) {
	key := keyPrefix + address

	stored, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if !security.FingerprintEqual(stored, security.Fingerprint(candidate)) {
		return false, nil
	}

	if err := s.store.Delete(ctx, key); err != nil {
		// Failing to consume would let the code be replayed; treat it as a
		// failed verification.
		return false, err
	}
	return true, nil
}

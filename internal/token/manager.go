// Package token implements the credential lifecycle: short-lived signed
// access tokens, long-lived refresh tokens tracked server-side only by
// fingerprint, and rotation/revocation against the key-value store.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/kv"
	"github.com/taskify/taskify-api/internal/security"
)

const refreshKeyPrefix = "refresh_token:"

// Claims is the payload carried by both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// Config tunes the token manager. Access and refresh secrets must differ so a
// refresh token can never pass as an access token.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Manager issues and validates signed credentials. It is stateless apart from
// the injected key-value store and safe for concurrent use.
type Manager struct {
	store kv.Store
	cfg   Config
}

// NewManager builds a Manager on top of the given key-value store.
func NewManager(store kv.Store, cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: signing secrets are required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: TTLs must be positive")
	}
	return &Manager{store: store, cfg: cfg}, nil
}

// IssueAccess signs a short-lived access token bound to the identity id.
// Access tokens are stateless and never persisted.
func (m *Manager) IssueAccess(identityID string) (string, error) {
	return m.sign(identityID, m.cfg.AccessSecret, m.cfg.AccessTTL)
}

// IssueRefresh signs a long-lived refresh token bound to the identity id.
// The caller must persist its fingerprint via PersistRefresh before handing
// the raw value out.
func (m *Manager) IssueRefresh(identityID string) (string, error) {
	return m.sign(identityID, m.cfg.RefreshSecret, m.cfg.RefreshTTL)
}

// PersistRefresh stores the fingerprint of the raw refresh token under the
// identity's slot, overwriting any prior fingerprint. Overwriting is the
// single-active-refresh-session policy: a new login invalidates the previous
// session's refresh token.
func (m *Manager) PersistRefresh(ctx context.Context, identityID, raw string) error {
	key := refreshKeyPrefix + identityID
	return m.store.Set(ctx, key, security.Fingerprint(raw), m.cfg.RefreshTTL)
}

// Rotate validates the presented raw refresh token against the stored
// fingerprint for identityID and, on success, issues a fresh access token.
// The refresh fingerprint itself is left untouched, so the same raw token
// remains exchangeable until login replaces it or logout revokes it.
func (m *Manager) Rotate(ctx context.Context, identityID, presented string) (string, error) {
	claims, err := m.ParseRefresh(presented)
	if err != nil {
		return "", err
	}
	if claims.Subject != identityID {
		return "", domain.ErrUnauthenticated
	}

	stored, err := m.store.Get(ctx, refreshKeyPrefix+identityID)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", domain.ErrUnauthenticated
		}
		// Fingerprint checks are a critical path: surface store faults as
		// retryable failures instead of quietly accepting the token.
		return "", err
	}
	if !security.FingerprintEqual(stored, security.Fingerprint(presented)) {
		return "", domain.ErrUnauthenticated
	}

	return m.IssueAccess(identityID)
}

// Revoke deletes the stored refresh fingerprint. Absence is not an error, so
// repeated logouts are harmless.
func (m *Manager) Revoke(ctx context.Context, identityID string) error {
	return m.store.Delete(ctx, refreshKeyPrefix+identityID)
}

// ParseAccess validates an access token's signature and expiry and returns
// its claims.
func (m *Manager) ParseAccess(raw string) (*Claims, error) {
	return m.parse(raw, m.cfg.AccessSecret)
}

// ParseRefresh validates a refresh token's signature and expiry and returns
// its claims.
func (m *Manager) ParseRefresh(raw string) (*Claims, error) {
	return m.parse(raw, m.cfg.RefreshSecret)
}

func (m *Manager) sign(identityID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(raw string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrCredentialExpired
		}
		return nil, domain.ErrCredentialInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, domain.ErrCredentialInvalid
	}
	return claims, nil
}

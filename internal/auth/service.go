// Package auth orchestrates credential issuance around the identity service
// and the token lifecycle manager.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/identity"
	"github.com/taskify/taskify-api/internal/token"
)

// TokenPair is what a successful login hands back. The refresh token travels
// only in the HTTP-only cookie; it is kept here so the handler can set it.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service implements the login/refresh/logout flows.
type Service struct {
	ids       *identity.Service
	users     identity.Repository
	tokens    *token.Manager
	accessTTL time.Duration
}

// NewService wires the auth service.
func NewService(ids *identity.Service, users identity.Repository, tokens *token.Manager, accessTTL time.Duration) *Service {
	return &Service{ids: ids, users: users, tokens: tokens, accessTTL: accessTTL}
}

// Login authenticates the credentials and issues a fresh access/refresh
// pair. Persisting the refresh fingerprint overwrites the previous one, so a
// login on a second device signs the first device's refresh token out.
func (s *Service) Login(ctx context.Context, email, password string) (identity.User, TokenPair, error) {
	user, err := s.ids.Authenticate(ctx, email, password)
	if err != nil {
		return identity.User{}, TokenPair{}, err
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return identity.User{}, TokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return identity.User{}, TokenPair{}, err
	}
	if err := s.tokens.PersistRefresh(ctx, user.ID, refresh); err != nil {
		return identity.User{}, TokenPair{}, err
	}

	pair := TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}
	return user, pair, nil
}

// Refresh exchanges a presented raw refresh token for a new access token.
// The bound identity is re-checked against the durable store so a deleted or
// un-verified account cannot keep minting access tokens.
func (s *Service) Refresh(ctx context.Context, presented string) (string, error) {
	claims, err := s.tokens.ParseRefresh(presented)
	if err != nil {
		return "", err
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("identity gone: %w", domain.ErrUnauthenticated)
	}
	if err != nil {
		return "", err
	}
	if !user.Verified {
		return "", fmt.Errorf("identity unverified: %w", domain.ErrUnauthenticated)
	}

	return s.tokens.Rotate(ctx, user.ID, presented)
}

// Logout revokes the refresh fingerprint bound to the presented refresh
// token. An invalid token still fails, but revoking twice does not.
func (s *Service) Logout(ctx context.Context, presented string) error {
	claims, err := s.tokens.ParseRefresh(presented)
	if err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, claims.Subject)
}

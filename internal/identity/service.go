package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/notification"
	"github.com/taskify/taskify-api/internal/otp"
)

// RefreshRevoker deletes the stored refresh fingerprint for an identity.
// Satisfied by the token manager.
type RefreshRevoker interface {
	Revoke(ctx context.Context, identityID string) error
}

// Service manages the identity lifecycle: registration, email proofing,
// authentication, and password recovery.
type Service struct {
	repo     Repository
	otp      *otp.Service
	notifier notification.Notifier
	sessions RefreshRevoker
	logger   *slog.Logger
}

// NewService wires the identity service.
func NewService(repo Repository, otpSvc *otp.Service, notifier notification.Notifier, sessions RefreshRevoker, logger *slog.Logger) *Service {
	return &Service{repo: repo, otp: otpSvc, notifier: notifier, sessions: sessions, logger: logger}
}

// Registration carries the already-validated registration input.
type Registration struct {
	Name     string
	Email    string
	Password string
}

// Register creates an unverified user, stores a fresh OTP under the email,
// and sends the verification mail. If the mail cannot be sent the identity
// is rolled back so registration can be retried cleanly.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	if err := s.sendProofingCode(ctx, user.Email, notification.VerificationMessage); err != nil {
		if delErr := s.repo.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("rollback of unconfirmed identity failed", "user_id", user.ID, "error", delErr)
		}
		return User{}, fmt.Errorf("send verification email: %w", err)
	}

	return user, nil
}

// VerifyEmail consumes the pending OTP for the address and flips the
// verification flag. The OTP outcome never reveals whether a code was wrong,
// expired, or absent.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}

	ok, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthenticated)
	}

	if err := s.repo.SetVerified(ctx, user.ID); err != nil {
		return User{}, err
	}
	user.Verified = true

	subject, body := notification.WelcomeMessage(user.Name)
	if err := s.notifier.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Warn("welcome email failed", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// Authenticate checks the email/password pair. Unknown addresses and wrong
// passwords fail identically; unverified accounts are told to verify first.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return User{}, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthenticated)
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthenticated)
	}
	if !user.Verified {
		return User{}, fmt.Errorf("please verify your email first: %w", domain.ErrBadRequest)
	}
	return user, nil
}

// ForgotPassword stores a fresh OTP for the address and mails it.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if _, err := s.repo.FindByEmail(ctx, email); err != nil {
		return err
	}
	if err := s.sendProofingCode(ctx, email, notification.PasswordResetMessage); err != nil {
		return fmt.Errorf("send password reset email: %w", err)
	}
	return nil
}

// ResetPassword proves control of the address via OTP, replaces the
// credential digest, and revokes the refresh fingerprint so existing
// sessions cannot outlive the old password.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	ok, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthenticated)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	return s.sessions.Revoke(ctx, user.ID)
}

// ChangeRole assigns a role from the closed set. Privileged operation; the
// transport layer restricts it to admins.
func (s *Service) ChangeRole(ctx context.Context, userID, role string) error {
	return s.repo.UpdateRole(ctx, userID, role)
}

// DeleteUser removes an identity and revokes its refresh fingerprint so the
// deleted account cannot keep a live session. Privileged operation.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, userID)
}

// sendProofingCode generates, stores, and mails a one-time code. The store
// happens before the send so a failed send leaves only a harmless pending
// code that expires on its own.
func (s *Service) sendProofingCode(ctx context.Context, email string, render func(string) (string, string)) error {
	code, err := otp.Generate()
	if err != nil {
		return err
	}
	if err := s.otp.Store(ctx, email, code); err != nil {
		return err
	}
	subject, body := render(code)
	return s.notifier.Send(ctx, email, subject, body)
}

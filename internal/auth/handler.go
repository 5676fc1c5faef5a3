package auth

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/identity"
	"github.com/taskify/taskify-api/internal/middleware"
	"github.com/taskify/taskify-api/internal/respond"
	"github.com/taskify/taskify-api/internal/validate"
)

const refreshCookie = "refresh_token"

// Handler exposes the registration, proofing, and session endpoints.
type Handler struct {
	ids        *identity.Service
	svc        *Service
	out        respond.Writer
	refreshTTL time.Duration
	secure     bool
}

// NewHandler builds the auth handler. secure controls the Secure attribute
// on the refresh cookie and is disabled only in development.
func NewHandler(ids *identity.Service, svc *Service, out respond.Writer, refreshTTL time.Duration, secure bool) *Handler {
	return &Handler{ids: ids, svc: svc, out: out, refreshTTL: refreshTTL, secure: secure}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type userPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
	Role     string `json:"role"`
}

func toPayload(u identity.User) userPayload {
	return userPayload{ID: u.ID, Name: u.Name, Email: u.Email, Verified: u.Verified, Role: u.Role}
}

// Register creates an identity and mails the verification code.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := h.parse(c, &req); err != nil {
		return h.out.Error(c, err)
	}

	user, err := h.ids.Register(c.UserContext(), identity.Registration{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Created(c, "registration successful, please verify your email", toPayload(user))
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// VerifyEmail consumes the pending code and flips the verification flag.
func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	var req verifyEmailRequest
	if err := h.parse(c, &req); err != nil {
		return h.out.Error(c, err)
	}

	user, err := h.ids.VerifyEmail(c.UserContext(), req.Email, req.OTP)
	if err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Success(c, fiber.StatusOK, "email verified successfully", toPayload(user))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User        userPayload `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
}

// Login issues the token pair. The access token travels in the body, the
// refresh token only in the HTTP-only cookie.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := h.parse(c, &req); err != nil {
		return h.out.Error(c, err)
	}

	user, pair, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.out.Error(c, err)
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	return h.out.Success(c, fiber.StatusOK, "login successful", loginResponse{
		User:        toPayload(user),
		AccessToken: pair.AccessToken,
		ExpiresIn:   pair.ExpiresIn,
	})
}

// Refresh exchanges the refresh cookie for a new access token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	presented := c.Cookies(refreshCookie)
	if presented == "" {
		return h.out.Error(c, fmt.Errorf("refresh token missing: %w", domain.ErrUnauthenticated))
	}

	access, err := h.svc.Refresh(c.UserContext(), presented)
	if err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Success(c, fiber.StatusOK, "token refreshed successfully", fiber.Map{"access_token": access})
}

// Logout revokes the refresh fingerprint and clears the cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
	presented := c.Cookies(refreshCookie)
	if presented == "" {
		return h.out.Error(c, fmt.Errorf("refresh token missing: %w", domain.ErrUnauthenticated))
	}

	if err := h.svc.Logout(c.UserContext(), presented); err != nil {
		return h.out.Error(c, err)
	}

	h.clearRefreshCookie(c)
	return h.out.Success(c, fiber.StatusOK, "logged out successfully", nil)
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword mails a password-reset code.
func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := h.parse(c, &req); err != nil {
		return h.out.Error(c, err)
	}

	if err := h.ids.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Success(c, fiber.StatusOK, "password reset code sent to your email", nil)
}

type resetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPassword proves control of the address and replaces the credential.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := h.parse(c, &req); err != nil {
		return h.out.Error(c, err)
	}

	if err := h.ids.ResetPassword(c.UserContext(), req.Email, req.OTP, req.Password); err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Success(c, fiber.StatusOK, "password reset successful, please login with your new password", nil)
}

// Me returns the identity attached by the session guard.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, ok := middleware.UserFromCtx(c)
	if !ok {
		return h.out.Error(c, domain.ErrUnauthenticated)
	}
	return h.out.Success(c, fiber.StatusOK, "user retrieved successfully", toPayload(user))
}

func (h *Handler) parse(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fmt.Errorf("malformed request body: %w", domain.ErrBadRequest)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	return nil
}

func (h *Handler) setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/api/v1/auth",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func (h *Handler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/api/v1/auth",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

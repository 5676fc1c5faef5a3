// Package respond renders the stable response envelope and maps domain
// errors to HTTP status codes.
package respond

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/taskify/taskify-api/internal/domain"
)

// Envelope is the fixed user-visible response shape.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Detail  string `json:"detail,omitempty"`
}

// Writer renders envelopes. When Debug is set, error responses carry the
// underlying error text in a detail field; production keeps it opaque.
type Writer struct {
	Debug bool
}

// Success writes a success envelope with the given status code.
func (w Writer) Success(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{Status: "success", Message: message, Code: status, Data: data})
}

// Created writes a 201 envelope.
func (w Writer) Created(c *fiber.Ctx, message string, data any) error {
	return w.Success(c, fiber.StatusCreated, message, data)
}

// NoContent writes an empty 204 response.
func (w Writer) NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Error maps err to a status code and writes an error envelope. Credential
// failures collapse to one opaque 401 message so callers cannot distinguish
// expired from forged from revoked.
func (w Writer) Error(c *fiber.Ctx, err error) error {
	status, message := classify(err)

	env := Envelope{Status: "error", Message: message, Code: status, Data: nil}
	if w.Debug && status >= fiber.StatusInternalServerError {
		env.Detail = err.Error()
	}
	return c.Status(status).JSON(env)
}

func classify(err error) (int, string) {
	switch {
	case domain.IsCredentialFailure(err):
		return fiber.StatusUnauthorized, "invalid or expired credentials"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "you do not have permission to perform this action"
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests, "too many requests, please try again later"
	case errors.Is(err, domain.ErrBadRequest):
		return fiber.StatusBadRequest, trimSentinel(err, domain.ErrBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, trimSentinel(err, domain.ErrNotFound)
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, trimSentinel(err, domain.ErrConflict)
	case errors.Is(err, domain.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable, "service temporarily unavailable, please retry"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

// trimSentinel strips the trailing ": <sentinel>" wrap so the user sees the
// human part of the message.
func trimSentinel(err error, sentinel error) string {
	msg := err.Error()
	msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	if msg == "" || msg == sentinel.Error() {
		return sentinel.Error()
	}
	return msg
}

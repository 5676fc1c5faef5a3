// Package notification defines the outbound message contract used by the
// identity-proofing flows, plus the plain-text messages themselves.
package notification

import (
	"context"
	"fmt"
	"log/slog"
)

// Notifier delivers a rendered message to a contact address. A returned
// error during identity proofing aborts the flow; callers roll back any
// partial state they created.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LoggerNotifier writes messages to the structured logger. It stands in for
// a real mail provider in development and tests.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, to, subject, body string) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "to", to, "subject", subject, "body", body)
	return nil
}

// VerificationMessage renders the email-verification mail for a fresh OTP.
func VerificationMessage(code string) (subject, body string) {
	return "Verify your email",
		fmt.Sprintf("Your Taskify verification code is %s. It expires in 5 minutes.", code)
}

// WelcomeMessage renders the mail sent after a successful verification.
func WelcomeMessage(name string) (subject, body string) {
	return "Welcome to Taskify",
		fmt.Sprintf("Hi %s, your email is verified and your account is ready to use.", name)
}

// PasswordResetMessage renders the password-reset mail for a fresh OTP.
func PasswordResetMessage(code string) (subject, body string) {
	return "Reset your password",
		fmt.Sprintf("Your Taskify password reset code is %s. It expires in 5 minutes. If you did not request this, ignore this email.", code)
}

// Package ratelimit enforces fixed-window attempt budgets keyed by
// (purpose, identifier) using shared counters in the key-value store, so the
// limits hold across process replicas.
package ratelimit

import (
	"context"
	"time"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/kv"
)

// Purpose names an independent rate-limit bucket family.
type Purpose string

const (
	// PurposeLogin guards authentication attempts, keyed by origin IP.
	PurposeLogin Purpose = "login"
	// PurposeOTP guards identity-proofing actions, keyed by the target
	// contact address so a specific account is defended.
	PurposeOTP Purpose = "otp"
	// PurposeAPI guards generic traffic, keyed by origin IP.
	PurposeAPI Purpose = "api"
)

// Window pairs a ceiling with the fixed window it applies to.
type Window struct {
	Max    int
	Length time.Duration
}

// Limiter counts attempts per (purpose, identifier) and rejects once the
// window's ceiling is exceeded. The counter lives in the key-value store with
// a TTL equal to the window, so it resets by expiry.
type Limiter struct {
	store   kv.Store
	windows map[Purpose]Window
}

// New builds a Limiter with one Window per purpose.
func New(store kv.Store, windows map[Purpose]Window) *Limiter {
	return &Limiter{store: store, windows: windows}
}

// Allow records one attempt and returns domain.ErrRateLimited when the
// ceiling for the active window is exceeded. It must run before the guarded
// operation performs any side effect: the quota check is the gate, not an
// afterthought. Store faults surface as domain.ErrStoreUnavailable because a
// silent fail-open would void the budget.
func (l *Limiter) Allow(ctx context.Context, purpose Purpose, identifier string) error {
	w, ok := l.windows[purpose]
	if !ok || w.Max <= 0 {
		return nil
	}

	count, err := l.store.IncrWithExpiry(ctx, key(purpose, identifier), w.Length)
	if err != nil {
		return err
	}
	if count > int64(w.Max) {
		return domain.ErrRateLimited
	}
	return nil
}

func key(purpose Purpose, identifier string) string {
	return "rate:" + string(purpose) + ":" + identifier
}

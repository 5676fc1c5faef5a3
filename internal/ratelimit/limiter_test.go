package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/kv"
)

func setupLimiter(t *testing.T, windows map[Purpose]Window) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return New(kv.NewRedisStore(client), windows), mr
}

func TestAllowUpToMax(t *testing.T) {
	limiter, _ := setupLimiter(t, map[Purpose]Window{
		PurposeLogin: {Max: 3, Length: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Allow(ctx, PurposeLogin, "1.2.3.4"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := limiter.Allow(ctx, PurposeLogin, "1.2.3.4"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on attempt 4, got %v", err)
	}
}

func TestWindowResets(t *testing.T) {
	limiter, mr := setupLimiter(t, map[Purpose]Window{
		PurposeLogin: {Max: 1, Length: time.Minute},
	})
	ctx := context.Background()

	if err := limiter.Allow(ctx, PurposeLogin, "1.2.3.4"); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if err := limiter.Allow(ctx, PurposeLogin, "1.2.3.4"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(61 * time.Second)
	if err := limiter.Allow(ctx, PurposeLogin, "1.2.3.4"); err != nil {
		t.Fatalf("attempt in fresh window: %v", err)
	}
}

func TestIdentifiersAreIndependent(t *testing.T) {
	limiter, _ := setupLimiter(t, map[Purpose]Window{
		PurposeOTP: {Max: 1, Length: time.Minute},
	})
	ctx := context.Background()

	if err := limiter.Allow(ctx, PurposeOTP, "a@example.com"); err != nil {
		t.Fatalf("first identifier: %v", err)
	}
	if err := limiter.Allow(ctx, PurposeOTP, "b@example.com"); err != nil {
		t.Fatalf("second identifier: %v", err)
	}
	if err := limiter.Allow(ctx, PurposeOTP, "a@example.com"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestPurposesAreIndependent(t *testing.T) {
	limiter, _ := setupLimiter(t, map[Purpose]Window{
		PurposeLogin: {Max: 1, Length: time.Minute},
		PurposeAPI:   {Max: 2, Length: time.Minute},
	})
	ctx := context.Background()

	if err := limiter.Allow(ctx, PurposeLogin, "1.2.3.4"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := limiter.Allow(ctx, PurposeAPI, "1.2.3.4"); err != nil {
		t.Fatalf("api: %v", err)
	}
	if err := limiter.Allow(ctx, PurposeLogin, "1.2.3.4"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected login gate closed, got %v", err)
	}
	if err := limiter.Allow(ctx, PurposeAPI, "1.2.3.4"); err != nil {
		t.Fatalf("expected api gate still open, got %v", err)
	}
}

func TestStoreFaultSurfaces(t *testing.T) {
	limiter, mr := setupLimiter(t, map[Purpose]Window{
		PurposeLogin: {Max: 1, Length: time.Minute},
	})
	mr.Close()

	err := limiter.Allow(context.Background(), PurposeLogin, "1.2.3.4")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

package otp

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/taskify/taskify-api/internal/kv"
)

func setupService(t *testing.T, ttl time.Duration) (*Service, *miniredis.Miniredis) {
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
	return NewService(kv.NewRedisStore(client), ttl), mr
}

func TestGenerateFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}

func TestVerifyConsumesCode(t *testing.T) {
	svc, _ := setupService(t, 5*time.Minute)
	ctx := context.Background()

	if err := svc.Store(ctx, "a@example.com", "123456"); err != nil {
		t.Fatalf("store: %v", err)
	}

	ok, err := svc.Verify(ctx, "a@example.com", "123456")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected match")
	}

	// Single use: the same code must not verify twice.
	ok, err = svc.Verify(ctx, "a@example.com", "123456")
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if ok {
		t.Fatal("expected consumed code to be rejected")
	}
}

func TestVerifyMismatchAndAbsenceLookAlike(t *testing.T) {
	svc, _ := setupService(t, 5*time.Minute)
	ctx := context.Background()

	ok, err := svc.Verify(ctx, "nobody@example.com", "123456")
	if err != nil || ok {
		t.Fatalf("expected (false, nil) for absent code, got (%v, %v)", ok, err)
	}

	if err := svc.Store(ctx, "a@example.com", "123456"); err != nil {
		t.Fatalf("store: %v", err)
	}
	ok, err = svc.Verify(ctx, "a@example.com", "654321")
	if err != nil || ok {
		t.Fatalf("expected (false, nil) for wrong code, got (%v, %v)", ok, err)
	}

	// A failed attempt must not consume the pending code.
	ok, err = svc.Verify(ctx, "a@example.com", "123456")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected pending code to survive a failed attempt")
	}
}

func TestStoreOverwritesPendingCode(t *testing.T) {
	svc, _ := setupService(t, 5*time.Minute)
	ctx := context.Background()

	if err := svc.Store(ctx, "a@example.com", "111111"); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := svc.Store(ctx, "a@example.com", "222222"); err != nil {
		t.Fatalf("store: %v", err)
	}

	ok, err := svc.Verify(ctx, "a@example.com", "111111")
	if err != nil || ok {
		t.Fatalf("expected stale code rejected, got (%v, %v)", ok, err)
	}
	ok, err = svc.Verify(ctx, "a@example.com", "222222")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected newest code to verify")
	}
}

func TestCodeExpires(t *testing.T) {
	svc, mr := setupService(t, 5*time.Minute)
	ctx := context.Background()

	if err := svc.Store(ctx, "a@example.com", "123456"); err != nil {
		t.Fatalf("store: %v", err)
	}
	mr.FastForward(6 * time.Minute)

	ok, err := svc.Verify(ctx, "a@example.com", "123456")
	if err != nil || ok {
		t.Fatalf("expected expired code rejected, got (%v, %v)", ok, err)
	}
}

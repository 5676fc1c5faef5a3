package token

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

func testConfig() Config {
	return Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "taskify-test",
	}
}

func setupManager(t *testing.T, cfg Config) (*Manager, *miniredis.Miniredis) {
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

	mgr, err := NewManager(kv.NewRedisStore(client), cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return mgr, mr
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	if _, err := NewManager(nil, Config{}); err == nil {
		t.Fatal("expected error for empty secrets")
	}
	cfg := testConfig()
	cfg.AccessTTL = 0
	if _, err := NewManager(nil, cfg); err == nil {
		t.Fatal("expected error for zero TTL")
	}
}

func TestIssueAndParseAccess(t *testing.T) {
	mgr, _ := setupManager(t, testConfig())

	raw, err := mgr.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := mgr.ParseAccess(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.Subject)
	}
}

func TestSecretsAreNotInterchangeable(t *testing.T) {
	mgr, _ := setupManager(t, testConfig())

	refresh, err := mgr.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	if _, err := mgr.ParseAccess(refresh); !errors.Is(err, domain.ErrCredentialInvalid) {
		t.Fatalf("expected ErrCredentialInvalid, got %v", err)
	}
}

func TestParseExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = time.Millisecond
	mgr, _ := setupManager(t, cfg)

	raw, err := mgr.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := mgr.ParseAccess(raw); !errors.Is(err, domain.ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
}

func TestParseGarbage(t *testing.T) {
	mgr, _ := setupManager(t, testConfig())

	if _, err := mgr.ParseAccess("not-a-token"); !errors.Is(err, domain.ErrCredentialInvalid) {
		t.Fatalf("expected ErrCredentialInvalid, got %v", err)
	}
}

func TestRotateIssuesAccessAndKeepsRefreshValid(t *testing.T) {
	mgr, _ := setupManager(t, testConfig())
	ctx := context.Background()

	refresh, err := mgr.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if err := mgr.PersistRefresh(ctx, "user-1", refresh); err != nil {
		t.Fatalf("persist: %v", err)
	}

	// The same raw refresh token stays exchangeable across rotations.
	for i := 0; i < 2; i++ {
		access, err := mgr.Rotate(ctx, "user-1", refresh)
		if err != nil {
			t.Fatalf("rotate %d: %v", i, err)
		}
		claims, err := mgr.ParseAccess(access)
		if err != nil {
			t.Fatalf("parse rotated access: %v", err)
		}
		if claims.Subject != "user-1" {
			t.Fatalf("expected subject user-1, got %q", claims.Subject)
		}
	}
}

func TestRotateRejectsReplacedToken(t *testing.T) {
	mgr, _ := setupManager(t, testConfig())
	ctx := context.Background()

	first, err := mgr.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := mgr.PersistRefresh(ctx, "user-1", first); err != nil {
		t.Fatalf("persist: %v", err)
	}

	// A new login overwrites the fingerprint slot.
	time.Sleep(time.Second)
	second, err := mgr.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	if second == first {
		t.Fatal("expected distinct refresh tokens")
	}
	if err := mgr.PersistRefresh(ctx, "user-1", second); err != nil {
		t.Fatalf("persist second: %v", err)
	}

	if _, err := mgr.Rotate(ctx, "user-1", first); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for replaced token, got %v", err)
	}
	if _, err := mgr.Rotate(ctx, "user-1", second); err != nil {
		t.Fatalf("rotate current token: %v", err)
	}
}

func TestRotateRejectsSubjectMismatch(t *testing.T) {
	mgr, _ := setupManager(t, testConfig())
	ctx := context.Background()

	refresh, err := mgr.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := mgr.PersistRefresh(ctx, "user-1", refresh); err != nil {
		t.Fatalf("persist: %v", err)
	}

	if _, err := mgr.Rotate(ctx, "user-2", refresh); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRevokeEndsTheSession(t *testing.T) {
	mgr, _ := setupManager(t, testConfig())
	ctx := context.Background()

	refresh, err := mgr.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := mgr.PersistRefresh(ctx, "user-1", refresh); err != nil {
		t.Fatalf("persist: %v", err)
	}

	if err := mgr.Revoke(ctx, "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := mgr.Revoke(ctx, "user-1"); err != nil {
		t.Fatalf("second revoke: %v", err)
	}

	if _, err := mgr.Rotate(ctx, "user-1", refresh); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after revoke, got %v", err)
	}
}

func TestRotateSurfacesStoreFaults(t *testing.T) {
	mgr, mr := setupManager(t, testConfig())
	ctx := context.Background()

	refresh, err := mgr.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := mgr.PersistRefresh(ctx, "user-1", refresh); err != nil {
		t.Fatalf("persist: %v", err)
	}

	mr.Close()
	if _, err := mgr.Rotate(ctx, "user-1", refresh); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

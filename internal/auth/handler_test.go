package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/taskify/taskify-api/internal/respond"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func setupHandlerApp(t *testing.T) (*fiber.App, *authFixture) {
	t.Helper()
	f := setupAuth(t)
	h := NewHandler(f.ids, f.svc, respond.Writer{}, time.Hour, false)

	app := fiber.New()
	group := app.Group("/api/v1/auth")
	group.Post("/register", h.Register)
	group.Post("/verify-email", h.VerifyEmail)
	group.Post("/login", h.Login)
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", h.Logout)
	return app, f
}

func do(t *testing.T, app *fiber.App, path, body string, cookies ...*http.Cookie) (*http.Response, envelope) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test %s: %v", path, err)
	}

	var env envelope
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &env); err != nil {
			t.Fatalf("decode envelope %q: %v", payload, err)
		}
	}
	return resp, env
}

func refreshCookieFrom(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == refreshCookie {
			return c
		}
	}
	t.Fatal("no refresh cookie set")
	return nil
}

func TestRegisterValidatesInput(t *testing.T) {
	app, _ := setupHandlerApp(t)

	resp, env := do(t, app, "/api/v1/auth/register", `{"name":"A","email":"not-an-email","password":"short"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if env.Status != "error" {
		t.Fatalf("expected error envelope, got %+v", env)
	}
}

func TestLoginSetsRefreshCookie(t *testing.T) {
	app, f := setupHandlerApp(t)
	f.registerVerified(t, "ada@example.com", "correct horse")

	resp, env := do(t, app, "/api/v1/auth/login", `{"email":"ada@example.com","password":"correct horse"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, env.Message)
	}

	cookie := refreshCookieFrom(t, resp)
	if !cookie.HttpOnly {
		t.Fatal("expected HTTP-only cookie")
	}
	if cookie.Path != "/api/v1/auth" {
		t.Fatalf("unexpected cookie path %q", cookie.Path)
	}
	if cookie.Value == "" {
		t.Fatal("expected a refresh token in the cookie")
	}

	// The refresh token must not leak into the response body.
	if strings.Contains(string(env.Data), cookie.Value) {
		t.Fatal("refresh token leaked into the body")
	}
	var data struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.AccessToken == "" {
		t.Fatal("expected access token in body")
	}
}

func TestLoginFailsOpaquely(t *testing.T) {
	app, f := setupHandlerApp(t)
	f.registerVerified(t, "ada@example.com", "correct horse")

	resp1, env1 := do(t, app, "/api/v1/auth/login", `{"email":"ada@example.com","password":"wrong password"}`)
	resp2, env2 := do(t, app, "/api/v1/auth/login", `{"email":"ghost@example.com","password":"wrong password"}`)
	if resp1.StatusCode != fiber.StatusUnauthorized || resp2.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401s, got %d and %d", resp1.StatusCode, resp2.StatusCode)
	}
	if env1.Message != env2.Message {
		t.Fatalf("expected identical messages, got %q and %q", env1.Message, env2.Message)
	}
}

func TestRefreshUsesCookie(t *testing.T) {
	app, f := setupHandlerApp(t)
	f.registerVerified(t, "ada@example.com", "correct horse")

	resp, _ := do(t, app, "/api/v1/auth/login", `{"email":"ada@example.com","password":"correct horse"}`)
	cookie := refreshCookieFrom(t, resp)

	resp, env := do(t, app, "/api/v1/auth/refresh", "{}", cookie)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, env.Message)
	}
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.AccessToken == "" {
		t.Fatal("expected access token")
	}

	// Without the cookie the exchange fails.
	resp, _ = do(t, app, "/api/v1/auth/refresh", "{}")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", resp.StatusCode)
	}
}

func TestLogoutClearsCookieAndRevokes(t *testing.T) {
	app, f := setupHandlerApp(t)
	f.registerVerified(t, "ada@example.com", "correct horse")

	resp, _ := do(t, app, "/api/v1/auth/login", `{"email":"ada@example.com","password":"correct horse"}`)
	cookie := refreshCookieFrom(t, resp)

	resp, env := do(t, app, "/api/v1/auth/logout", "{}", cookie)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, env.Message)
	}
	cleared := refreshCookieFrom(t, resp)
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got value=%q maxage=%d", cleared.Value, cleared.MaxAge)
	}

	// The old cookie no longer refreshes.
	resp, _ = do(t, app, "/api/v1/auth/refresh", "{}", cookie)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

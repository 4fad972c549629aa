package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cardbook/api/internal/session"

	"github.com/alicebob/miniredis/v2"
)

func setupGate(t *testing.T, password string) *Gate {
	s := miniredis.RunT(t)
	store, err := session.NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	gate, err := NewGate(password, store, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	return gate
}

func TestLoginAndVerify(t *testing.T) {
	gate := setupGate(t, "secret")
	ctx := context.Background()

	token, err := gate.Login(ctx, "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a token")
	}

	if err := gate.Verify(ctx, token); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	gate := setupGate(t, "secret")

	_, err := gate.Login(context.Background(), "wrong")
	if !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestLoginUnconfiguredGate(t *testing.T) {
	gate := setupGate(t, "")

	if gate.Configured() {
		t.Errorf("empty password must leave the gate unconfigured")
	}
	_, err := gate.Login(context.Background(), "")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	gate := setupGate(t, "secret")
	ctx := context.Background()

	token, err := gate.Login(ctx, "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := gate.Logout(ctx, token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if err := gate.Verify(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after logout, got %v", err)
	}
}

func TestVerifyRequestCookie(t *testing.T) {
	gate := setupGate(t, "secret")
	ctx := context.Background()

	token, err := gate.Login(ctx, "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	if err := gate.VerifyRequest(r); err != nil {
		t.Errorf("VerifyRequest failed: %v", err)
	}

	bare := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	if err := gate.VerifyRequest(bare); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession without cookie, got %v", err)
	}

	forged := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	forged.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	if err := gate.VerifyRequest(forged); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession for forged token, got %v", err)
	}
}

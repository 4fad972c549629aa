// Package auth implements the shared-password login gate. There are no
// user accounts: one configured password guards the whole API, and a
// successful login mints an opaque session token.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cardbook/api/internal/session"

	"golang.org/x/crypto/bcrypt"
)

// CookieName is the session cookie set on login.
const CookieName = "cardbook_session"

var (
	// ErrNotConfigured is returned when no gate password is set; the
	// handlers map it to service-unavailable rather than letting an
	// empty password through.
	ErrNotConfigured = errors.New("gate password not configured")

	// ErrInvalidPassword is returned on a wrong password.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrNoSession is returned when the request carries no valid session.
	ErrNoSession = errors.New("no valid session")
)

// Gate validates the shared password and manages session tokens.
type Gate struct {
	passwordHash []byte
	sessions     *session.RedisStore
	ttl          time.Duration
}

// NewGate hashes the configured password once at construction. An empty
// password leaves the gate unconfigured; logins then fail with
// ErrNotConfigured.
func NewGate(password string, sessions *session.RedisStore, ttl time.Duration) (*Gate, error) {
	g := &Gate{sessions: sessions, ttl: ttl}
	if password == "" {
		return g, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash gate password: %w", err)
	}
	g.passwordHash = hash
	return g, nil
}

// Configured reports whether a gate password is set.
func (g *Gate) Configured() bool {
	return len(g.passwordHash) > 0
}

// TTL returns the session lifetime, for cookie max-age.
func (g *Gate) TTL() time.Duration {
	return g.ttl
}

// Login checks the password and mints a session token.
func (g *Gate) Login(ctx context.Context, password string) (string, error) {
	if !g.Configured() {
		return "", ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	if err := g.sessions.SaveSession(ctx, token, g.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Logout revokes a session token. Unknown tokens are not an error.
func (g *Gate) Logout(ctx context.Context, token string) error {
	return g.sessions.RevokeSession(ctx, token)
}

// Verify checks that a session token is live.
func (g *Gate) Verify(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoSession
	}
	if _, err := g.sessions.LookupSession(ctx, token); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrNoSession
		}
		return err
	}
	return nil
}

// VerifyRequest checks the session cookie on an incoming request.
func (g *Gate) VerifyRequest(r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ErrNoSession
	}
	return g.Verify(r.Context(), cookie.Value)
}

// generateToken creates a secure random token
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/derickschaefer/campcheck/internal/session"
)

// memStore is an in-memory TokenStore.
type memStore struct {
	token string
}

func (m *memStore) PutToken(t string) error {
	m.token = t
	return nil
}

func (m *memStore) GetToken() (string, bool, error) {
	return m.token, m.token != "", nil
}

func (m *memStore) DeleteToken() error {
	m.token = ""
	return nil
}

func provider(m *memStore) *session.Provider {
	return session.NewProvider(func() (session.TokenStore, error) { return m, nil }, nil)
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return tok
}

// ─── ParseClaims ──────────────────────────────────────────────────────────────

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tok := signed(t, jwt.MapClaims{"sub": "ana@example.com", "exp": exp, "iat": exp - 3600})

	c, err := session.ParseClaims(tok)
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if c.Subject != "ana@example.com" || c.Email != "ana@example.com" {
		t.Errorf("subject/email: %+v", c)
	}
	if c.ExpiresAt.Unix() != exp {
		t.Errorf("exp: expected %d, got %d", exp, c.ExpiresAt.Unix())
	}
	if c.Expired(time.Now()) {
		t.Error("token should not be expired yet")
	}
}

func TestParseClaimsNotJWT(t *testing.T) {
	if _, err := session.ParseClaims("opaque-token"); err == nil {
		t.Error("expected error for non-JWT token")
	}
}

func TestClaimsWithoutExpiryNeverExpire(t *testing.T) {
	c := session.Claims{Subject: "x"}
	if c.Expired(time.Now().Add(100 * 365 * 24 * time.Hour)) {
		t.Error("no exp claim should never expire")
	}
}

// ─── Provider ─────────────────────────────────────────────────────────────────

func TestTokenEmptyWhenLoggedOut(t *testing.T) {
	p := provider(&memStore{})
	tok, err := p.Token(context.Background())
	if err != nil || tok != "" {
		t.Errorf("expected empty token and no error, got %q %v", tok, err)
	}
	if err := p.Require(); !errors.Is(err, session.ErrNotLoggedIn) {
		t.Errorf("Require: expected ErrNotLoggedIn, got %v", err)
	}
}

func TestTokenPassesOpaqueTokens(t *testing.T) {
	m := &memStore{}
	p := provider(m)
	if err := p.Save("opaque"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	tok, err := p.Token(context.Background())
	if err != nil || tok != "opaque" {
		t.Errorf("expected opaque token, got %q %v", tok, err)
	}
}

func TestTokenExpired(t *testing.T) {
	m := &memStore{token: signed(t, jwt.MapClaims{"sub": "a", "exp": time.Now().Add(-time.Minute).Unix()})}
	p := provider(m)
	if _, err := p.Token(context.Background()); !errors.Is(err, session.ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
	st, err := p.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.LoggedIn || !st.Expired {
		t.Errorf("status: %+v", st)
	}
}

func TestClear(t *testing.T) {
	m := &memStore{token: "x"}
	p := provider(m)
	if err := p.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if st, _ := p.Status(); st.LoggedIn {
		t.Error("expected logged out after Clear")
	}
}

func TestTokenHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := provider(&memStore{token: "x"}).Token(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

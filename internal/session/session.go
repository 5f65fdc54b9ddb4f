// Package session keeps the backend login token and reads its claims.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

var (
	// ErrNotLoggedIn is returned when a command needs a session and none is stored.
	ErrNotLoggedIn = errors.New("not logged in: run 'campcheck auth login'")
	// ErrExpired is returned when the stored token's exp claim has passed.
	ErrExpired = errors.New("session expired: run 'campcheck auth login' again")
)

// TokenStore persists the token. *store.Store satisfies it.
type TokenStore interface {
	PutToken(token string) error
	GetToken() (string, bool, error)
	DeleteToken() error
}

// Claims are the fields campcheck reads from a token. Tokens that are not
// JWTs have no claims; they are still sent as-is.
type Claims struct {
	Subject   string    `json:"subject,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitempty"`
}

// Expired reports whether the token had an expiry that is now past.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseClaims decodes the payload segment of a JWT without verifying the
// signature; the backend is the only party that can verify it.
func ParseClaims(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, errors.New("token is not a JWT")
	}
	payload, err := jwt.DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("decoding token payload: %w", err)
	}
	claimsMap := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claimsMap); err != nil {
		return Claims{}, fmt.Errorf("parsing token payload: %w", err)
	}

	var c Claims
	if v, ok := claimsMap["sub"].(string); ok {
		c.Subject = v
	}
	if v, ok := claimsMap["email"].(string); ok {
		c.Email = v
	} else if strings.Contains(c.Subject, "@") {
		c.Email = c.Subject
	}
	c.ExpiresAt = unixClaim(claimsMap["exp"])
	c.IssuedAt = unixClaim(claimsMap["iat"])
	return c, nil
}

func unixClaim(v interface{}) time.Time {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0).UTC()
	case int64:
		return time.Unix(n, 0).UTC()
	}
	return time.Time{}
}

// Provider hands the stored token to the API client. The store is opened
// lazily so commands that never authenticate never touch the database.
type Provider struct {
	open func() (TokenStore, error)
	log  *zap.Logger
	now  func() time.Time
}

// NewProvider returns a Provider backed by the store open returns.
func NewProvider(open func() (TokenStore, error), logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{open: open, log: logger, now: time.Now}
}

// Token returns the stored token. No token yields "" so the request goes out
// unauthenticated and the backend decides. An expired JWT is an error.
func (p *Provider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ts, err := p.open()
	if err != nil {
		return "", err
	}
	token, ok, err := ts.GetToken()
	if err != nil {
		return "", fmt.Errorf("reading session: %w", err)
	}
	if !ok {
		p.log.Debug("no session token stored")
		return "", nil
	}
	if c, err := ParseClaims(token); err == nil && c.Expired(p.now()) {
		return "", ErrExpired
	}
	return token, nil
}

// Save stores a fresh token from login.
func (p *Provider) Save(token string) error {
	ts, err := p.open()
	if err != nil {
		return err
	}
	return ts.PutToken(token)
}

// Clear forgets the stored token.
func (p *Provider) Clear() error {
	ts, err := p.open()
	if err != nil {
		return err
	}
	return ts.DeleteToken()
}

// Status describes the stored session for `auth status`.
type Status struct {
	LoggedIn bool   `json:"logged_in"`
	Expired  bool   `json:"expired"`
	Claims   Claims `json:"claims"`
}

// Status reports whether a session is stored and what its token says.
func (p *Provider) Status() (Status, error) {
	ts, err := p.open()
	if err != nil {
		return Status{}, err
	}
	token, ok, err := ts.GetToken()
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{}, nil
	}
	st := Status{LoggedIn: true}
	if c, err := ParseClaims(token); err == nil {
		st.Claims = c
		st.Expired = c.Expired(p.now())
	}
	return st, nil
}

// Require returns ErrNotLoggedIn when no usable session is stored.
func (p *Provider) Require() error {
	st, err := p.Status()
	if err != nil {
		return err
	}
	switch {
	case !st.LoggedIn:
		return ErrNotLoggedIn
	case st.Expired:
		return ErrExpired
	}
	return nil
}

// Package camp implements the HTTP client for the campground availability
// backend. All methods are context-aware, respect the shared rate limiter,
// and retry on transient errors (429, 5xx).
package camp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "http://localhost:8087/"
	maxRetries     = 4
	// UserAgent is sent with every backend request.
	UserAgent      = "campcheck-cli/1.0"
)

// CredentialProvider supplies the session token attached to authenticated
// requests. An empty token means "not logged in"; the request is sent
// without an Authorization header and the backend decides.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	RatePerSec  float64
	Credentials CredentialProvider
	Logger      *zap.Logger
	// HTTPClient overrides the transport; tests pass httptest clients.
	HTTPClient *http.Client
	// Backoff is the first retry delay; later retries double it.
	Backoff time.Duration
}

// Client is the campground backend HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	creds      CredentialProvider
	log        *zap.Logger
	backoff    time.Duration
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	ratePerSec := opts.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: hc,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		creds:      opts.Credentials,
		log:        logger,
		backoff:    backoff,
	}
}

// BaseURL returns the normalized backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

// get performs a GET request, handling rate limiting and retries.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, reqURL, nil, false, out)
}

// post sends body as JSON. When auth is true the session token is attached.
func (c *Client) post(ctx context.Context, endpoint string, body interface{}, auth bool, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+endpoint, payload, auth, out)
}

func (c *Client) do(ctx context.Context, method, reqURL string, payload []byte, auth bool, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var token string
	if auth && c.creds != nil {
		t, err := c.creds.Token(ctx)
		if err != nil {
			return fmt.Errorf("loading credentials: %w", err)
		}
		token = t
	}

	c.log.Debug("backend request",
		zap.String("method", method),
		zap.String("url", reqURL),
		zap.Bool("authenticated", token != ""))

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
			c.log.Debug("retrying after backoff", zap.Int("attempt", attempt), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", UserAgent)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading body: %w", err)
			continue
		}

		c.log.Debug("backend response", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(respBody)))

		// Retry on server errors and rate limiting
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = newAPIError(resp.StatusCode, respBody)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return newAPIError(resp.StatusCode, respBody)
		}

		if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// Package contactclient talks to the contact service the way the website form
// does: fetch a token, post the form, renew the token when it is spent.
package contactclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/blogem/contact-guard/models"
)

const (
	tokenTimeout  = 10 * time.Second
	submitTimeout = 30 * time.Second

	invalidTokenMessage = "Invalid security token"
)

var (
	// ErrTryAgain means the request did not complete and can be repeated
	ErrTryAgain = errors.New("request failed, please try again")
	// ErrNoToken means no security token could be obtained for a submission
	ErrNoToken = errors.New("no security token available")
)

// Result is the service's answer to a submission
type Result struct {
	StatusCode int
	Success    bool
	Message    string
}

// Client is safe for concurrent use; submissions share one session and token.
type Client struct {
	baseURL       *url.URL
	http          *http.Client
	userAgent     string
	tokenPath     string
	submitPath    string
	honeypotField string

	mu    sync.Mutex
	token string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient bases the underlying HTTP client on hc. The client is copied,
// and the copy gets its own cookie jar when hc has none, since tokens are
// bound to the session cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLegacyPaths targets the paths of the previous deployment
func WithLegacyPaths() Option {
	return func(c *Client) {
		c.tokenPath = "/assets/php/get-csrf-token.php"
		c.submitPath = "/assets/php/mail.php"
	}
}

// WithHoneypotField names the hidden field that is always posted empty
func WithHoneypotField(name string) Option {
	return func(c *Client) {
		c.honeypotField = name
	}
}

// New creates a client for the service at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:       u,
		http:          &http.Client{},
		userAgent:     "contact-guard-client/1.0",
		tokenPath:     "/api/csrf-token",
		submitPath:    "/api/contact",
		honeypotField: "website_url",
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.http
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	c.http = &hc

	return c, nil
}

// Token returns the token held for the next submission, if any
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// FetchToken obtains a fresh token, bounded by a 10 second timeout
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(c.tokenPath), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTryAgain, err)
	}
	defer resp.Body.Close()

	var body models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: unreadable token response (status %d)", ErrTryAgain, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || !body.Success || body.CSRFToken == "" {
		return "", fmt.Errorf("%w: token request answered %d: %s", ErrTryAgain, resp.StatusCode, body.Error)
	}

	c.setToken(body.CSRFToken)
	return body.CSRFToken, nil
}

// Submit posts the form with the current token, fetching one first if needed.
// It is bounded by a 30 second timeout. Rejections come back as a Result;
// an error means the outcome is unknown. The token is renewed after a
// success and after a token rejection.
func (c *Client) Submit(ctx context.Context, form models.ContactForm) (*Result, error) {
	token := c.Token()
	if token == "" {
		var err error
		if token, err = c.FetchToken(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoToken, err)
		}
	}

	values := url.Values{
		"name":       {form.Name},
		"phone":      {form.Phone},
		"email":      {form.Email},
		"subject":    {form.Subject},
		"message":    {form.Message},
		"csrf_token": {token},
	}
	if c.honeypotField != "" {
		values.Set(c.honeypotField, "")
	}

	result, err := c.post(ctx, values)
	if err != nil {
		return nil, err
	}

	if result.Success || result.Message == invalidTokenMessage {
		c.setToken("")
		if _, err := c.FetchToken(ctx); err != nil {
			slog.Warn("could not renew contact token", "error", err)
		}
	}

	return result, nil
}

func (c *Client) post(ctx context.Context, values url.Values) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.submitPath), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build submission: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTryAgain, err)
	}
	defer resp.Body.Close()

	var body models.SubmissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: unreadable response (status %d)", ErrTryAgain, resp.StatusCode)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Success:    resp.StatusCode == http.StatusOK && body.Success,
		Message:    body.Message,
	}, nil
}

// WaitReady polls the health endpoint until it answers 200, at most attempts
// times with delay between tries
func (c *Client) WaitReady(ctx context.Context, attempts int, delay time.Duration) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if lastErr = c.ping(ctx); lastErr == nil {
			return nil
		}
		slog.Debug("contact service not ready", "attempt", i+1, "error", lastErr)
	}

	return fmt.Errorf("%w: service not ready after %d attempts: %v", ErrTryAgain, attempts, lastErr)
}

func (c *Client) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health answered %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

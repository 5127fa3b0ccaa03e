// Package client is a Go API client for the auth service. It carries the
// session cookies in a jar and transparently restores an expired session:
// a 401 response triggers a single refresh call shared across all
// concurrent requests, then the original request is replayed exactly once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	refreshPath = "/auth/refresh"

	// pageContextHeader marks requests originating from the login or
	// signup entry points; those never trigger a refresh.
	pageContextHeader = "X-Auth-Page"

	defaultMaxRefreshAttempts = 3
	defaultRefreshWindow      = 2 * time.Second
)

// ErrRefreshFailed is returned by Refresh when the server rejects the
// refresh token or the breaker refuses the attempt.
var ErrRefreshFailed = fmt.Errorf("session refresh failed")

// Config configures a Client.
type Config struct {
	// BaseURL is the root of the auth service, e.g. "https://api.example.com".
	BaseURL string

	// HTTPClient is optional; when nil a client with a fresh cookie jar
	// is constructed. A supplied client without a jar gets one installed.
	HTTPClient *http.Client

	// OnAuthFailure is invoked when a session cannot be restored: the
	// refresh failed or the breaker tripped. Typically it navigates the
	// caller to the login entry point. Optional.
	OnAuthFailure func()

	Logger *zap.Logger
}

// Client is a session-aware HTTP client for the auth service.
type Client struct {
	base          *url.URL
	http          *http.Client
	refreshGroup  singleflight.Group
	breaker       *refreshBreaker
	onAuthFailure func()
	logger        *zap.Logger
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		base:          base,
		http:          hc,
		breaker:       newRefreshBreaker(defaultMaxRefreshAttempts, defaultRefreshWindow),
		onAuthFailure: cfg.OnAuthFailure,
		logger:        logger,
	}, nil
}

// Do executes req. On a 401 it refreshes the session (one refresh shared
// across concurrent callers) and replays the request once; a second 401
// after the replay is returned as-is. Requests to the login and signup
// endpoints, and requests tagged with the login/signup page context
// header, are never refreshed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if c.skipRefresh(req) {
		return resp, nil
	}

	// A replay needs a rewindable body. GetBody is set by NewRequest for
	// common body types; without it the original 401 stands.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	if err := c.Refresh(req.Context()); err != nil {
		c.logger.Debug("session not restored", zap.Error(err))
		if c.onAuthFailure != nil {
			c.onAuthFailure()
		}
		return resp, nil
	}

	drainAndClose(resp)

	replay := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}
		replay.Body = body
	}
	return c.http.Do(replay)
}

// Refresh renews the access token. Concurrent callers share a single
// in-flight refresh and all observe its outcome.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		if !c.breaker.Allow() {
			return nil, fmt.Errorf("%w: too many attempts", ErrRefreshFailed)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(refreshPath), nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		}
		defer drainAndClose(resp)

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
		}
		c.breaker.Reset()
		return nil, nil
	})
	return err
}

// Get issues a GET against path (relative to the base URL) through Do.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// PostJSON issues a POST with a JSON body through Do.
func (c *Client) PostJSON(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req)
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.base.String(), "/") + path
}

func (c *Client) skipRefresh(req *http.Request) bool {
	switch req.URL.Path {
	case "/auth/login", "/auth/signup":
		return true
	}
	switch req.Header.Get(pageContextHeader) {
	case "login", "signup":
		return true
	}
	return false
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

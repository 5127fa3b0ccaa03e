package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KhrystynaYelyseyeva/auth-service/app"
	"github.com/KhrystynaYelyseyeva/auth-service/auth"
	"github.com/KhrystynaYelyseyeva/auth-service/config"
	"github.com/KhrystynaYelyseyeva/auth-service/handlers"
	"github.com/KhrystynaYelyseyeva/auth-service/middleware"
	"github.com/KhrystynaYelyseyeva/auth-service/repositories/memory"
	"github.com/KhrystynaYelyseyeva/auth-service/routes"
	"github.com/KhrystynaYelyseyeva/auth-service/services"
	"github.com/KhrystynaYelyseyeva/auth-service/services/ratelimit"
	"github.com/KhrystynaYelyseyeva/auth-service/token"
)

const e2eSecret = "0123456789abcdef0123456789abcdef"

// e2eFixture runs the full router over the in-memory user store with a
// controllable clock, and a cookie-jar client against it.
type e2eFixture struct {
	srv    *httptest.Server
	client *http.Client
	now    time.Time
	codec  *token.Codec
}

func newE2EFixture(t *testing.T) *e2eFixture {
	t.Helper()
	f := &e2eFixture{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:          e2eSecret,
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 168 * time.Hour,
		},
		RateLimit: config.RateLimitConfig{
			LoginAttempts: 5,
			LoginWindow:   time.Minute,
		},
		Environment: "test",
	}

	codec, err := token.NewCodec(cfg.JWT.Secret)
	require.NoError(t, err)
	f.codec = codec.WithClock(func() time.Time { return f.now })

	logger := zap.NewNop()
	users := memory.NewUserRepository()
	cookies := auth.NewCookieManager(cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, false)
	resolver := auth.NewResolver(f.codec)

	deps := &app.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Users:        users,
		Codec:        f.codec,
		Resolver:     resolver,
		Cookies:      cookies,
		UserService:  services.NewUserService(users, logger),
		LoginLimiter: ratelimit.NewService(cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow, logger),
		SessionMW:    middleware.NewSessionMiddleware(resolver, f.codec, cookies, cfg.JWT, logger),
		APIGate:      middleware.NewAPIGate(logger),
		RouteGate:    middleware.NewRouteGate(logger),
	}

	f.srv = httptest.NewServer(routes.SetupRoutes(deps))
	t.Cleanup(f.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	f.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return f
}

func (f *e2eFixture) postJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := f.client.Post(f.srv.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func (f *e2eFixture) get(t *testing.T, path string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	return resp
}

func (f *e2eFixture) signup(t *testing.T, name, email, password string) {
	t.Helper()
	resp := f.postJSON(t, "/auth/signup", map[string]string{
		"name": name, "email": email, "password": password,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignupLoginMeLifecycle(t *testing.T) {
	f := newE2EFixture(t)

	// Signup establishes a session: both cookies land in the jar.
	f.signup(t, "Alice", "alice@example.com", "password-one")

	resp := f.get(t, "/auth/me", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me struct {
		Data handlers.MeResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	require.NotNil(t, me.Data.Subject)
	assert.Equal(t, "alice@example.com", me.Data.Subject.Email)
	assert.False(t, me.Data.Skipped)

	// Logout clears the session.
	logoutResp := f.postJSON(t, "/auth/logout", nil)
	logoutResp.Body.Close()
	require.Equal(t, http.StatusOK, logoutResp.StatusCode)

	afterLogout := f.get(t, "/auth/me", nil)
	defer afterLogout.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, afterLogout.StatusCode)

	// Login re-establishes it.
	loginResp := f.postJSON(t, "/auth/login", map[string]string{
		"email": "alice@example.com", "password": "password-one",
	})
	loginResp.Body.Close()
	require.Equal(t, http.StatusOK, loginResp.StatusCode)

	again := f.get(t, "/auth/me", nil)
	defer again.Body.Close()
	assert.Equal(t, http.StatusOK, again.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newE2EFixture(t)
	f.signup(t, "Alice", "alice@example.com", "password-one")

	resp := f.postJSON(t, "/auth/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignupDuplicateEmailIsFieldError(t *testing.T) {
	f := newE2EFixture(t)
	f.signup(t, "Alice", "alice@example.com", "password-one")

	resp := f.postJSON(t, "/auth/signup", map[string]string{
		"name": "Alice Again", "email": "alice@example.com", "password": "password-two",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Details map[string]interface{} `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Details, "email")
}

// The central renewal scenario: access token expires, the next request is
// transparently re-authenticated from the refresh token with a fresh access
// cookie attached; once the refresh token also expires the session is gone
// and both cookies are cleared.
func TestTransparentRenewalAndFinalExpiry(t *testing.T) {
	f := newE2EFixture(t)
	f.signup(t, "Alice", "alice@example.com", "password-one")

	// Past the access TTL, inside the refresh TTL.
	f.now = f.now.Add(2 * time.Hour)

	resp := f.get(t, "/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A replacement access cookie was set and it verifies against the
	// simulated clock.
	var freshAccess string
	for _, c := range resp.Cookies() {
		if c.Name == auth.AccessCookieName {
			freshAccess = c.Value
		}
	}
	resp.Body.Close()
	require.NotEmpty(t, freshAccess, "expected a reissued access cookie")
	_, err := f.codec.Verify(freshAccess)
	require.NoError(t, err)

	// The renewed session keeps working without touching cookies again.
	resp = f.get(t, "/auth/me", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Cookies())
	resp.Body.Close()

	// Past the refresh TTL: the session is over.
	f.now = f.now.Add(200 * time.Hour)

	resp = f.get(t, "/auth/me", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cleared := map[string]bool{}
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 {
			cleared[c.Name] = true
		}
	}
	assert.True(t, cleared[auth.AccessCookieName])
	assert.True(t, cleared[auth.RefreshCookieName])
}

func TestMeSkipsOnLoginPageContext(t *testing.T) {
	f := newE2EFixture(t)

	resp := f.get(t, "/auth/me", map[string]string{"X-Auth-Page": "login"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data handlers.MeResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Data.Skipped)
	assert.Nil(t, body.Data.Subject)
}

func TestRefreshEndpoint(t *testing.T) {
	f := newE2EFixture(t)

	t.Run("without a session refresh is 401 and clears cookies", func(t *testing.T) {
		resp := f.postJSON(t, "/auth/refresh", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("with a live session refresh mints an access cookie", func(t *testing.T) {
		f.signup(t, "Alice", "alice@example.com", "password-one")

		resp := f.postJSON(t, "/auth/refresh", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var found bool
		for _, c := range resp.Cookies() {
			if c.Name == auth.AccessCookieName && c.Value != "" {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("expired access token gets exactly one access cookie", func(t *testing.T) {
		f.now = f.now.Add(2 * time.Hour)

		resp := f.postJSON(t, "/auth/refresh", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// The handler is the only reissue point on this route, so the
		// response never stacks duplicate Set-Cookie headers.
		var accessCookies int
		for _, c := range resp.Cookies() {
			if c.Name == auth.AccessCookieName {
				accessCookies++
				claims, err := f.codec.Verify(c.Value)
				require.NoError(t, err)
				assert.NotEmpty(t, claims.Subject)
			}
		}
		assert.Equal(t, 1, accessCookies)
	})
}

func TestLoginRateLimit(t *testing.T) {
	f := newE2EFixture(t)
	f.signup(t, "Alice", "alice@example.com", "password-one")
	logout := f.postJSON(t, "/auth/logout", nil)
	logout.Body.Close()

	// Burn the five-attempt budget with bad passwords.
	for i := 0; i < 5; i++ {
		resp := f.postJSON(t, "/auth/login", map[string]string{
			"email": "alice@example.com", "password": "wrong",
		})
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := f.postJSON(t, "/auth/login", map[string]string{
		"email": "alice@example.com", "password": "password-one",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestUserEndpointsGating(t *testing.T) {
	f := newE2EFixture(t)

	t.Run("anonymous list is 401", func(t *testing.T) {
		resp := f.get(t, "/api/v1/users", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("standard subject list is 403", func(t *testing.T) {
		f.signup(t, "Alice", "alice@example.com", "password-one")

		resp := f.get(t, "/api/v1/users", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestPageRouteRedirects(t *testing.T) {
	f := newE2EFixture(t)

	t.Run("anonymous on dashboard redirects to login", func(t *testing.T) {
		resp := f.get(t, "/dashboard", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/login?redirect=%2Fdashboard", resp.Header.Get("Location"))
	})

	t.Run("standard subject on admin redirects home", func(t *testing.T) {
		f.signup(t, "Alice", "alice@example.com", "password-one")

		resp := f.get(t, "/admin", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	})
}

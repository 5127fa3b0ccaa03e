package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KhrystynaYelyseyeva/auth-service/auth"
	"github.com/KhrystynaYelyseyeva/auth-service/config"
	"github.com/KhrystynaYelyseyeva/auth-service/models"
	"github.com/KhrystynaYelyseyeva/auth-service/token"
)

const sessionTestSecret = "0123456789abcdef0123456789abcdef"

type sessionFixture struct {
	codec *token.Codec
	mw    *SessionMiddleware
	now   time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	codec, err := token.NewCodec(sessionTestSecret)
	require.NoError(t, err)
	f.codec = codec.WithClock(func() time.Time { return f.now })

	jwtCfg := config.JWTConfig{
		Secret:          sessionTestSecret,
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 168 * time.Hour,
	}
	cookies := auth.NewCookieManager(jwtCfg.AccessTokenTTL, jwtCfg.RefreshTokenTTL, false)
	f.mw = NewSessionMiddleware(auth.NewResolver(f.codec), f.codec, cookies, jwtCfg, zap.NewNop())
	return f
}

func (f *sessionFixture) serve(req *http.Request) (*httptest.ResponseRecorder, auth.Verdict) {
	var seen auth.Verdict
	handler := f.mw.Resolve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetVerdictFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionMiddlewareAnonymousPassThrough(t *testing.T) {
	f := newSessionFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, verdict := f.serve(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, verdict.Anonymous())
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionMiddlewareValidAccessToken(t *testing.T) {
	f := newSessionFixture(t)

	access, err := f.codec.Issue("user-1", models.RoleStandard, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: access})
	rec, verdict := f.serve(req)

	assert.Equal(t, "user-1", verdict.SubjectID)
	// Fast path: no cookies touched.
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionMiddlewareReissuesFromRefresh(t *testing.T) {
	f := newSessionFixture(t)

	expired, err := f.codec.Issue("user-1", models.RoleAdmin, -time.Minute)
	require.NoError(t, err)
	refresh, err := f.codec.Issue("user-1", models.RoleAdmin, 168*time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: expired})
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: refresh})
	rec, verdict := f.serve(req)

	assert.Equal(t, "user-1", verdict.SubjectID)
	assert.Equal(t, models.RoleAdmin, verdict.Role)

	// A fresh access cookie was attached before the handler ran, and it
	// verifies under the same codec.
	fresh := responseCookie(rec, auth.AccessCookieName)
	require.NotNil(t, fresh)
	claims, err := f.codec.Verify(fresh.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	// The refresh cookie is not rewritten.
	assert.Nil(t, responseCookie(rec, auth.RefreshCookieName))
}

// The refresh endpoint writes its own access cookie; the middleware must
// not add a second one for the same response.
func TestSessionMiddlewareSkipsReissueOnRefreshEndpoint(t *testing.T) {
	f := newSessionFixture(t)

	expired, err := f.codec.Issue("user-1", models.RoleStandard, -time.Minute)
	require.NoError(t, err)
	refresh, err := f.codec.Issue("user-1", models.RoleStandard, 168*time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: expired})
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: refresh})
	rec, verdict := f.serve(req)

	// Verdict still resolved for the handler, but no cookie written here.
	assert.Equal(t, "user-1", verdict.SubjectID)
	assert.True(t, verdict.NeedsReissue)
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionMiddlewareClearsDeadSession(t *testing.T) {
	f := newSessionFixture(t)

	expired, err := f.codec.Issue("user-1", models.RoleStandard, -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: expired})
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: "garbage"})
	rec, verdict := f.serve(req)

	// Request still reaches the handler; gating is not this layer's job.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, verdict.Anonymous())

	for _, name := range []string{auth.AccessCookieName, auth.RefreshCookieName} {
		c := responseCookie(rec, name)
		require.NotNil(t, c, name)
		assert.Less(t, c.MaxAge, 0)
	}
}

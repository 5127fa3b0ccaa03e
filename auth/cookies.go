package auth

import (
	"net/http"
	"time"
)

const (
	// AccessCookieName is the cookie carrying the short-lived access token.
	AccessCookieName = "accessToken"
	// RefreshCookieName is the cookie carrying the long-lived refresh token.
	RefreshCookieName = "refreshToken"
)

// CookieManager reads and writes the two session cookies with the security
// attributes fixed by the session contract: HttpOnly, SameSite=Strict,
// path /, max-age equal to each token's lifetime.
type CookieManager struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	secure     bool
}

// NewCookieManager creates a CookieManager with the configured token
// lifetimes. secure controls the Secure attribute (true when serving TLS).
func NewCookieManager(accessTTL, refreshTTL time.Duration, secure bool) *CookieManager {
	return &CookieManager{
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		secure:     secure,
	}
}

// WriteAccess attaches a fresh access-token cookie to the response.
func (m *CookieManager) WriteAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, m.cookie(AccessCookieName, token, int(m.accessTTL.Seconds())))
}

// WriteRefresh attaches a fresh refresh-token cookie to the response.
func (m *CookieManager) WriteRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, m.cookie(RefreshCookieName, token, int(m.refreshTTL.Seconds())))
}

// Write attaches both session cookies to the response.
func (m *CookieManager) Write(w http.ResponseWriter, accessToken, refreshToken string) {
	m.WriteAccess(w, accessToken)
	m.WriteRefresh(w, refreshToken)
}

// Clear removes both session cookies unconditionally. Used on logout and on
// unrecoverable auth failure.
func (m *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(AccessCookieName, "", -1))
	http.SetCookie(w, m.cookie(RefreshCookieName, "", -1))
}

// ReadTokens extracts the access and refresh tokens from the request
// cookies. Absent cookies yield empty strings.
func ReadTokens(r *http.Request) (accessToken, refreshToken string) {
	if c, err := r.Cookie(AccessCookieName); err == nil {
		accessToken = c.Value
	}
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		refreshToken = c.Value
	}
	return accessToken, refreshToken
}

func (m *CookieManager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

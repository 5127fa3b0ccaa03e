package auth

import (
	"github.com/KhrystynaYelyseyeva/auth-service/models"
	"github.com/KhrystynaYelyseyeva/auth-service/token"
)

// Verdict is the per-request outcome of one authentication resolution.
// It is computed once, threaded through the request context, and never
// persisted.
type Verdict struct {
	// SubjectID is the authenticated user ID, empty when anonymous.
	SubjectID string
	// Role is the role claim carried by whichever token authenticated the
	// request. Meaningless when anonymous.
	Role models.Role
	// NeedsReissue is set when authentication succeeded via the refresh
	// token: the caller must mint one new access token and attach it to the
	// outgoing response before completing.
	NeedsReissue bool
	// ClearCookies is set when credentials were presented but none verified:
	// the caller must clear both session cookies.
	ClearCookies bool
}

// Anonymous reports whether no valid credential was found.
func (v Verdict) Anonymous() bool {
	return v.SubjectID == ""
}

// Authenticated reports whether a valid credential was found.
func (v Verdict) Authenticated() bool {
	return v.SubjectID != ""
}

// IsAdmin reports whether the verdict carries the admin role.
func (v Verdict) IsAdmin() bool {
	return v.Authenticated() && v.Role == models.RoleAdmin
}

// TokenVerifier verifies a signed token string and returns its claims.
// *token.Codec is the production implementation.
type TokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// Resolver turns a pair of possibly-absent, possibly-expired tokens into a
// Verdict. It is a pure function of its inputs and the verifier's clock: no
// cookies, no network, no shared state.
type Resolver struct {
	codec TokenVerifier
}

// NewResolver creates a Resolver backed by the given verifier.
func NewResolver(codec TokenVerifier) *Resolver {
	return &Resolver{codec: codec}
}

// Resolve evaluates the session state machine. Transitions in order, first
// match wins:
//
//  1. both tokens absent                      -> anonymous
//  2. access present and verifies             -> its claims (fast path)
//  3. access invalid, refresh verifies        -> refresh claims, reissue
//  4. access invalid, refresh invalid         -> anonymous, clear cookies
//  5. access absent, refresh verifies         -> refresh claims, reissue
//  6. access absent, refresh invalid          -> anonymous, clear cookies
//
// The access token is always tried first and never second-guessed once
// valid; the refresh token is the fallback exactly once, never in a loop.
// At most two Verify calls are made per resolution. Token verification
// failures are absorbed here and never propagate as errors.
func (r *Resolver) Resolve(accessToken, refreshToken string) Verdict {
	if accessToken == "" && refreshToken == "" {
		return Verdict{}
	}

	if accessToken != "" {
		if claims, err := r.codec.Verify(accessToken); err == nil {
			return Verdict{SubjectID: claims.Subject, Role: claims.Role}
		}
	}

	if refreshToken != "" {
		if claims, err := r.codec.Verify(refreshToken); err == nil {
			return Verdict{SubjectID: claims.Subject, Role: claims.Role, NeedsReissue: true}
		}
	}

	// Something was presented but nothing verified.
	return Verdict{ClearCookies: true}
}

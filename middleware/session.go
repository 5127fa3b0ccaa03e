package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/KhrystynaYelyseyeva/auth-service/auth"
	"github.com/KhrystynaYelyseyeva/auth-service/config"
	"github.com/KhrystynaYelyseyeva/auth-service/token"
)

// refreshEndpoint mints its own access cookie; reissuing here too would
// stack a second Set-Cookie for the same name on one response.
const refreshEndpoint = "/auth/refresh"

// SessionMiddleware resolves the session cookies into a Verdict on every
// request and honors the resolver's side-effect contract: when the verdict
// says reissue, exactly one fresh access token is minted and attached to
// the response before the handler runs; when it says clear, both cookies
// are removed. The verdict is stored in the request context either way;
// gating is a separate concern.
type SessionMiddleware struct {
	resolver *auth.Resolver
	codec    *token.Codec
	cookies  *auth.CookieManager
	jwtCfg   config.JWTConfig
	logger   *zap.Logger
}

// NewSessionMiddleware creates a new SessionMiddleware
func NewSessionMiddleware(resolver *auth.Resolver, codec *token.Codec, cookies *auth.CookieManager, jwtCfg config.JWTConfig, logger *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		resolver: resolver,
		codec:    codec,
		cookies:  cookies,
		jwtCfg:   jwtCfg,
		logger:   logger,
	}
}

// Resolve is the middleware entry point
func (m *SessionMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		accessToken, refreshToken := auth.ReadTokens(r)
		verdict := m.resolver.Resolve(accessToken, refreshToken)

		switch {
		case verdict.NeedsReissue && r.URL.Path != refreshEndpoint:
			fresh, err := m.codec.Issue(verdict.SubjectID, verdict.Role, m.jwtCfg.AccessTokenTTL)
			if err != nil {
				// Issue only fails on bad inputs; a verdict from a verified
				// refresh token cannot carry them. Treat as transient and
				// leave the session cookies untouched.
				m.logger.Error("access token reissue failed",
					zap.String("request_id", requestID),
					zap.Error(err))
			} else {
				m.cookies.WriteAccess(w, fresh)
				m.logger.Debug("access token reissued",
					zap.String("request_id", requestID),
					zap.String("sub", verdict.SubjectID))
			}

		case verdict.ClearCookies:
			m.cookies.Clear(w)
			m.logger.Debug("session cookies cleared",
				zap.String("request_id", requestID))
		}

		next.ServeHTTP(w, r.WithContext(WithVerdict(ctx, verdict)))
	})
}

package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/KhrystynaYelyseyeva/auth-service/utils"
)

// APIGate denies API requests by role using the verdict resolved by
// SessionMiddleware. Every denial distinguishes unauthenticated (401, no
// valid credential) from unauthorized (403, valid credential but
// insufficient role) so clients can choose login vs home redirects.
type APIGate struct {
	logger *zap.Logger
}

// NewAPIGate creates a new APIGate
func NewAPIGate(logger *zap.Logger) *APIGate {
	return &APIGate{logger: logger}
}

// RequireAuth rejects anonymous requests with 401
func (g *APIGate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verdict := GetVerdictFromContext(r.Context())
		if verdict.Anonymous() {
			g.logger.Warn("unauthenticated request denied",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and authenticated
// non-admin requests with 403
func (g *APIGate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verdict := GetVerdictFromContext(r.Context())
		if verdict.Anonymous() {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}
		if !verdict.IsAdmin() {
			g.logger.Warn("insufficient role for admin endpoint",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("sub", verdict.SubjectID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteForbidden(w, "Admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

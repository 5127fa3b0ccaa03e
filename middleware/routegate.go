package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// RouteClass classifies a page path for the routing gate
type RouteClass int

const (
	// RoutePublic paths are always reachable
	RoutePublic RouteClass = iota
	// RouteProtected paths require any authenticated subject
	RouteProtected
	// RouteAdmin paths require the admin role
	RouteAdmin
)

const (
	// LoginPath is the login entry point anonymous visitors are sent to
	LoginPath = "/login"
	// HomePath is the default authenticated landing page
	HomePath = "/dashboard"
	// redirectParam preserves the originally requested path across login
	redirectParam = "redirect"
)

// ClassifyRoute maps a request path onto the route classification table:
// public /, /login, /signup; admin /admin and sub-paths; everything else
// that is served as a page requires authentication only.
func ClassifyRoute(path string) RouteClass {
	switch path {
	case "/", LoginPath, "/signup":
		return RoutePublic
	}
	if path == "/admin" || strings.HasPrefix(path, "/admin/") {
		return RouteAdmin
	}
	return RouteProtected
}

// RouteGate enforces page-level authorization. Anonymous subjects on a
// protected page are redirected to the login entry point with the original
// path preserved for post-login return; authenticated non-admins on an
// admin page are redirected to the landing page (they are authenticated,
// just insufficiently privileged, so login would be the wrong destination).
type RouteGate struct {
	logger *zap.Logger
}

// NewRouteGate creates a new RouteGate
func NewRouteGate(logger *zap.Logger) *RouteGate {
	return &RouteGate{logger: logger}
}

// Gate is the middleware entry point
func (g *RouteGate) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verdict := GetVerdictFromContext(r.Context())

		switch ClassifyRoute(r.URL.Path) {
		case RoutePublic:
			// Always continue.

		case RouteProtected:
			if verdict.Anonymous() {
				g.redirectToLogin(w, r)
				return
			}

		case RouteAdmin:
			if verdict.Anonymous() {
				g.redirectToLogin(w, r)
				return
			}
			if !verdict.IsAdmin() {
				g.logger.Debug("non-admin redirected from admin page",
					zap.String("sub", verdict.SubjectID),
					zap.String("path", r.URL.Path))
				http.Redirect(w, r, HomePath, http.StatusFound)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (g *RouteGate) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := LoginPath + "?" + redirectParam + "=" + url.QueryEscape(r.URL.Path)
	g.logger.Debug("anonymous visitor redirected to login",
		zap.String("path", r.URL.Path))
	http.Redirect(w, r, target, http.StatusFound)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KhrystynaYelyseyeva/auth-service/auth"
	"github.com/KhrystynaYelyseyeva/auth-service/models"
)

func TestClassifyRoute(t *testing.T) {
	tests := []struct {
		path string
		want RouteClass
	}{
		{"/", RoutePublic},
		{"/login", RoutePublic},
		{"/signup", RoutePublic},
		{"/admin", RouteAdmin},
		{"/admin/", RouteAdmin},
		{"/admin/users", RouteAdmin},
		{"/admin/users/42", RouteAdmin},
		{"/administrator", RouteProtected}, // prefix match is on path segments
		{"/dashboard", RouteProtected},
		{"/profile", RouteProtected},
		{"/settings", RouteProtected},
		{"/settings/security", RouteProtected},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRoute(tt.path))
		})
	}
}

func serveRouted(path string, verdict auth.Verdict) *httptest.ResponseRecorder {
	gate := NewRouteGate(zap.NewNop())
	handler := gate.Gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(WithVerdict(req.Context(), verdict))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouteGate(t *testing.T) {
	anonymous := auth.Verdict{}
	standard := auth.Verdict{SubjectID: "u1", Role: models.RoleStandard}
	admin := auth.Verdict{SubjectID: "a1", Role: models.RoleAdmin}

	t.Run("public pages always pass", func(t *testing.T) {
		for _, path := range []string{"/", "/login", "/signup"} {
			for _, v := range []auth.Verdict{anonymous, standard, admin} {
				rec := serveRouted(path, v)
				assert.Equal(t, http.StatusOK, rec.Code, path)
			}
		}
	})

	t.Run("anonymous on protected page redirects to login with return path", func(t *testing.T) {
		rec := serveRouted("/dashboard", anonymous)
		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, LoginPath, loc.Path)
		assert.Equal(t, "/dashboard", loc.Query().Get("redirect"))
	})

	t.Run("anonymous on admin page redirects to login", func(t *testing.T) {
		rec := serveRouted("/admin/users", anonymous)
		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, LoginPath, loc.Path)
		assert.Equal(t, "/admin/users", loc.Query().Get("redirect"))
	})

	t.Run("standard subject passes protected pages", func(t *testing.T) {
		for _, path := range []string{"/dashboard", "/profile", "/settings"} {
			rec := serveRouted(path, standard)
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})

	t.Run("standard subject on admin page redirects home not login", func(t *testing.T) {
		rec := serveRouted("/admin", standard)
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, HomePath, rec.Header().Get("Location"))
	})

	t.Run("admin passes everywhere", func(t *testing.T) {
		for _, path := range []string{"/dashboard", "/admin", "/admin/users"} {
			rec := serveRouted(path, admin)
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})
}

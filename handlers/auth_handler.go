package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/KhrystynaYelyseyeva/auth-service/app"
	"github.com/KhrystynaYelyseyeva/auth-service/auth"
	"github.com/KhrystynaYelyseyeva/auth-service/middleware"
	"github.com/KhrystynaYelyseyeva/auth-service/models"
	"github.com/KhrystynaYelyseyeva/auth-service/observability"
	"github.com/KhrystynaYelyseyeva/auth-service/services"
	"github.com/KhrystynaYelyseyeva/auth-service/utils"
)

// PageContextHeader marks requests issued from the login or signup pages.
// GET /auth/me treats an anonymous result from those pages as "skipped"
// rather than 401, which would otherwise bounce the visitor back to login
// in a loop.
const PageContextHeader = "X-Auth-Page"

// LoginRequest is the request body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest is the request body for POST /auth/signup
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// MeResponse is the response body for GET /auth/me
type MeResponse struct {
	Subject *models.PublicUser `json:"subject,omitempty"`
	Skipped bool               `json:"skipped,omitempty"`
}

// LoginHandler handles POST /auth/login
func LoginHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		key := strings.ToLower(req.Email)
		if !deps.LoginLimiter.Allow(key) {
			HandleServiceError(w, services.ErrTooManyAttempts, deps.Logger)
			return
		}

		subject, err := deps.UserService.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			observability.RecordLogin("failure")
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := issueSession(w, deps, subject); err != nil {
			HandleServiceError(w, services.WrapInternal("failed to issue session", err), deps.Logger)
			return
		}

		observability.RecordLogin("success")
		deps.Logger.Info("login succeeded",
			zap.String("sub", subject.ID.String()))
		_ = utils.WriteOK(w, subject)
	}
}

// SignupHandler handles POST /auth/signup
func SignupHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := decodeJSON(r, &req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		subject, err := deps.UserService.Register(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			// Duplicate email surfaces as 400: signup forms present it as a
			// field error, not a server conflict.
			if services.IsConflictError(err) {
				_ = utils.WriteBadRequest(w, err.Error(), map[string]interface{}{
					"email": "already registered",
				})
				return
			}
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := issueSession(w, deps, subject); err != nil {
			HandleServiceError(w, services.WrapInternal("failed to issue session", err), deps.Logger)
			return
		}

		deps.Logger.Info("signup succeeded",
			zap.String("sub", subject.ID.String()))
		_ = utils.WriteOK(w, subject)
	}
}

// LogoutHandler handles POST /auth/logout. Clears both cookies unconditionally.
func LogoutHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Cookies.Clear(w)
		_ = utils.WriteOK(w, map[string]string{"message": "logged out"})
	}
}

// RefreshHandler handles POST /auth/refresh: mints a new access-token
// cookie from a valid refresh token, or clears the session entirely.
func RefreshHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, refreshToken := auth.ReadTokens(r)

		claims, err := deps.Codec.Verify(refreshToken)
		if err != nil {
			observability.RecordRefresh("failure")
			deps.Cookies.Clear(w)
			_ = utils.WriteUnauthorized(w, "Invalid or expired refresh token")
			return
		}

		fresh, err := deps.Codec.Issue(claims.Subject, claims.Role, deps.Config.JWT.AccessTokenTTL)
		if err != nil {
			observability.RecordRefresh("failure")
			HandleServiceError(w, services.WrapInternal("failed to issue access token", err), deps.Logger)
			return
		}

		deps.Cookies.WriteAccess(w, fresh)
		observability.RecordRefresh("success")
		_ = utils.WriteOK(w, map[string]string{"message": "token refreshed"})
	}
}

// MeHandler handles GET /auth/me. The session middleware has already
// resolved the verdict (reissuing the access cookie when needed), so this
// endpoint only reads it.
func MeHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verdict := middleware.GetVerdictFromContext(r.Context())

		if verdict.Anonymous() {
			if page := r.Header.Get(PageContextHeader); page == "login" || page == "signup" {
				_ = utils.WriteOK(w, MeResponse{Skipped: true})
				return
			}
			_ = utils.WriteUnauthorized(w, "Not authenticated")
			return
		}

		subject, err := deps.UserService.GetSelf(r.Context(), verdict)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		_ = utils.WriteOK(w, MeResponse{Subject: subject})
	}
}

// issueSession mints both tokens for the subject and attaches the session cookies.
func issueSession(w http.ResponseWriter, deps *app.Dependencies, subject *models.PublicUser) error {
	access, err := deps.Codec.Issue(subject.ID.String(), subject.Role, deps.Config.JWT.AccessTokenTTL)
	if err != nil {
		return err
	}
	refresh, err := deps.Codec.Issue(subject.ID.String(), subject.Role, deps.Config.JWT.RefreshTokenTTL)
	if err != nil {
		return err
	}
	deps.Cookies.Write(w, access, refresh)
	return nil
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/KhrystynaYelyseyeva/auth-service/app"
	"github.com/KhrystynaYelyseyeva/auth-service/middleware"
	"github.com/KhrystynaYelyseyeva/auth-service/models"
	"github.com/KhrystynaYelyseyeva/auth-service/services"
	"github.com/KhrystynaYelyseyeva/auth-service/utils"
)

// UpdateUserRequest is the request body for PUT /api/v1/users/{id}.
// Absent fields are left unchanged. Role changes are admin-only, enforced
// by the service layer.
type UpdateUserRequest struct {
	Name  *string      `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Email *string      `json:"email,omitempty" validate:"omitempty,email"`
	Role  *models.Role `json:"role,omitempty"`
}

// ChangePasswordRequest is the request body for PUT /api/v1/users/{id}/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// ListUsersHandler handles GET /api/v1/users (admin only)
func ListUsersHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verdict := middleware.GetVerdictFromContext(r.Context())

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		users, err := deps.UserService.List(r.Context(), verdict, limit, offset)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		_ = utils.WriteOK(w, users)
	}
}

// GetUserHandler handles GET /api/v1/users/{id} (self or admin)
func GetUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verdict := middleware.GetVerdictFromContext(r.Context())

		id, err := parseUserID(r)
		if err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		user, err := deps.UserService.Get(r.Context(), verdict, id)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		_ = utils.WriteOK(w, user)
	}
}

// UpdateUserHandler handles PUT /api/v1/users/{id} (self or admin;
// role field admin-only)
func UpdateUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verdict := middleware.GetVerdictFromContext(r.Context())

		id, err := parseUserID(r)
		if err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		var req UpdateUserRequest
		if err := decodeJSON(r, &req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		user, err := deps.UserService.Update(r.Context(), verdict, id, services.UpdateUserInput{
			Name:  req.Name,
			Email: req.Email,
			Role:  req.Role,
		})
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		_ = utils.WriteOK(w, user)
	}
}

// ChangePasswordHandler handles PUT /api/v1/users/{id}/password
func ChangePasswordHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verdict := middleware.GetVerdictFromContext(r.Context())

		id, err := parseUserID(r)
		if err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		var req ChangePasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		if err := deps.UserService.ChangePassword(r.Context(), verdict, id, req.CurrentPassword, req.NewPassword); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		_ = utils.WriteOK(w, map[string]string{"message": "password changed"})
	}
}

// DeleteUserHandler handles DELETE /api/v1/users/{id} (self or admin)
func DeleteUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verdict := middleware.GetVerdictFromContext(r.Context())

		id, err := parseUserID(r)
		if err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		if err := deps.UserService.Delete(r.Context(), verdict, id); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		utils.WriteNoContent(w)
	}
}

// parseUserID extracts and parses the {id} URL parameter
func parseUserID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KhrystynaYelyseyeva/auth-service/auth"
	"github.com/KhrystynaYelyseyeva/auth-service/models"
	"github.com/KhrystynaYelyseyeva/auth-service/repositories"
)

const defaultListLimit = 50

// UserService holds user operations together with their authorization
// rules. Every operation receives the per-request Verdict explicitly; there
// is no ambient global state, so the service is safe under concurrent
// request handling.
type UserService struct {
	users  repositories.UserRepository
	txMgr  repositories.TransactionManager
	logger *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(users repositories.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// WithTransactionManager enables transactional writes. Stores without
// transaction support (the in-memory one) simply leave it unset.
func (s *UserService) WithTransactionManager(txMgr repositories.TransactionManager) *UserService {
	s.txMgr = txMgr
	return s
}

// inTransaction runs fn inside a transaction when a manager is configured,
// directly otherwise.
func (s *UserService) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txMgr == nil {
		return fn(ctx)
	}
	return WithTransaction(ctx, s.txMgr, func(txCtx context.Context, _ repositories.Transaction) error {
		return fn(txCtx)
	})
}

// UpdateUserInput carries the mutable user fields. Nil means unchanged.
type UpdateUserInput struct {
	Name  *string
	Email *string
	Role  *models.Role
}

// Register creates a new user with the standard role. Duplicate emails are
// reported as a conflict.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.PublicUser, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(name, email, hash, models.RoleStandard)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, WrapInternal("failed to create user", err)
	}

	s.logger.Info("user registered",
		zap.String("id", user.ID.String()),
		zap.String("email", user.Email))

	pub := user.Public()
	return &pub, nil
}

// Authenticate verifies an email/password pair and returns the matching
// user. Unknown email and wrong password are indistinguishable to the
// caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.PublicUser, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Still burn a hash comparison so response timing does not
			// reveal whether the email exists.
			auth.CheckPassword(password, "")
			return nil, ErrInvalidCredentials
		}
		return nil, WrapInternal("failed to look up user", err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	pub := user.Public()
	return &pub, nil
}

// Get retrieves a user record. Allowed for the subject itself or an admin.
func (s *UserService) Get(ctx context.Context, verdict auth.Verdict, id uuid.UUID) (*models.PublicUser, error) {
	if err := requireSelfOrAdmin(verdict, id); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, WrapInternal("failed to get user", err)
	}

	pub := user.Public()
	return &pub, nil
}

// GetSelf retrieves the authenticated subject's own record.
func (s *UserService) GetSelf(ctx context.Context, verdict auth.Verdict) (*models.PublicUser, error) {
	if verdict.Anonymous() {
		return nil, ErrUnauthenticated
	}
	id, err := uuid.Parse(verdict.SubjectID)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return s.Get(ctx, verdict, id)
}

// List retrieves all users. Admin only.
func (s *UserService) List(ctx context.Context, verdict auth.Verdict, limit, offset int) ([]models.PublicUser, error) {
	if err := requireAdmin(verdict); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, WrapInternal("failed to list users", err)
	}

	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// Update mutates a user record. Allowed for the subject itself or an admin,
// with one extra rule: only an admin may change the role field, including
// on their own record.
func (s *UserService) Update(ctx context.Context, verdict auth.Verdict, id uuid.UUID, input UpdateUserInput) (*models.PublicUser, error) {
	if err := requireSelfOrAdmin(verdict, id); err != nil {
		return nil, err
	}
	if input.Role != nil && !verdict.IsAdmin() {
		return nil, ErrRoleChangeForbidden
	}
	if input.Role != nil && !input.Role.Valid() {
		return nil, ErrInvalidRole
	}

	// Read-modify-write runs in one transaction so a concurrent update
	// cannot interleave between the read and the write.
	var user *models.User
	err := s.inTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrUserNotFound
			}
			return WrapInternal("failed to get user", err)
		}

		if input.Name != nil {
			user.Name = *input.Name
		}
		if input.Email != nil {
			user.Email = *input.Email
		}
		if input.Role != nil {
			user.Role = *input.Role
		}

		if err := s.users.Update(ctx, user); err != nil {
			switch {
			case errors.Is(err, repositories.ErrDuplicateEmail):
				return ErrDuplicateEmail
			case errors.Is(err, repositories.ErrNotFound):
				return ErrUserNotFound
			default:
				return WrapInternal("failed to update user", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated",
		zap.String("id", id.String()),
		zap.String("actor", verdict.SubjectID))

	pub := user.Public()
	return &pub, nil
}

// ChangePassword rotates a user's stored password hash. The subject must
// present its current password; an admin may rotate without it.
func (s *UserService) ChangePassword(ctx context.Context, verdict auth.Verdict, id uuid.UUID, current, newPassword string) error {
	if err := requireSelfOrAdmin(verdict, id); err != nil {
		return err
	}

	if err := s.inTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrUserNotFound
			}
			return WrapInternal("failed to get user", err)
		}

		if !verdict.IsAdmin() && !auth.CheckPassword(current, user.PasswordHash) {
			return ErrInvalidCredentials
		}

		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			return WrapInternal("failed to hash password", err)
		}

		if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrUserNotFound
			}
			return WrapInternal("failed to update password", err)
		}
		return nil
	}); err != nil {
		return err
	}

	s.logger.Info("password changed", zap.String("id", id.String()))
	return nil
}

// Delete removes a user record. Allowed for the subject itself or an admin.
// There is no self-protection rule: an admin deleting others, or a subject
// deleting its own account, are both plain self-or-admin decisions.
func (s *UserService) Delete(ctx context.Context, verdict auth.Verdict, id uuid.UUID) error {
	if err := requireSelfOrAdmin(verdict, id); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return WrapInternal("failed to delete user", err)
	}

	s.logger.Info("user deleted",
		zap.String("id", id.String()),
		zap.String("actor", verdict.SubjectID))
	return nil
}

// Authorization predicates. Denials distinguish unauthenticated (caller
// should redirect to login) from forbidden (caller should redirect home).

func requireAuthenticated(v auth.Verdict) error {
	if v.Anonymous() {
		return ErrUnauthenticated
	}
	return nil
}

func requireAdmin(v auth.Verdict) error {
	if err := requireAuthenticated(v); err != nil {
		return err
	}
	if !v.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func requireSelfOrAdmin(v auth.Verdict, target uuid.UUID) error {
	if err := requireAuthenticated(v); err != nil {
		return err
	}
	if v.SubjectID == target.String() || v.IsAdmin() {
		return nil
	}
	return ErrForbidden
}

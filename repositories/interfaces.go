package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/KhrystynaYelyseyeva/auth-service/models"
)

var (
	// ErrNotFound is returned when no record matches the lookup key
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when a unique email constraint is violated
	ErrDuplicateEmail = errors.New("email already registered")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// txContextKey carries an open transaction through a request context so
// repository calls inside a transactional block pick it up transparently.
type txContextKey struct{}

// ContextWithTransaction returns a context carrying the transaction.
func ContextWithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TransactionFromContext retrieves the transaction from the context, if any.
func TransactionFromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(txContextKey{}).(Transaction)
	return tx, ok
}

// UserRepository is the credential store: user records keyed by id and by
// unique email. It is the only layer allowed to see PasswordHash.
type UserRepository interface {
	// Create inserts a new user. Returns ErrDuplicateEmail when the email
	// is already registered.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email. Returns ErrNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users ordered by creation time, newest first.
	List(ctx context.Context, limit, offset int) ([]*models.User, error)

	// Update updates name, email and role. Returns ErrNotFound when absent,
	// ErrDuplicateEmail on a unique email violation.
	Update(ctx context.Context, user *models.User) error

	// UpdatePassword rotates the stored password hash.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// Delete removes a user. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// Repositories bundles all repository instances
type Repositories struct {
	Users UserRepository
}

package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/KhrystynaYelyseyeva/auth-service/auth"
	"github.com/KhrystynaYelyseyeva/auth-service/config"
	"github.com/KhrystynaYelyseyeva/auth-service/middleware"
	"github.com/KhrystynaYelyseyeva/auth-service/repositories"
	"github.com/KhrystynaYelyseyeva/auth-service/repositories/postgres"
	"github.com/KhrystynaYelyseyeva/auth-service/services"
	"github.com/KhrystynaYelyseyeva/auth-service/services/ratelimit"
	"github.com/KhrystynaYelyseyeva/auth-service/token"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	TxManager repositories.TransactionManager

	// Auth core
	Codec    *token.Codec
	Resolver *auth.Resolver
	Cookies  *auth.CookieManager

	// Services
	UserService  *services.UserService
	LoginLimiter *ratelimit.Service

	// Middleware
	SessionMW *middleware.SessionMiddleware
	APIGate   *middleware.APIGate
	RouteGate *middleware.RouteGate
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize PostgreSQL
	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize the auth core and services
	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection, schema, and repositories
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	// Test the connection
	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos := factory.NewRepositories()
	d.Users = repos.Users
	d.TxManager = factory.GetTransactionManager()

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initAuth wires the token codec, resolver, cookie manager, services, and
// the auth middleware stack
func (d *Dependencies) initAuth(cfg *config.Config) error {
	codec, err := token.NewCodec(cfg.JWT.Secret)
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}

	d.Codec = codec
	d.Resolver = auth.NewResolver(codec)
	d.Cookies = auth.NewCookieManager(cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, cfg.SecureCookies())

	d.UserService = services.NewUserService(d.Users, d.Logger).WithTransactionManager(d.TxManager)
	d.LoginLimiter = ratelimit.NewService(cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow, d.Logger)

	d.SessionMW = middleware.NewSessionMiddleware(d.Resolver, d.Codec, d.Cookies, cfg.JWT, d.Logger)
	d.APIGate = middleware.NewAPIGate(d.Logger)
	d.RouteGate = middleware.NewRouteGate(d.Logger)

	d.Logger.Info("auth core initialized",
		zap.Duration("access_token_ttl", cfg.JWT.AccessTokenTTL),
		zap.Duration("refresh_token_ttl", cfg.JWT.RefreshTokenTTL))

	return nil
}

// Close releases all resources held by the dependencies
func (d *Dependencies) Close() error {
	if d.RepoFactory != nil {
		return d.RepoFactory.Close()
	}
	return nil
}

package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/KhrystynaYelyseyeva/auth-service/app"
	"github.com/KhrystynaYelyseyeva/auth-service/handlers"
	"github.com/KhrystynaYelyseyeva/auth-service/observability"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware. Credentials must be allowed for cookie sessions.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", handlers.PageContextHeader},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(observability.Instrument)

	// Session resolution runs on every request: cookies in, verdict out.
	// Gating is layered separately below.
	r.Use(deps.SessionMW.Resolve)

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))
	r.Method(http.MethodGet, "/metrics", observability.Handler())

	// Auth endpoints
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", handlers.LoginHandler(deps))
		r.Post("/signup", handlers.SignupHandler(deps))
		r.Post("/logout", handlers.LogoutHandler(deps))
		r.Post("/refresh", handlers.RefreshHandler(deps))
		r.Get("/me", handlers.MeHandler(deps))
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Use(deps.APIGate.RequireAuth)
			r.With(deps.APIGate.RequireAdmin).Get("/", handlers.ListUsersHandler(deps))
			r.Get("/{id}", handlers.GetUserHandler(deps))
			r.Put("/{id}", handlers.UpdateUserHandler(deps))
			r.Put("/{id}/password", handlers.ChangePasswordHandler(deps))
			r.Delete("/{id}", handlers.DeleteUserHandler(deps))
		})
	})

	// Page routes, gated by route class: public pages pass through,
	// protected pages redirect anonymous visitors to /login, admin pages
	// additionally bounce non-admins to /dashboard.
	r.Group(func(r chi.Router) {
		r.Use(deps.RouteGate.Gate)
		r.Get("/", handlers.PageHandler(deps, "Home"))
		r.Get("/login", handlers.PageHandler(deps, "Log in"))
		r.Get("/signup", handlers.PageHandler(deps, "Sign up"))
		r.Get("/dashboard", handlers.PageHandler(deps, "Dashboard"))
		r.Get("/profile", handlers.PageHandler(deps, "Profile"))
		r.Get("/settings", handlers.PageHandler(deps, "Settings"))
		r.Get("/admin", handlers.PageHandler(deps, "Admin"))
		r.Get("/admin/*", handlers.PageHandler(deps, "Admin"))
	})

	return r
}

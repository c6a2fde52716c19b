package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dvrmln/taskdeck-be/internal/api/handlers"
	"github.com/dvrmln/taskdeck-be/internal/auth"
	"github.com/dvrmln/taskdeck-be/internal/config"
	"github.com/dvrmln/taskdeck-be/internal/middleware"
	"github.com/dvrmln/taskdeck-be/internal/services"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg *config.Config, tokens *auth.TokenService, userService services.UserServiceProvider, taskService services.TaskServiceProvider) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokens)
	taskHandler := handlers.NewTaskHandler(taskService)
	healthHandler := handlers.NewHealthHandler()

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		// Credential endpoints are rate limited per IP
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(cfg.AuthRateRPS, cfg.AuthRateBurst)).Group(func(r chi.Router) {
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})
			r.With(tokens.Middleware()).Get("/me", authHandler.Me)
		})

		// Task endpoints require a valid bearer token
		r.Route("/tasks", func(r chi.Router) {
			r.Use(tokens.Middleware())
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)
			r.Put("/", taskHandler.Update)
			r.Delete("/", taskHandler.Delete)
			r.Get("/stats", taskHandler.Stats)
		})
	})

	return r
}

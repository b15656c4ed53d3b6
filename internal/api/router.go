// Package api wires the HTTP surface: routing, request/response models,
// middleware and error mapping.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/taskloop/taskloop/internal/api/middleware"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	AuthHandler    *AuthHandler
	TaskHandler    *TaskHandler
	AgentHandler   *AgentHandler
	AuthMiddleware *middleware.AuthMiddleware
	AllowedOrigins []string
}

// NewRouter builds the chi router: public auth routes, JWT-protected task
// and agent routes, and a health check.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	allowedOrigins := deps.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.AuthHandler.Register)
			r.Post("/login", deps.AuthHandler.Login)
			r.Post("/recover", deps.AuthHandler.Recover)
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.Authenticate)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", deps.TaskHandler.Create)
				r.Get("/", deps.TaskHandler.List)
				r.Get("/{id}", deps.TaskHandler.Get)
				r.Patch("/{id}", deps.TaskHandler.Update)
				r.Post("/{id}/complete", deps.TaskHandler.Complete)
				r.Delete("/{id}", deps.TaskHandler.Delete)
			})

			r.Route("/agent", func(r chi.Router) {
				r.Post("/batch", deps.AgentHandler.Batch)
				r.Post("/chat", deps.AgentHandler.Chat)
			})
		})
	})

	return r
}

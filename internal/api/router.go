package api

import (
	"net/http"

	"github.com/example/meetapp/internal/guard"
	"github.com/example/meetapp/internal/ledger"
	"github.com/example/meetapp/internal/queue"
	"github.com/example/meetapp/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(pgStore *store.PostgresStore, g *guard.Guard, l *ledger.Ledger, q *queue.Queue, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	userHandler := NewUserHandler(pgStore)
	sessionHandler := NewSessionHandler(pgStore, jwtSecret)
	meetupHandler := NewMeetupHandler(pgStore, g, l)
	subHandler := NewSubscriptionHandler(l)
	dlqHandler := NewDeadLetterHandler(pgStore)
	opsHandler := NewOpsHandler(q, pgStore)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())

		// Public routes
		r.Post("/users", userHandler.Register)
		r.Post("/sessions", sessionHandler.Create)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(Auth(jwtSecret))

			r.Put("/users", userHandler.Update)

			r.Route("/meetups", func(r chi.Router) {
				r.Post("/", meetupHandler.Create)
				r.Get("/", meetupHandler.List)
				r.Get("/{id}", meetupHandler.Get)
				r.Put("/{id}", meetupHandler.Update)
				r.Delete("/{id}", meetupHandler.Delete)

				r.Post("/{id}/subscriptions", subHandler.Create)
				r.Delete("/{id}/subscriptions", subHandler.Delete)
			})

			r.Get("/organizing", meetupHandler.Organizing)
			r.Get("/subscriptions", subHandler.List)
		})

		// Operational routes
		r.Route("/dead-letters", func(r chi.Router) {
			r.Get("/", dlqHandler.List)
			r.Get("/{id}", dlqHandler.Get)
			r.Post("/{id}/resolve", dlqHandler.Resolve)
		})
		r.Get("/metrics", opsHandler.Metrics)
	})

	return r
}

package handlers

import (
	"net/http"
	"time"

	"bucket-list-backend/internal/graph"
	"bucket-list-backend/internal/metrics"
	"bucket-list-backend/internal/middleware"
	"bucket-list-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Dependencies are everything the router serves
type Dependencies struct {
	Executor         *graph.Executor
	UserService      *services.UserService
	MediaService     *services.MediaService
	HealthMonitor    *services.HealthMonitor
	Metrics          *metrics.Metrics
	Playground       bool
	SubscriptionOpts SubscriptionOptions
	RequestTimeout   time.Duration
}

// NewRouter wires every route onto a chi router
func NewRouter(deps Dependencies) http.Handler {
	subscriptionHandler := NewSubscriptionHandler(deps.Executor, deps.SubscriptionOpts)
	graphqlHandler := NewGraphQLHandler(deps.Executor, subscriptionHandler, deps.Playground, "/graphql")
	authHandler := NewAuthHandler(deps.UserService)
	userHandler := NewUserHandler(deps.UserService)
	uploadHandler := NewUploadHandler(deps.MediaService)
	healthHandler := NewHealthHandler(deps.HealthMonitor)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS)
	r.Use(middleware.Instrument(deps.Metrics))

	r.Get("/healthz", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Get("/graphql", graphqlHandler.Get)
	r.Get("/graphql/ws", subscriptionHandler.ServeHTTP)
	r.With(timeout(deps.RequestTimeout)).Post("/graphql", graphqlHandler.Query)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(timeout(deps.RequestTimeout))

		r.Post("/auth/token", authHandler.Token)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(deps.UserService))

			r.Put("/users/me/push-token", userHandler.UpdatePushToken)
			r.Post("/uploads", uploadHandler.CreateUpload)
		})
	})

	return r
}

func timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return chiMiddleware.Timeout(d)
}

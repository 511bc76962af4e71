package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"agenda-backend/application/notify"
	"agenda-backend/application/ports"
	"agenda-backend/application/schedule"
	"agenda-backend/infrastructure/config"
	"agenda-backend/interfaces/http/rest/handlers"
	"agenda-backend/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg        *config.Config
	dispatcher *notify.Dispatcher
	scheduler  *schedule.Scheduler
	publisher  ports.Publisher
	wsHandler  http.Handler
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	dispatcher *notify.Dispatcher,
	scheduler *schedule.Scheduler,
	publisher ports.Publisher,
	wsHandler http.Handler,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:        cfg,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		publisher:  publisher,
		wsHandler:  wsHandler,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:4200"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health checks
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	identity := middleware.IdentityConfig{
		JWTSecret: rt.cfg.JWTSecret,
		JWTIssuer: rt.cfg.JWTIssuer,
	}

	// Change events arrive service-to-service; the gateway never routes
	// browser traffic here, so no identity is required.
	eventHandler := handlers.NewEventHandler(rt.publisher, rt.logger)
	router.Post("/api/events", eventHandler.Ingest)

	router.Route("/api/notifications", func(r chi.Router) {
		notificationHandler := handlers.NewNotificationHandler(rt.dispatcher, rt.scheduler, rt.logger)
		r.Get("/health", notificationHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(identity, rt.logger))
			r.Post("/test", notificationHandler.Test)
			r.Post("/test-reminder", notificationHandler.TestReminder)
		})
	})

	// WebSocket endpoint for realtime push
	router.Group(func(r chi.Router) {
		r.Use(middleware.Identity(identity, rt.logger))
		r.Get("/ws", rt.wsHandler.ServeHTTP)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

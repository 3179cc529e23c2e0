// Package rest wires the HTTP surface: middleware, health and metrics
// endpoints, and the configuration-driven answer routes.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"agents-backend/application/usecases"
	"agents-backend/infrastructure/di"
	"agents-backend/interfaces/http/rest/handlers"
	"agents-backend/interfaces/http/rest/middleware"
	"agents-backend/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	container      *di.AppContainer
	metrics        *observability.Metrics
	metricsHandler http.Handler
	logger         *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	container *di.AppContainer,
	metrics *observability.Metrics,
	metricsHandler http.Handler,
	logger *zap.Logger,
) *Router {
	return &Router{
		container:      container,
		metrics:        metrics,
		metricsHandler: metricsHandler,
		logger:         logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(rt.logger))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	if rt.metricsHandler != nil {
		router.Handle("/metrics", rt.metricsHandler)
	}

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		// Answer endpoints: one route family per answer-capable use case,
		// dispatched by name so new manifest entries need no code change.
		answerHandler := handlers.NewAnswerHandler(rt.container.UseCases, rt.metrics, rt.logger)
		r.Route("/answers/{useCase}", func(r chi.Router) {
			r.Post("/", answerHandler.Invoke)
			r.Post("/stream", answerHandler.Stream)
		})

		// Configuration introspection
		metaHandler := handlers.NewMetaHandler(rt.container.Settings, rt.container.Agents, rt.logger)
		r.Route("/meta", func(r chi.Router) {
			r.Get("/components", metaHandler.ListComponents)
			r.Get("/agents", metaHandler.ListAgents)
			r.Get("/use-cases", metaHandler.ListUseCases)
		})

		// Conversation history, when the manifest configures it
		if history := rt.historyUseCase(); history != nil {
			historyHandler := handlers.NewHistoryHandler(history, rt.logger)
			r.Route("/history", func(r chi.Router) {
				r.Get("/sessions", historyHandler.ListSessions)
				r.Get("/sessions/{sessionID}", historyHandler.GetMessages)
			})
		}
	})

	return router
}

// historyUseCase finds a configured conversation-history use case, if any.
func (rt *Router) historyUseCase() *usecases.ConversationHistoryUseCase {
	for name := range rt.container.Settings.UseCases {
		useCase, err := rt.container.UseCases.Get(name)
		if err != nil {
			continue
		}
		if history, ok := useCase.(*usecases.ConversationHistoryUseCase); ok {
			return history
		}
	}
	return nil
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready once the container finished building;
// the router only exists after that point.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

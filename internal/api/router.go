package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterDeps are the collaborators behind the HTTP API.
type RouterDeps struct {
	Runs     RunStore
	Stats    RunStats
	Queue    Queue
	Configs  ConfigSource
	Breakers BreakerStates
	Hub      WebSocketHub
	Health   map[string]Pinger

	// Metrics serves the Prometheus exposition. Nil disables /metrics.
	Metrics http.Handler
}

// WebSocketHub accepts live run event subscribers.
type WebSocketHub interface {
	ClientCounter
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// CORS for dashboard
	r.Use(corsMiddleware)

	runHandler := NewRunHandler(deps.Runs, deps.Queue, deps.Configs)
	reportHandler := NewReportHandler(deps.Runs)
	configHandler := NewConfigHandler(deps.Configs)
	dashHandler := NewDashboardHandler(deps.Runs, deps.Stats, deps.Queue, deps.Breakers, deps.Hub)

	r.Get("/ws", deps.Hub.HandleWebSocket)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler(deps.Health))

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", runHandler.Create)
			r.Get("/", runHandler.List)
			r.Get("/{id}", runHandler.Get)
			r.Get("/{id}/countries/{country}", reportHandler.Get)
			r.Get("/{id}/countries/{country}/csv", reportHandler.CSV)
		})

		r.Get("/config", configHandler.Get)
		r.Post("/config/reload", configHandler.Reload)

		r.Get("/metrics", dashHandler.Metrics)
		r.Get("/sources-health", dashHandler.SourceHealth)
	})

	return r
}

// corsMiddleware adds CORS headers for dashboard development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package api

import (
	"context"
	"net/http"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/engine"
	"github.com/Priya8975/broadcast-review/internal/store"
)

// BreakerStates reports the circuit of each upstream source.
type BreakerStates interface {
	States(ctx context.Context, sources []string) []engine.BreakerState
}

// RunStats aggregates stored run outcomes.
type RunStats interface {
	GetRunMetrics(ctx context.Context) (*store.RunMetrics, error)
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

type DashboardHandler struct {
	store    RunStore
	stats    RunStats
	queue    Queue
	breakers BreakerStates
	hub      ClientCounter
}

func NewDashboardHandler(s RunStore, stats RunStats, q Queue, b BreakerStates, hub ClientCounter) *DashboardHandler {
	return &DashboardHandler{store: s, stats: stats, queue: q, breakers: b, hub: hub}
}

type metricsResponse struct {
	store.RunMetrics
	QueueDepth       int64                 `json:"queue_depth"`
	WebSocketClients int                   `json:"websocket_clients"`
	Sources          []engine.BreakerState `json:"sources"`
	LatestRun        *domain.Run           `json:"latest_run,omitempty"`
}

// Metrics returns aggregated system state for the dashboard.
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetRunMetrics(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get metrics")
		return
	}

	queueDepth, err := h.queue.QueueDepth(r.Context())
	if err != nil {
		queueDepth = 0
	}

	resp := metricsResponse{
		RunMetrics:       *stats,
		QueueDepth:       queueDepth,
		WebSocketClients: h.hub.ClientCount(),
		Sources:          h.breakers.States(r.Context(), engine.AllSources),
	}

	runs, err := h.store.ListRuns(r.Context(), 1)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get latest run")
		return
	}
	if len(runs) > 0 {
		resp.LatestRun = &runs[0]
	}

	respondJSON(w, http.StatusOK, resp)
}

// SourceHealth returns the circuit breaker state of every upstream source.
func (h *DashboardHandler) SourceHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.breakers.States(r.Context(), engine.AllSources))
}

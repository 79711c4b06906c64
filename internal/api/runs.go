package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/store"
)

// RunStore persists runs and their per-country reports.
type RunStore interface {
	CreateRun(ctx context.Context, window domain.Window, countries []string) (*domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	GetCountryReport(ctx context.Context, runID, country string) (*domain.CountryReport, error)
}

// Queue fans a run out to the workers.
type Queue interface {
	FanOut(ctx context.Context, run *domain.Run, countries ...string) (int, error)
	QueueDepth(ctx context.Context) (int64, error)
}

// ConfigSource provides the broadcast config sheet.
type ConfigSource interface {
	Load(ctx context.Context) (domain.ConfigTable, error)
	Invalidate(ctx context.Context) error
}

type RunHandler struct {
	store   RunStore
	queue   Queue
	configs ConfigSource
	now     func() time.Time
}

func NewRunHandler(s RunStore, q Queue, c ConfigSource) *RunHandler {
	return &RunHandler{store: s, queue: q, configs: c, now: time.Now}
}

type createRunRequest struct {
	Start     string   `json:"start,omitempty"`
	End       string   `json:"end,omitempty"`
	Countries []string `json:"countries,omitempty"`
}

type createRunResponse struct {
	RunID      string        `json:"run_id"`
	Window     domain.Window `json:"window"`
	Countries  []string      `json:"countries"`
	JobsQueued int           `json:"jobs_queued"`
}

func (req createRunRequest) window(now time.Time) (domain.Window, error) {
	if req.Start == "" && req.End == "" {
		return domain.WeeklyWindow(now), nil
	}
	if req.Start == "" || req.End == "" {
		return domain.Window{}, errors.New("start and end must be given together")
	}
	start, err := time.Parse(time.DateOnly, req.Start)
	if err != nil {
		return domain.Window{}, errors.New("start must be YYYY-MM-DD")
	}
	end, err := time.Parse(time.DateOnly, req.End)
	if err != nil {
		return domain.Window{}, errors.New("end must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return domain.Window{}, errors.New("end is before start")
	}
	return domain.Window{Start: start, End: end}, nil
}

// Create starts a run. An empty body runs every configured country over the
// previous full week.
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	window, err := req.window(h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	countries := domain.NormalizeCountries(req.Countries)
	if len(countries) == 0 {
		table, err := h.configs.Load(r.Context())
		if err != nil {
			respondError(w, http.StatusBadGateway, "failed to load broadcast config")
			return
		}
		countries = table.Countries()
	}
	if len(countries) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "no countries to run")
		return
	}

	run, err := h.store.CreateRun(r.Context(), window, countries)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	// A run whose fan-out failed stays queued and is picked up by the stale
	// run sweep.
	queued, err := h.queue.FanOut(r.Context(), run)
	if err != nil {
		queued = 0
	}

	respondJSON(w, http.StatusAccepted, createRunResponse{
		RunID:      run.ID,
		Window:     run.Window,
		Countries:  run.Countries,
		JobsQueued: queued,
	})
}

func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(r.Context(), queryLimit(r, 20))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, runs)
}

func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

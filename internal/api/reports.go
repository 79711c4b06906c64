package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/report"
	"github.com/Priya8975/broadcast-review/internal/store"
)

type ReportHandler struct {
	store RunStore
}

func NewReportHandler(s RunStore) *ReportHandler {
	return &ReportHandler{store: s}
}

func (h *ReportHandler) load(w http.ResponseWriter, r *http.Request) (*domain.CountryReport, bool) {
	runID := chi.URLParam(r, "id")
	country := strings.ToUpper(chi.URLParam(r, "country"))

	rep, err := h.store.GetCountryReport(r.Context(), runID, country)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "report not found")
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get report")
		return nil, false
	}
	return rep, true
}

// Get returns one country's stored report as JSON.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, rep)
}

// CSV downloads the cross-tab of one country's report.
func (h *ReportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.load(w, r)
	if !ok {
		return
	}
	if rep.Results.Empty() {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no results for %s (%s)", rep.Country, rep.Outcome))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s_%s.csv"`, rep.Window.Label(), rep.Country))
	w.WriteHeader(http.StatusOK)
	report.WriteCSV(w, rep.Results)
}

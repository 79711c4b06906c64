package api

import (
	"net/http"
)

type ConfigHandler struct {
	configs ConfigSource
}

func NewConfigHandler(c ConfigSource) *ConfigHandler {
	return &ConfigHandler{configs: c}
}

type configResponse struct {
	Countries       []string `json:"countries"`
	Rules           int      `json:"rules"`
	MetadataColumns []string `json:"metadata_columns"`
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	table, err := h.configs.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to load broadcast config")
		return
	}

	respondJSON(w, http.StatusOK, configResponse{
		Countries:       table.Countries(),
		Rules:           len(table.Rules),
		MetadataColumns: table.MetadataColumns,
	})
}

// Reload drops the cached sheet so the next load reads the source again.
func (h *ConfigHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.configs.Invalidate(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to invalidate config cache")
		return
	}
	h.Get(w, r)
}

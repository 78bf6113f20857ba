package controller

import (
	"encoding/json"
	"net/http"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (c *controller) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"status": "ok"})
}

// handleConfig hands the catalog search credential to clients at startup.
// The key is a deployment concern; clients never hardcode it.
func (c *controller) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"searchApiKey": c.searchAPIKey})
}

func (c *controller) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, envelope{"error": "q is required"})
		return
	}

	items, err := c.searchClient.Search(r.Context(), query)
	if err != nil {
		c.logger.ErrorContext(r.Context(), "search failed", "error", err)
		writeJSON(w, http.StatusBadGateway, envelope{"error": "search failed"})
		return
	}

	writeJSON(w, http.StatusOK, envelope{"items": items})
}

package api

import (
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
	Cities int    `json:"cities"`
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Cities: len(s.store.Cities(r.Context()))})
}

// handleConfig handles GET /api/config.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.clientConfig)
}

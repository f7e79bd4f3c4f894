package server

import (
	"creatorpulse/internal/core"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CreateSourceRequest is the POST /api/sources body
type CreateSourceRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// UpdateSourceRequest is the PATCH /api/sources/{id} body
type UpdateSourceRequest struct {
	IsActive *bool `json:"isActive"`
}

// handleListSources handles GET /api/sources
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Sources.ListSources(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"data": list})
}

// handleCreateSource handles POST /api/sources
func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var req CreateSourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	source, err := s.deps.Sources.AddSource(r.Context(), req.Type, req.Name, req.URL)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, source)
}

// handleUpdateSource handles PATCH /api/sources/{id}
func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	var req UpdateSourceRequest
	if err := decodeJSON(w, r, &req); err != nil || req.IsActive == nil {
		s.respondError(w, http.StatusBadRequest, "body must set isActive")
		return
	}

	source, err := s.deps.Sources.SetActive(r.Context(), chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, source)
}

// handleDeleteSource handles DELETE /api/sources/{id}
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sources.RemoveSource(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncResponse is the POST /api/sync body
type SyncResponse struct {
	SourcesSynced  int          `json:"sourcesSynced"`
	SourcesFailed  int          `json:"sourcesFailed"`
	ItemsFetched   int          `json:"itemsFetched"`
	TrendsDetected int          `json:"trendsDetected"`
	Trends         []core.Trend `json:"trends"`
	Errors         []string     `json:"errors,omitempty"`
}

// handleSync handles POST /api/sync
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Sources.Sync(r.Context(), s.deps.SyncOptions)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	resp := SyncResponse{
		SourcesSynced:  result.SourcesSynced,
		SourcesFailed:  result.SourcesFailed,
		ItemsFetched:   result.ItemsFetched,
		TrendsDetected: result.TrendsDetected,
		Trends:         result.Trends,
	}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleListTrends handles GET /api/trends
func (s *Server) handleListTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.deps.DB.Trends().ListRecent(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"data": trends})
}

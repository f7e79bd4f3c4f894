package server

import (
	"creatorpulse/internal/core"
	"creatorpulse/internal/draft"
	"creatorpulse/internal/llm"
	"creatorpulse/internal/newsletter"
	"creatorpulse/internal/persistence"
	"creatorpulse/internal/runlock"
	"creatorpulse/internal/sources"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// HealthResponse is the /health body
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorBody is the error envelope returned by every endpoint.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request. Fields lists validation failures.
type ErrorDetail struct {
	Status  int                `json:"status"`
	Message string             `json:"message"`
	Fields  []draft.FieldError `json:"fields,omitempty"`
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := s.deps.DB.Ping(r.Context()); err != nil {
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Checks: checks,
		})
		return
	}

	checks["database"] = "ok"
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: checks,
	})
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes the error envelope
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorBody{Error: ErrorDetail{Status: status, Message: message}})
}

// respondServiceError maps domain errors to HTTP statuses.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *draft.ValidationError
		generation *llm.GenerationError
	)

	switch {
	case errors.As(err, &validation):
		s.respondJSON(w, http.StatusBadRequest, ErrorBody{Error: ErrorDetail{
			Status:  http.StatusBadRequest,
			Message: "invalid draft request",
			Fields:  validation.Fields,
		}})
		return
	case errors.As(err, &generation):
		s.log.Error("Draft generation failed", "provider", generation.Provider, "status_code", generation.StatusCode, "error", err)
		s.respondError(w, http.StatusBadGateway, "draft generation failed")
		return
	case errors.Is(err, runlock.ErrLocked), errors.Is(err, core.ErrInvalidTransition), errors.Is(err, core.ErrDraftSent):
		s.respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, persistence.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, sources.ErrInvalidSource), errors.Is(err, newsletter.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, newsletter.ErrNoTrends):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, newsletter.ErrNoGenerator):
		s.respondError(w, http.StatusServiceUnavailable, "draft generation is not configured")
		return
	}

	s.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	s.respondError(w, http.StatusInternalServerError, "internal server error")
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

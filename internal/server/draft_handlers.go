package server

import (
	"creatorpulse/internal/core"
	"creatorpulse/internal/newsletter"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GenerateDraftRequest is the POST /api/drafts/generate body. Omitted trends,
// preferences and past newsletters are read from storage.
type GenerateDraftRequest struct {
	Trends          []core.Trend          `json:"trends,omitempty"`
	Preferences     *core.UserPreferences `json:"preferences,omitempty"`
	SubjectLine     *string               `json:"subjectLine,omitempty"`
	PastNewsletters []core.PastNewsletter `json:"pastNewsletters,omitempty"`
}

// handleGenerateDraft handles POST /api/drafts/generate
func (s *Server) handleGenerateDraft(w http.ResponseWriter, r *http.Request) {
	var req GenerateDraftRequest
	// An empty body generates from stored trends and preferences.
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.deps.Drafts.Generate(r.Context(), newsletter.GenerateOptions{
		Trends:          req.Trends,
		Preferences:     req.Preferences,
		SubjectLine:     req.SubjectLine,
		PastNewsletters: req.PastNewsletters,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

// handleListDrafts handles GET /api/drafts
func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.deps.Drafts.List(r.Context(), core.DraftStatus(r.URL.Query().Get("status")), queryInt(r, "limit", 50))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"data": drafts})
}

// handleGetDraft handles GET /api/drafts/{id}
func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Drafts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, d)
}

// handleReviewDraft handles POST /api/drafts/{id}/review
func (s *Server) handleReviewDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Drafts.Review(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, d)
}

// handleSentDraft handles POST /api/drafts/{id}/sent
func (s *Server) handleSentDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Drafts.MarkSent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, d)
}

// EditDraftRequest is the PATCH /api/drafts/{id} body. Omitted fields keep
// the current text.
type EditDraftRequest struct {
	Subject string `json:"subject,omitempty"`
	Content string `json:"content,omitempty"`
}

// handleEditDraft handles PATCH /api/drafts/{id}
func (s *Server) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	var req EditDraftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := s.deps.Drafts.Edit(r.Context(), chi.URLParam(r, "id"), req.Subject, req.Content)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, d)
}

// FeedbackRequest is the POST /api/drafts/{id}/feedback body
type FeedbackRequest struct {
	Rating   int    `json:"rating"`
	Comments string `json:"comments,omitempty"`
}

// handleSubmitFeedback handles POST /api/drafts/{id}/feedback
func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fb, err := s.deps.Drafts.SubmitFeedback(r.Context(), chi.URLParam(r, "id"), req.Rating, req.Comments)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, fb)
}

// handleListFeedback handles GET /api/drafts/{id}/feedback
func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	feedback, err := s.deps.Drafts.Feedback(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"data": feedback})
}

// handleDueDrafts handles GET /api/drafts/due
func (s *Server) handleDueDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.deps.Drafts.Due(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"data": drafts})
}

// handleGetPreferences handles GET /api/preferences
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.deps.Drafts.Preferences(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, prefs)
}

// handleUpdatePreferences handles PUT /api/preferences
func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs core.UserPreferences
	if err := decodeJSON(w, r, &prefs); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := s.deps.Drafts.SavePreferences(r.Context(), prefs)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, saved)
}

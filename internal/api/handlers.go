package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fluent-loop/feed-engine/internal/catalog"
	"github.com/fluent-loop/feed-engine/internal/models"
	"github.com/fluent-loop/feed-engine/internal/storage"
)

// Response helpers

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(apiError{Error: code, Message: message}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondEngineError maps engine failures to HTTP statuses.
func respondEngineError(w http.ResponseWriter, err error, operation string) {
	if errors.Is(err, storage.ErrUnavailable) {
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable", "persistent storage is not configured")
		return
	}
	slog.Error("operation failed", "operation", operation, "error", err)
	respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+operation)
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := true
	for name, err := range s.healthChecks.CheckAll(r.Context()) {
		if err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			ready = false
		}
	}
	if !ready {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Challenge handlers

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	challenges := s.catalogLoader.List()
	summaries := make([]models.ChallengeSummary, 0, len(challenges))
	for _, c := range challenges {
		summaries = append(summaries, c.Summary())
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"challenges": summaries,
		"total":      len(summaries),
	})
}

func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "challenge id is required")
		return
	}

	challenge, err := s.catalogLoader.Get(id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "challenge not found")
			return
		}
		slog.Error("failed to get challenge", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get challenge")
		return
	}

	respondJSON(w, http.StatusOK, challenge)
}

// Feed handlers

func (s *Server) handleBuildQueue(w http.ResponseWriter, r *http.Request) {
	// An empty body asks for a default batch.
	var req models.QueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.SessionID == "" {
		req.SessionID = SessionFromContext(r.Context())
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.batchSize
	}

	challenges := s.engine.BuildQueue(r.Context(), req.SessionID, req.ExcludedIDs, batchSize)

	respondJSON(w, http.StatusOK, models.QueueResponse{
		Challenges: challenges,
		Total:      len(challenges),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.SessionID == "" {
		req.SessionID = SessionFromContext(r.Context())
	}

	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "sessionId is required")
		return
	}
	if req.ChallengeID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "challengeId is required")
		return
	}
	if !req.ChallengeType.IsValid() {
		respondError(w, http.StatusBadRequest, "validation_error", "challengeType is missing or invalid")
		return
	}
	if !req.ConceptArea.IsValid() {
		respondError(w, http.StatusBadRequest, "validation_error", "conceptArea is missing or invalid")
		return
	}
	if req.Submission == nil {
		respondError(w, http.StatusBadRequest, "validation_error", "submission is required")
		return
	}

	result, err := s.engine.Submit(r.Context(), &req)
	if err != nil {
		respondEngineError(w, err, "record submission")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	challengeID := r.URL.Query().Get("challengeId")
	if challengeID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "challengeId is required")
		return
	}

	sessionID := SessionFromContext(r.Context())

	result, err := s.engine.Compare(r.Context(), challengeID, sessionID)
	if err != nil {
		respondEngineError(w, err, "compare submissions")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "sessionId is required")
		return
	}

	p, err := s.engine.Progress(r.Context(), sessionID)
	if err != nil {
		respondEngineError(w, err, "load progress")
		return
	}

	respondJSON(w, http.StatusOK, p)
}

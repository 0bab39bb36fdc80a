package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/domain"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/logger"
)

// runRequest is the run endpoint payload.
type runRequest struct {
	// Documents is the URL of the document to answer against.
	Documents string `json:"documents"`

	// Questions is the ordered question list.
	Questions []string `json:"questions"`
}

// runResponse carries one answer per question, in request order.
type runResponse struct {
	Answers []string `json:"answers"`
}

// statusResponse is the credential status payload.
type statusResponse struct {
	Keys []domain.CredentialReport `json:"keys"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// requireAuth rejects requests without the exact configured bearer token
// before any processing begins.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing authorization token")
			return
		}
		next(w, r)
	}
}

// handleRun processes a document and answers the batch of questions.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	start := time.Now()

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Documents) == "" {
		writeError(w, http.StatusBadRequest, "documents URL is required")
		return
	}
	if len(req.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "at least one question is required")
		return
	}

	logger.Info("[%s] run: %d questions against %s", requestID, len(req.Questions), req.Documents)

	answers, err := s.query.Answer(r.Context(), req.Documents, req.Questions)
	if err != nil {
		logger.Error("[%s] run failed: %v", requestID, err)
		if errors.Is(err, domain.ErrDocumentEmpty) || errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "failed to extract text from the document")
			return
		}
		writeError(w, http.StatusInternalServerError, "an internal server error occurred")
		return
	}

	logger.Info("[%s] run complete in %.1fs", requestID, time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, runResponse{Answers: answers})
}

// handleStatus reports per-credential health for operational visibility.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Keys: s.reporter.Report()})
}

// handleHealth is the unauthenticated liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

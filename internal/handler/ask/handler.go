// Package ask exposes the question/answer endpoint and the readiness probe.
package ask

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"plexd/internal/automation"
	"plexd/internal/controller"
	"plexd/pkg/utils"
)

const serviceName = "plexd"

// Service is the slice of the controller the handler needs.
type Service interface {
	Ask(ctx context.Context, question, sessionID string, returnSources bool) (controller.Result, error)
	Readiness(ctx context.Context) controller.Readiness
}

// Handler serves POST /ask and GET /health.
type Handler struct {
	svc Service
}

func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ask", h.handleAsk)
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Question      string `json:"question"`
		SessionID     string `json:"session_id"`
		ReturnSources bool   `json:"return_sources"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "bad_request", "invalid JSON in request body")
		return
	}
	if payload.Question == "" {
		utils.RespondError(w, http.StatusBadRequest, "bad_request", "missing 'question' field")
		return
	}

	res, err := h.svc.Ask(r.Context(), payload.Question, payload.SessionID, payload.ReturnSources)
	if err != nil {
		status, tag := classify(err)
		utils.RespondError(w, status, tag, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"response":   res.Response,
		"session_id": res.SessionID,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ready := h.svc.Readiness(r.Context())
	status := http.StatusOK
	if ready.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	utils.RespondJSON(w, status, map[string]string{
		"status":  ready.Status,
		"service": serviceName,
		"message": ready.Message,
	})
}

// classify maps controller and state-machine failures onto HTTP statuses
// and machine-readable tags.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, controller.ErrBusy):
		return http.StatusServiceUnavailable, "busy"
	case errors.Is(err, controller.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, controller.ErrChallengeBlocked):
		return http.StatusServiceUnavailable, "challenge_blocked"
	case errors.Is(err, controller.ErrLoginRequired):
		return http.StatusServiceUnavailable, "login_required"
	case errors.Is(err, automation.ErrInputTimeout):
		return http.StatusInternalServerError, "input_timeout"
	case errors.Is(err, automation.ErrSubmitTimeout):
		return http.StatusInternalServerError, "submit_timeout"
	case errors.Is(err, automation.ErrGenerationTimeout):
		return http.StatusInternalServerError, "generation_timeout"
	case errors.Is(err, automation.ErrExtractionFailed):
		return http.StatusInternalServerError, "extraction_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

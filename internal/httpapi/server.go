// Package httpapi exposes the client-facing surface of the copilot core:
// job submission, status polling with cache validation, and the stateless
// suggestion and analysis queries.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/petrijr/copilot/internal/analysis"
	"github.com/petrijr/copilot/pkg/api"
)

// Handler serves the copilot HTTP API.
type Handler struct {
	orch   api.Orchestrator
	logger *slog.Logger
}

// New creates a Handler. If logger is nil, slog.Default() is used.
func New(orch api.Orchestrator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{orch: orch, logger: logger}
}

// Router builds the chi router for the API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/copilot", func(r chi.Router) {
		r.Post("/start", h.startJob)
		r.Post("/transform", h.transformJob)
		r.Get("/status/{jobID}", h.getStatus)
		r.Post("/suggest/graph", h.suggestGraph)
		r.Post("/suggest/outline", h.suggestOutline)
		r.Post("/analyze", h.analyzeGraph)
	})

	return r
}

type startRequest struct {
	UserPrompt string `json:"userPrompt"`
}

type submitResponse struct {
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

func (h *Handler) startJob(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobID, err := h.orch.SubmitPrompt(r.Context(), req.UserPrompt)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, submitResponse{
		JobID:   jobID,
		Message: "quick-start job accepted",
	})
}

func (h *Handler) transformJob(w http.ResponseWriter, r *http.Request) {
	var def api.ProcessDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid definition")
		return
	}

	jobID, err := h.orch.SubmitDefinition(r.Context(), &def)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, submitResponse{
		JobID:   jobID,
		Message: "transformation job accepted",
	})
}

// getStatus returns the current snapshot with a cache-validation token
// derived from the job version. A matching If-None-Match short-circuits to
// 304 so pollers pay nothing when the job has not changed.
func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.orch.GetJob(r.Context(), jobID)
	if errors.Is(err, api.ErrJobNotFound) {
		h.writeError(w, http.StatusNotFound, "no such job")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	etag := fmt.Sprintf(`"v%d"`, job.Version)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=0, must-revalidate")

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) suggestGraph(w http.ResponseWriter, r *http.Request) {
	var req api.SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.orch.SuggestNextSteps(r.Context(), req)
	if errors.Is(err, api.ErrInvalidRequest) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type outlineRequest struct {
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

func (h *Handler) suggestOutline(w http.ResponseWriter, r *http.Request) {
	var req outlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := h.orch.SuggestOutline(r.Context(), req.Topic, req.Description)
	if errors.Is(err, api.ErrInvalidRequest) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, def)
}

type analyzeRequest struct {
	Graph *api.ProcessGraph `json:"currentGraph"`
}

func (h *Handler) analyzeGraph(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Graph == nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.writeJSON(w, http.StatusOK, analysis.Analyze(req.Graph))
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, err error) {
	if errors.Is(err, api.ErrInvalidRequest) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeError(w, http.StatusInternalServerError, "failed to accept job")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write_response", slog.Any("error", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "request_failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	h.writeError(w, http.StatusInternalServerError, "internal error")
}

// Package api exposes the orchestrator over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/quantumflow/agentflow/internal/agent"
	"github.com/quantumflow/agentflow/internal/models"
)

// maxRequestBodySize caps request bodies at 1MB
const maxRequestBodySize = 1 << 20

// Handler serves the session API
type Handler struct {
	orch   *agent.Orchestrator
	logger *slog.Logger
}

// NewHandler creates a handler over an orchestrator
func NewHandler(orch *agent.Orchestrator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{orch: orch, logger: logger}
}

// Router builds the full HTTP router. metrics is mounted at /metrics when non-nil.
func (h *Handler) Router(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/healthz"))

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the session and strategy routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", h.GetStats)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.StartSession)
			r.Get("/{id}", h.GetSession)
			r.Delete("/{id}", h.EndSession)
			r.Post("/{id}/messages", h.SendMessage)
			r.Get("/{id}/analytics", h.GetSessionAnalytics)
			r.Get("/{id}/decisions", h.GetDecisionLog)
		})

		r.Route("/strategies", func(r chi.Router) {
			r.Get("/", h.ListStrategies)
			r.Post("/", h.RegisterStrategy)
			r.Get("/{name}", h.GetStrategy)
			r.Delete("/{name}", h.UnregisterStrategy)
			r.Get("/{name}/performance", h.GetStrategyPerformance)
			r.Get("/{name}/patterns", h.GetPatterns)
			r.Get("/{name}/decisions", h.GetDecisionSummary)
		})
	})
}

// StartSessionRequest is the body of POST /v1/sessions
type StartSessionRequest struct {
	UserID   string                 `json:"user_id"`
	Strategy string                 `json:"strategy"`
	Inputs   map[string]interface{} `json:"inputs,omitempty"`
}

// SendMessageRequest is the body of POST /v1/sessions/{id}/messages
type SendMessageRequest struct {
	Message string `json:"message"`
}

// StartSession handles POST /v1/sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Strategy) == "" {
		writeError(w, http.StatusBadRequest, "user_id and strategy are required")
		return
	}

	sess, err := h.orch.StartSession(r.Context(), req.UserID, req.Strategy, req.Inputs, h.orch.BuiltinTools(req.Strategy))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// GetSession handles GET /v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	c, err := h.orch.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SendMessage handles POST /v1/sessions/{id}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	c, err := h.orch.GetSession(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out, err := h.orch.SendMessage(r.Context(), id, req.Message, h.orch.BuiltinTools(c.StrategyName))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// EndSession handles DELETE /v1/sessions/{id}
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.orch.GetSession(id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ended": h.orch.EndSession(r.Context(), id)})
}

// GetSessionAnalytics handles GET /v1/sessions/{id}/analytics
func (h *Handler) GetSessionAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.orch.GetSessionAnalytics(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GetDecisionLog handles GET /v1/sessions/{id}/decisions
func (h *Handler) GetDecisionLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.orch.DecisionLog(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 50))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetStats handles GET /v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.GetStats())
}

// ListStrategies handles GET /v1/strategies
func (h *Handler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"strategies": h.orch.Strategies()})
}

// RegisterStrategy handles POST /v1/strategies
func (h *Handler) RegisterStrategy(w http.ResponseWriter, r *http.Request) {
	var s models.Strategy
	if !h.decode(w, r, &s) {
		return
	}
	if err := h.orch.RegisterStrategy(&s); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": s.Name})
}

// GetStrategy handles GET /v1/strategies/{name}
func (h *Handler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s, ok := h.orch.Strategy(name)
	if !ok {
		h.fail(w, r, agent.ErrStrategyNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UnregisterStrategy handles DELETE /v1/strategies/{name}
func (h *Handler) UnregisterStrategy(w http.ResponseWriter, r *http.Request) {
	if !h.orch.UnregisterStrategy(chi.URLParam(r, "name")) {
		h.fail(w, r, agent.ErrStrategyNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStrategyPerformance handles GET /v1/strategies/{name}/performance
func (h *Handler) GetStrategyPerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.GetStrategyPerformance(chi.URLParam(r, "name")))
}

// GetPatterns handles GET /v1/strategies/{name}/patterns
func (h *Handler) GetPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.orch.TopPatterns(r.Context(), chi.URLParam(r, "name"), queryInt(r, "limit", 10))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, patterns)
}

// GetDecisionSummary handles GET /v1/strategies/{name}/decisions?since=24h
func (h *Handler) GetDecisionSummary(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "since must be a positive duration")
			return
		}
		window = d
	}

	summary, err := h.orch.DecisionSummary(r.Context(), chi.URLParam(r, "name"), time.Now().Add(-window))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// fail maps orchestrator errors to HTTP status codes
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *agent.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  err.Error(),
			"fields": verr.Fields,
		})
	case errors.Is(err, agent.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, agent.ErrStrategyNotFound), errors.Is(err, agent.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, agent.ErrSessionNotActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, agent.ErrAuditDisabled):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

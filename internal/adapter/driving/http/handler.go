// Package httphandler is the operator admin API. It exposes read-only views of
// the ledger, a health probe and the Prometheus metrics.
package httphandler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/honeyshell/internal/application"
	"github.com/ericfisherdev/honeyshell/internal/domain/model"
)

// SessionCounter reports how many SSH sessions are running.
type SessionCounter interface {
	ActiveSessions() int
}

// Handler is the HTTP driving adapter that serves the admin API.
type Handler struct {
	reports  *application.ReportService
	sessions SessionCounter
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(reports *application.ReportService, sessions SessionCounter, logger *slog.Logger) *Handler {
	return &Handler{
		reports:  reports,
		sessions: sessions,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. gatherer backs /metrics.
func NewServeMux(h *Handler, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/credentials/usage", h.ListCredentialUsage)
	mux.HandleFunc("GET /api/v1/credentials/granted", h.ListGrantedCredentials)
	mux.HandleFunc("GET /api/v1/sessions", h.ListSessions)
	mux.HandleFunc("GET /api/v1/sessions/{id}/commands", h.ListSessionCommands)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports liveness and the number of running sessions.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Time:           time.Now().UTC().Format(time.RFC3339),
		ActiveSessions: h.sessions.ActiveSessions(),
	})
}

// ListCredentialUsage returns the most attempted credential pairs.
func (h *Handler) ListCredentialUsage(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	usage, err := h.reports.TopCredentials(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list credential usage", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CredentialUsageResponse, 0, len(usage))
	for _, u := range usage {
		resp = append(resp, toCredentialUsageResponse(u))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListGrantedCredentials returns learned credentials. The optional since
// parameter is an RFC 3339 timestamp.
func (h *Handler) ListGrantedCredentials(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = parsed
	}

	creds, err := h.reports.LearnedCredentials(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to list granted credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListSessions returns the most recent recorded sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	sessions, err := h.reports.Sessions(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListSessionCommands returns the commands typed in one session.
func (h *Handler) ListSessionCommands(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseSessionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	cmds, err := h.reports.Commands(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list session commands", "session", id.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if len(cmds) == 0 {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	resp := make([]CommandResponse, 0, len(cmds))
	for _, c := range cmds {
		resp = append(resp, toCommandResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseLimit reads the optional limit query parameter. It writes a 400 and
// returns false when the value is not a positive integer.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}

	limit, err := strconv.Atoi(v)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}

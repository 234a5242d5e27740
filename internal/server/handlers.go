package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/metrics"
	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/service"
	"github.com/venturescope/scout/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("health check: store unreachable", zap.Error(err))
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (s *Server) handleStartDiscovery(w http.ResponseWriter, r *http.Request) {
	var req service.StartDiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run, err := s.svc.StartDiscovery(r.Context(), RequestScope(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetRun(r.Context(), RequestScope(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		writeJSONError(w, http.StatusBadRequest, "projectId is required")
		return
	}
	runs, err := s.svc.ListRuns(r.Context(), RequestScope(r), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleListCompetitors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.CompetitorFilter{
		SearchRunID:      q.Get("searchRunId"),
		ValidationStatus: model.ValidationStatus(q.Get("validation_status")),
		Industry:         q.Get("industry"),
		Country:          q.Get("country"),
	}
	if filter.Country == "" {
		filter.Country = q.Get("region")
	}

	competitors, err := s.svc.ListCompetitors(r.Context(), RequestScope(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"competitors": competitors})
}

func (s *Server) handleGetCompetitor(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetCompetitor(r.Context(), RequestScope(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleValidateCompetitor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := s.svc.ValidateCompetitor(r.Context(), RequestScope(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleEnrichCompetitor(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.EnrichCompetitor(r.Context(), RequestScope(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps service and store errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	var ue *service.UnprocessableError
	switch {
	case errors.As(err, &ve):
		writeJSONError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, service.ErrQuotaExceeded):
		writeJSONError(w, http.StatusPaymentRequired, "discovery quota exceeded")
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	case errors.As(err, &ue):
		writeJSONError(w, http.StatusUnprocessableEntity, ue.Message)
	case errors.Is(err, store.ErrConflict):
		writeJSONError(w, http.StatusUnprocessableEntity, "conflicting state")
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.HTTPRequests.WithLabelValues(route, fmt.Sprintf("%dxx", rec.status/100)).Inc()
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"adstats/internal/core"
	applog "adstats/internal/log"
	"adstats/internal/services"
)

type appMetrics struct {
	startedAt   time.Time
	runs        int64
	failedRuns  int64
	rejectedRun int64
}

// statusForKind maps a classified run failure to an HTTP status.
func statusForKind(kind core.ErrorKind) int {
	switch kind {
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindNoAccounts:
		return http.StatusNotFound
	case core.KindAPI, core.KindMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.startedAt).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.checkers[name].Check(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	checks["aggregation"] = map[string]any{
		"busy":   s.runner.Busy(),
		"status": string(s.runner.Result().Status),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	busy := 0
	if s.runner.Busy() {
		busy = 1
	}

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP aggregation_runs_total Aggregation runs started over HTTP\n")
	fmt.Fprintf(w, "# TYPE aggregation_runs_total counter\n")
	fmt.Fprintf(w, "aggregation_runs_total %d\n\n", atomic.LoadInt64(&s.metrics.runs))

	fmt.Fprintf(w, "# HELP aggregation_failures_total Aggregation runs that ended in error\n")
	fmt.Fprintf(w, "# TYPE aggregation_failures_total counter\n")
	fmt.Fprintf(w, "aggregation_failures_total %d\n\n", atomic.LoadInt64(&s.metrics.failedRuns))

	fmt.Fprintf(w, "# HELP aggregation_rejected_total Refreshes rejected while a run was in flight\n")
	fmt.Fprintf(w, "# TYPE aggregation_rejected_total counter\n")
	fmt.Fprintf(w, "aggregation_rejected_total %d\n\n", atomic.LoadInt64(&s.metrics.rejectedRun))

	fmt.Fprintf(w, "# HELP aggregation_in_progress Whether a run is in flight\n")
	fmt.Fprintf(w, "# TYPE aggregation_in_progress gauge\n")
	fmt.Fprintf(w, "aggregation_in_progress %d\n\n", busy)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.metrics.startedAt).Seconds())
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.clientIP.ClientIP(r),
		applog.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Rate limit exceeded. Please try again later."})
}

// handleSummary returns the latest run result.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Result())
}

// refresh runs one aggregation on behalf of a request. The run survives
// the client disconnecting.
func (s *Server) refresh(r *http.Request) (core.RunResult, error) {
	res, err := s.runner.Refresh(context.WithoutCancel(r.Context()))
	if errors.Is(err, services.ErrRunInProgress) {
		atomic.AddInt64(&s.metrics.rejectedRun, 1)
		return res, err
	}
	atomic.AddInt64(&s.metrics.runs, 1)
	if res.Status == core.StatusError {
		atomic.AddInt64(&s.metrics.failedRuns, 1)
	}
	return res, err
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.refresh(r)
	switch {
	case errors.Is(err, services.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, res)
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": core.MsgUnexpected})
	case res.Status == core.StatusError:
		writeJSON(w, statusForKind(res.ErrorKind), res)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.runner.SignOut(r.Context())
	writeJSON(w, http.StatusOK, s.runner.Result())
}

// handleRefreshForm serves the dashboard button; the outcome is shown on reload.
func (s *Server) handleRefreshForm(w http.ResponseWriter, r *http.Request) {
	_, _ = s.refresh(r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSignOutForm(w http.ResponseWriter, r *http.Request) {
	s.runner.SignOut(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldOperation, applog.OpRender)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	view := newDashboardView(s.runner.Result(), s.runner.Busy())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", view); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard template execution failed",
			applog.FieldError, err.Error(),
			applog.FieldOperation, applog.OpRender)
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
	}
}

package server

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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amishk599/jobsift/internal/metrics"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/pipeline"
)

const maxResultsLimit = 100

// Defaults fill in request parameters the caller leaves out.
type Defaults struct {
	RecencyHours int
	MaxResults   int
	Sequential   bool
}

// Server exposes the pipeline over HTTP.
type Server struct {
	orch     *pipeline.Orchestrator
	session  *pipeline.Session
	defaults Defaults
	logger   *slog.Logger
}

// New creates a server. The session is owned by the server and shared by
// every request it handles.
func New(orch *pipeline.Orchestrator, defaults Defaults, logger *slog.Logger) *Server {
	return &Server{
		orch:     orch,
		session:  &pipeline.Session{},
		defaults: defaults,
		logger:   logger,
	}
}

// JobsResponse is the body of GET /api/jobs.
type JobsResponse struct {
	Jobs     []model.Posting   `json:"jobs"`
	Metadata model.RunMetadata `json:"metadata"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())

	r.Route("/api", func(r chi.Router) {
		r.Get("/jobs", s.getJobs)
		r.Get("/health", s.getHealth)
		r.Get("/cache", s.getCache)
		r.Delete("/cache", s.deleteCache)
		r.Get("/session", s.getSession)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) getJobs(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	postings, meta := s.session.Search(r.Context(), s.orch, req)
	if meta.Error != nil {
		status, code := errorStatus(meta.Error)
		writeJSON(w, status, struct {
			ErrorResponse
			Metadata model.RunMetadata `json:"metadata"`
		}{ErrorResponse{Code: code, Message: meta.Error.Error()}, meta})
		return
	}

	writeJSON(w, http.StatusOK, JobsResponse{Jobs: postings, Metadata: meta})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	report := s.orch.Health(r.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) getCache(w http.ResponseWriter, r *http.Request) {
	info, err := s.orch.CacheInfo(r.Context())
	if err != nil {
		s.logger.Error("cache info failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "cache unavailable")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// deleteCache clears the whole cache, or one entry when keywords are given.
func (s *Server) deleteCache(w http.ResponseWriter, r *http.Request) {
	var err error
	if strings.TrimSpace(r.URL.Query().Get("keywords")) != "" {
		req, perr := s.parseRequest(r)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "bad_request", perr.Error())
			return
		}
		err = s.orch.InvalidateCache(r.Context(), req)
	} else {
		err = s.orch.ClearCache(r.Context())
	}
	if err != nil {
		s.logger.Error("cache delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "cache unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.State())
}

// parseRequest reads keywords, hours, max, mode and nocache from the query.
func (s *Server) parseRequest(r *http.Request) (pipeline.Request, error) {
	q := r.URL.Query()
	req := pipeline.Request{
		Keywords:     q.Get("keywords"),
		RecencyHours: s.defaults.RecencyHours,
		MaxResults:   s.defaults.MaxResults,
		Sequential:   s.defaults.Sequential,
	}

	if v := q.Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, errors.New("hours must be a non-negative integer")
		}
		req.RecencyHours = n
	}
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxResultsLimit {
			return req, errors.New("max must be an integer between 1 and 100")
		}
		req.MaxResults = n
	}
	switch q.Get("mode") {
	case "":
	case pipeline.ModeParallel:
		req.Sequential = false
	case pipeline.ModeSequential:
		req.Sequential = true
	default:
		return req, errors.New("mode must be parallel or sequential")
	}
	if v := q.Get("nocache"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, errors.New("nocache must be a boolean")
		}
		req.NoCache = b
	}
	return req, nil
}

func errorStatus(f *model.Fault) (int, string) {
	switch {
	case errors.Is(f, model.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case f.Kind == model.FaultValidation:
		return http.StatusBadRequest, "validation_failed"
	default:
		return http.StatusInternalServerError, "search_failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// jsonRecoverer returns JSON instead of a plain text stacktrace on panic.
func jsonRecoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered", "panic", rvr, "path", r.URL.Path)
					writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger emits one log line per request and echoes X-Request-ID.
func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http_request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"latency", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		})
	}
}

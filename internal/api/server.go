// Package api exposes the HTTP interface for the outreach service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tcavaliere/coldreach/internal/config"
	"github.com/tcavaliere/coldreach/internal/outreach"
)

// Enqueuer hands accepted jobs to the worker pool. The dispatcher satisfies
// it.
type Enqueuer interface {
	Enqueue(ctx context.Context, job outreach.Job) error
}

// Server wires HTTP handlers to the job registry, entity store, and queue.
type Server struct {
	router   chi.Router
	jobs     outreach.JobStore
	senders  outreach.SenderStore
	enqueuer Enqueuer
	idGen    outreach.IDGenerator
	clock    outreach.Clock
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The gatherer
// backs /metrics; pass nil to use the default Prometheus registry.
func NewServer(
	jobs outreach.JobStore,
	senders outreach.SenderStore,
	enqueuer Enqueuer,
	idGen outreach.IDGenerator,
	clock outreach.Clock,
	gatherer prometheus.Gatherer,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		jobs:     jobs,
		senders:  senders,
		enqueuer: enqueuer,
		idGen:    idGen,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/generate", s.submitGenerateTasks)
			r.Route("/{job_id}", func(r chi.Router) {
				r.Get("/status", s.getTaskStatus)
				r.Get("/result", s.getTaskResult)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type generateTasksRequest struct {
	SenderID             string   `json:"sender_id"`
	TargetURLs           []string `json:"target_urls"`
	AuxiliaryURLs        []string `json:"auxiliary_urls"`
	Tone                 string   `json:"tone"`
	PersonalizationLevel string   `json:"personalization_level"`
	FindContact          bool     `json:"find_contact"`
	CustomInstructions   string   `json:"custom_instructions"`
}

type acceptedTask struct {
	URL   string `json:"url"`
	JobID string `json:"job_id"`
}

func (s *Server) submitGenerateTasks(w http.ResponseWriter, r *http.Request) {
	var req generateTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SenderID == "" {
		s.writeError(w, http.StatusBadRequest, "sender_id is required")
		return
	}
	if len(req.TargetURLs) == 0 {
		s.writeError(w, http.StatusBadRequest, "target_urls is required")
		return
	}

	sender, err := s.senders.GetSenderProfile(r.Context(), req.SenderID)
	if err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "sender profile not found")
			return
		}
		s.logger.Error("sender lookup failed",
			zap.String("sender_id", req.SenderID),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "sender lookup failed")
		return
	}

	jobReqs := make([]outreach.JobRequest, 0, len(req.TargetURLs))
	for _, target := range req.TargetURLs {
		jobReq := outreach.JobRequest{
			SenderID:             req.SenderID,
			TargetURL:            target,
			AuxiliaryURLs:        req.AuxiliaryURLs,
			Tone:                 req.Tone,
			PersonalizationLevel: req.PersonalizationLevel,
			FindContact:          req.FindContact,
			CustomInstructions:   req.CustomInstructions,
		}
		if err := jobReq.Validate(); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		jobReqs = append(jobReqs, jobReq)
	}

	tasks := make([]acceptedTask, 0, len(jobReqs))
	for _, jobReq := range jobReqs {
		jobID, err := s.enqueueJob(r.Context(), jobReq, sender)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusRequestTimeout
			}
			s.writeError(w, status, err.Error())
			return
		}
		tasks = append(tasks, acceptedTask{URL: jobReq.TargetURL, JobID: jobID})
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{"tasks": tasks})
}

func (s *Server) enqueueJob(ctx context.Context, req outreach.JobRequest, sender outreach.SenderProfile) (string, error) {
	jobID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	job := outreach.Job{
		ID:        jobID,
		Request:   req,
		Sender:    sender,
		Submitted: s.clock.Now(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.enqueuer.Enqueue(queueCtx, job); err != nil {
		if failErr := s.jobs.Fail(ctx, jobID, "enqueue failed"); failErr != nil {
			s.logger.Error("mark unqueued job failed",
				zap.String("job_id", jobID),
				zap.Error(failErr))
		}
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

// getTaskStatus always answers 200; identifiers that were never issued or
// have been evicted come back with the unknown state.
func (s *Server) getTaskStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	status, err := s.jobs.Status(r.Context(), jobID)
	if err != nil {
		s.logger.Error("status lookup failed", zap.String("job_id", jobID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   jobID,
		"state":    status.State,
		"progress": status.Progress,
		"message":  status.Message,
	})
}

func (s *Server) getTaskResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	status, err := s.jobs.Status(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}
	if status.State == outreach.StateUnknown {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	result, ok, err := s.jobs.Result(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "result lookup failed")
		return
	}
	if !ok {
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"job_id":   jobID,
			"state":    status.State,
			"progress": status.Progress,
			"message":  "task has not finished",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"job_id": jobID,
		"result": result,
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Package server exposes the agent over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/fit-agent/internal/agent"
	"github.com/spigell/fit-agent/internal/ai"
	"github.com/spigell/fit-agent/internal/logger"
)

const (
	analyzePath     = "/api/analyze/agent"
	resumePath      = "/api/analyze/resume"
	jobPath         = "/api/analyze/jd"
	healthPath      = "/health"
	apiKeyHeader    = "x-api-key"
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 30 * time.Second
	// maxTrackedClients bounds the per-client limiter table.
	maxTrackedClients = 10000
)

// Evaluator runs one evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context, req *agent.Request) (*agent.Response, error)
}

// Config configures the HTTP boundary.
type Config struct {
	Addr       string  `mapstructure:"addr"`
	APIKeyFile string  `mapstructure:"api-key-file"`
	APIKey     string  `mapstructure:"api-key"`
	RateLimit  float64 `mapstructure:"rate-limit"`
	Burst      int     `mapstructure:"burst"`
}

// Server serves evaluations and, when parsers are configured, resume and job description parsing.
type Server struct {
	evaluator Evaluator
	resumes   ai.ResumeParser
	jobs      ai.JobParser
	apiKey    string
	limiters  *clientLimiters
	logger    *zap.Logger
	http      *http.Server
}

// Option configures optional parts of a Server.
type Option func(*Server)

// WithParsers enables the resume and job description parsing routes. A nil parser leaves its
// route unregistered.
func WithParsers(resumes ai.ResumeParser, jobs ai.JobParser) Option {
	return func(s *Server) {
		s.resumes = resumes
		s.jobs = jobs
	}
}

// New creates a server. The API key is required; a non-positive rate limit disables limiting.
func New(cfg Config, apiKey string, evaluator Evaluator, log *zap.Logger, opts ...Option) (*Server, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("server api key is required")
	}
	if evaluator == nil {
		return nil, errors.New("evaluator is required")
	}

	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		evaluator: evaluator,
		apiKey:    apiKey,
		logger:    logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.RateLimit > 0 {
		s.limiters = newClientLimiters(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler with every middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST "+analyzePath, s.withRateLimit(s.withAPIKey(http.HandlerFunc(s.handleAnalyze))))
	if s.resumes != nil {
		mux.Handle("POST "+resumePath, s.withRateLimit(s.withAPIKey(http.HandlerFunc(s.handleResume))))
	}
	if s.jobs != nil {
		mux.Handle("POST "+jobPath, s.withRateLimit(s.withAPIKey(http.HandlerFunc(s.handleJob))))
	}
	mux.HandleFunc("GET "+healthPath, s.handleHealth)

	return s.withLogging(s.withCORS(mux))
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server starting", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req agent.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid input payload")
		return
	}

	resp, err := s.evaluator.Evaluate(r.Context(), &req)
	if err != nil {
		status := httpStatus(err)
		s.logger.Warn("evaluation failed", zap.Int("status", status), zap.Error(err))
		s.errorResponse(w, status, errorMessage(status, err))
		return
	}

	w.Header().Set("X-Request-Id", resp.RequestID)
	s.jsonResponse(w, http.StatusOK, resp)
}

type resumeRequest struct {
	ResumeText string `json:"resumeText"`
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if !s.decodeText(w, r, &req, func() string { return req.ResumeText }) {
		return
	}

	parsed, err := s.resumes.ParseResume(r.Context(), req.ResumeText)
	if err != nil {
		s.parseFailed(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, parsed)
}

type jobRequest struct {
	JDText string `json:"jdText"`
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if !s.decodeText(w, r, &req, func() string { return req.JDText }) {
		return
	}

	parsed, err := s.jobs.ParseJob(r.Context(), req.JDText)
	if err != nil {
		s.parseFailed(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, parsed)
}

// decodeText decodes the body into target and rejects it when text() is blank afterwards.
func (s *Server) decodeText(w http.ResponseWriter, r *http.Request, target any, text func() string) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target); err != nil ||
		strings.TrimSpace(text()) == "" {
		s.errorResponse(w, http.StatusBadRequest, "Invalid input payload")
		return false
	}
	return true
}

func (s *Server) parseFailed(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	s.logger.Warn("parsing failed", zap.Int("status", status), zap.Error(err))
	s.errorResponse(w, status, errorMessage(status, err))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, agent.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, agent.ErrCollaborator):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(status int, err error) string {
	switch status {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusBadGateway:
		return "Upstream model service failed"
	case http.StatusServiceUnavailable:
		return "Request cancelled"
	default:
		return "Internal error"
	}
}

// withAPIKey rejects requests without the configured x-api-key header.
func (s *Server) withAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+apiKeyHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.limiters == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := s.limiters.get(clientID(r))
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode json response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// clientID identifies the caller by the IP address of RemoteAddr.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

type clientLimiters struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*rate.Limiter
}

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{limit: limit, burst: burst, clients: make(map[string]*rate.Limiter)}
}

func (c *clientLimiters) get(id string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.clients[id]; ok {
		return l
	}

	if len(c.clients) >= maxTrackedClients {
		clear(c.clients)
	}

	l := rate.NewLimiter(c.limit, c.burst)
	c.clients[id] = l
	return l
}

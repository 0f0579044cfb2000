package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/workvisa/internal/domain"
	domanswer "github.com/kailas-cloud/workvisa/internal/domain/answer"
	"github.com/kailas-cloud/workvisa/internal/logger"
	healthuc "github.com/kailas-cloud/workvisa/internal/usecase/health"
)

const maxBodyBytes = 64 << 10

// Resolver answers a single question.
type Resolver interface {
	Resolve(ctx context.Context, question string) (domanswer.Result, error)
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// failureSentinels are resolution failures reported to clients by their text.
var failureSentinels = []error{
	domain.ErrRetrievalUnavailable,
	domain.ErrIndexNotBuilt,
	domain.ErrEmbeddingProviderError,
	domain.ErrVectorDimMismatch,
	domain.ErrGeneration,
}

// Server holds the HTTP handlers.
type Server struct {
	resolver      Resolver
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(resolver Resolver, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		resolver: resolver,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuestion, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
	}
	for _, sentinel := range failureSentinels {
		s.errorHandlers = append(s.errorHandlers,
			sentinelHandler(sentinel, http.StatusInternalServerError, CodeInternalError))
	}
	return s
}

// Chatbot handles POST /chatbot.
func (s *Server) Chatbot(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Question == nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "question is required")
		return
	}

	res, err := s.resolver.Resolve(r.Context(), *req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse(res))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	// Preset answers are served in every state, so the endpoint stays 200.
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func chatResponse(res domanswer.Result) ChatResponse {
	if res.IsAnswer() {
		text := res.Text()
		return ChatResponse{Answer: &text}
	}
	qs := res.SubQuestions()
	if qs == nil {
		qs = []string{}
	}
	return ChatResponse{SubQuestions: qs}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := append([]error{domain.ErrEmptyQuestion, domain.ErrRateLimited}, failureSentinels...)
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	if !log.Core().Enabled(zap.ErrorLevel) {
		log = s.logger
	}

	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, msg)
}

// Package generation turns a question and retrieved documents into an answer
// through a generative model.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/workvisa/internal/domain"
	"github.com/kailas-cloud/workvisa/internal/domain/document"
	"github.com/kailas-cloud/workvisa/internal/metrics"
)

// DefaultSystemPrompt is the counsellor persona sent with every request.
const DefaultSystemPrompt = "너는 지금 외국인 근로자와 대화를 하는 친절한 상담원이야."

var errEmptyCompletion = errors.New("empty completion")

// Config holds generation parameters.
type Config struct {
	Model        string // metrics label only
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	Timeout      time.Duration // per attempt, 0 = none
	MaxAttempts  int           // total attempts, at least 1
	RetryDelay   time.Duration
}

// Service wraps a Completer with the prompt template, timeouts and retry policy.
type Service struct {
	completer domain.Completer
	cfg       Config
	logger    *zap.Logger
}

// New creates a generation service.
func New(completer domain.Completer, cfg Config, logger *zap.Logger) *Service {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Service{completer: completer, cfg: cfg, logger: logger}
}

// Answer builds the prompt and asks the model, retrying provider failures.
// Cancellation of ctx stops immediately. The answer is trimmed; an empty one
// counts as a failure. Errors wrap domain.ErrGeneration.
func (s *Service) Answer(ctx context.Context, question string, docs []document.Document) (string, error) {
	req := domain.Completion{
		System:      s.cfg.SystemPrompt,
		Prompt:      BuildPrompt(question, docs),
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, s.cfg.RetryDelay); err != nil {
				break
			}
		}

		text, err := s.attempt(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		s.logger.Warn("Completion attempt failed",
			zap.String("model", s.cfg.Model),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.cfg.MaxAttempts),
			zap.Error(err),
		)
	}

	if ctxErr := ctx.Err(); ctxErr != nil && lastErr == nil {
		lastErr = ctxErr
	}
	if errors.Is(lastErr, domain.ErrGeneration) {
		return "", fmt.Errorf("generate answer: %w", lastErr)
	}
	return "", fmt.Errorf("generate answer: %w: %w", domain.ErrGeneration, lastErr)
}

func (s *Service) attempt(ctx context.Context, req domain.Completion) (string, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.completer.Complete(ctx, req)
	metrics.CompletionRequestDuration.WithLabelValues(s.cfg.Model).Observe(time.Since(start).Seconds())

	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = errEmptyCompletion
		}
	}
	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(s.cfg.Model, "error").Inc()
		return "", err
	}
	metrics.CompletionRequestsTotal.WithLabelValues(s.cfg.Model, "success").Inc()
	return text, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

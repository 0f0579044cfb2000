// Package answer resolves a user question to a preset answer, a sub-question
// menu, or a generated answer.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/workvisa/internal/domain"
	domanswer "github.com/kailas-cloud/workvisa/internal/domain/answer"
	"github.com/kailas-cloud/workvisa/internal/logger"
	"github.com/kailas-cloud/workvisa/internal/metrics"
)

// DefaultTopK is the number of documents passed to generation.
const DefaultTopK = 3

const sourceError = "error"

// Service is the question resolver. It holds only read-only state and is safe
// for concurrent use.
type Service struct {
	presets   PresetLookup
	retriever Retriever
	generator Generator
	topK      int
	logger    *zap.Logger
}

// New creates a resolver. retriever and generator may be nil, in which case
// questions missing from the preset table fail with ErrRetrievalUnavailable.
func New(presets PresetLookup, retriever Retriever, generator Generator, logger *zap.Logger) *Service {
	return &Service{
		presets:   presets,
		retriever: retriever,
		generator: generator,
		topK:      DefaultTopK,
		logger:    logger,
	}
}

// WithTopK overrides the number of retrieved documents.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// RetrievalEnabled reports whether the fallback path is wired.
func (s *Service) RetrievalEnabled() bool {
	return s.retriever != nil && s.generator != nil
}

// Resolve answers question. Preset hits short-circuit, even with an empty
// answer text. Misses go through retrieval and generation.
func (s *Service) Resolve(ctx context.Context, question string) (domanswer.Result, error) {
	start := time.Now()

	// Failures are logged by the caller together with the response status.
	res, err := s.resolve(ctx, strings.TrimSpace(question))
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues(sourceError).Inc()
		return domanswer.Result{}, err
	}

	metrics.ResolutionsTotal.WithLabelValues(string(res.Source())).Inc()
	s.requestLogger(ctx).Info("Question resolved",
		zap.String("source", string(res.Source())),
		zap.Bool("sub_questions", !res.IsAnswer()),
		zap.Duration("latency", time.Since(start)),
	)
	return res, nil
}

func (s *Service) resolve(ctx context.Context, question string) (domanswer.Result, error) {
	if question == "" {
		return domanswer.Result{}, domain.ErrEmptyQuestion
	}

	if m := s.presets.Lookup(question); m.Hit() {
		return m.Result, nil
	}

	if !s.RetrievalEnabled() {
		return domanswer.Result{}, domain.ErrRetrievalUnavailable
	}

	docs, err := s.retriever.Query(ctx, question, s.topK)
	if err != nil {
		return domanswer.Result{}, fmt.Errorf("retrieve context: %w", err)
	}

	text, err := s.generator.Answer(ctx, question, docs)
	if err != nil {
		return domanswer.Result{}, fmt.Errorf("answer question: %w", err)
	}
	return domanswer.Text(text, domanswer.SourceRetrieval), nil
}

func (s *Service) requestLogger(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// Package index embeds the corpus once and answers nearest-document queries.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/workvisa/internal/db"
	"github.com/kailas-cloud/workvisa/internal/domain"
	"github.com/kailas-cloud/workvisa/internal/domain/document"
	"github.com/kailas-cloud/workvisa/internal/metrics"
)

// DefaultTopK is the number of documents retrieved per question.
const DefaultTopK = 3

// Service owns the corpus and its vectors. The same embedder serves Build and Query.
type Service struct {
	embed  Embedder
	store  VectorStore
	logger *zap.Logger

	mu    sync.RWMutex
	docs  []document.Document
	built bool
}

// New creates an index service.
func New(embed Embedder, store VectorStore, logger *zap.Logger) *Service {
	return &Service{embed: embed, store: store, logger: logger}
}

// Build embeds every document in one batch and replaces the index contents.
// Document i gets vector id i.
func (s *Service) Build(ctx context.Context, docs []document.Document) error {
	start := time.Now()

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = embeddingText(d)
	}

	res, err := domain.EmbedAll(ctx, s.embed, texts)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(res.Embeddings) > 0 {
		dim := len(res.Embeddings[0])
		for i, v := range res.Embeddings {
			if len(v) != dim {
				return fmt.Errorf("document %d has %d dimensions, expected %d: %w",
					i, len(v), dim, domain.ErrVectorDimMismatch)
			}
		}
		if err := s.store.Reset(ctx, dim); err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
		if err := s.store.Add(ctx, res.Embeddings); err != nil {
			return fmt.Errorf("add vectors: %w", mapStoreErr(err))
		}
	}

	s.docs = append([]document.Document(nil), docs...)
	s.built = true
	metrics.IndexDocuments.Set(float64(len(docs)))

	s.logger.Info("Index built",
		zap.Int("documents", len(docs)),
		zap.Int("total_tokens", res.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Query returns up to k documents nearest to text, closest first.
// Padding and out-of-range ids from the backend are dropped.
func (s *Service) Query(ctx context.Context, text string, k int) ([]document.Document, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.built {
		return nil, domain.ErrIndexNotBuilt
	}
	if len(s.docs) == 0 {
		return []document.Document{}, nil
	}

	emb, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if dim := s.store.Dim(); len(emb.Embedding) != dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(emb.Embedding), dim, domain.ErrVectorDimMismatch)
	}

	neighbors, err := s.store.Search(ctx, emb.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", mapStoreErr(err))
	}

	out := make([]document.Document, 0, len(neighbors))
	for _, n := range neighbors {
		if n.ID < 0 || n.ID >= len(s.docs) {
			continue
		}
		out = append(out, s.docs[n.ID])
	}
	return out, nil
}

// Len reports the number of indexed documents.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// HealthCheck reports ErrIndexNotBuilt until Build succeeds.
func (s *Service) HealthCheck(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.built {
		return domain.ErrIndexNotBuilt
	}
	return nil
}

// embeddingText is the description exactly as loaded. A blank description is
// replaced by the title because the OpenAI embeddings endpoint rejects empty input.
func embeddingText(d document.Document) string {
	if strings.TrimSpace(d.Description) != "" {
		return d.Description
	}
	return d.Title
}

func mapStoreErr(err error) error {
	if errors.Is(err, db.ErrDimMismatch) {
		return fmt.Errorf("%w: %w", domain.ErrVectorDimMismatch, err)
	}
	return err
}

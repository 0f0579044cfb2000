package index

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/workvisa/internal/db"
	"github.com/kailas-cloud/workvisa/internal/domain"
)

// mapEmbedder returns fixed vectors per text and counts calls.
type mapEmbedder struct {
	vectors    map[string][]float32
	err        error
	embedCalls int
}

func (m *mapEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.embedCalls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	v, ok := m.vectors[text]
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("no vector for %q", text)
	}
	return domain.EmbeddingResult{Embedding: v, TotalTokens: 1}, nil
}

// batchMapEmbedder adds BatchEmbed so Build takes the single-request path.
type batchMapEmbedder struct {
	mapEmbedder
	batchCalls int
	batchSize  int
}

func (m *batchMapEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchSize = len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		r, err := m.Embed(ctx, t)
		if err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		out[i] = r.Embedding
	}
	m.embedCalls -= len(texts)
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

// scriptedStore returns canned neighbours to exercise id filtering.
type scriptedStore struct {
	dim       int
	neighbors []db.Neighbor
	searchErr error
	addErr    error
}

func (s *scriptedStore) Reset(_ context.Context, dim int) error { s.dim = dim; return nil }
func (s *scriptedStore) Add(_ context.Context, _ [][]float32) error {
	return s.addErr
}
func (s *scriptedStore) Search(_ context.Context, _ []float32, _ int) ([]db.Neighbor, error) {
	return s.neighbors, s.searchErr
}
func (s *scriptedStore) Dim() int { return s.dim }

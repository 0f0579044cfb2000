package index

import (
	"context"

	"github.com/kailas-cloud/workvisa/internal/db"
	"github.com/kailas-cloud/workvisa/internal/domain"
)

// Embedder vectorizes text. Implementations that also satisfy
// domain.BatchEmbedder are used in one batch at build time.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorStore is the nearest-neighbour backend.
type VectorStore interface {
	Reset(ctx context.Context, dim int) error
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]db.Neighbor, error)
	Dim() int
}

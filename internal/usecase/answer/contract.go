package answer

import (
	"context"

	"github.com/kailas-cloud/workvisa/internal/domain/document"
	"github.com/kailas-cloud/workvisa/internal/usecase/preset"
)

// PresetLookup finds curated answers by exact label.
type PresetLookup interface {
	Lookup(question string) preset.Match
}

// Retriever returns the k nearest corpus documents for a question.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]document.Document, error)
}

// Generator writes an answer grounded on retrieved documents.
type Generator interface {
	Answer(ctx context.Context, question string, docs []document.Document) (string, error)
}

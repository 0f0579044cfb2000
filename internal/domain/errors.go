package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorpusLoad signals that the document corpus could not be read.
	ErrCorpusLoad = errors.New("corpus load failed")
	// ErrIndexNotBuilt signals a query against an index that was never built.
	ErrIndexNotBuilt = errors.New("index not built")
	// ErrGeneration signals a completion provider failure.
	ErrGeneration = errors.New("generation failed")
	// ErrMalformedPreset signals a preset answer source with an unexpected shape.
	ErrMalformedPreset = errors.New("malformed preset data")
	// ErrEmptyQuestion signals a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrRetrievalUnavailable signals that the service runs in preset-only mode.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// MalformedPresetError points at the preset entry that failed to parse.
type MalformedPresetError struct {
	Path   []string
	Line   int
	Reason string
}

func (e *MalformedPresetError) Error() string {
	where := "<root>"
	if len(e.Path) > 0 {
		where = strings.Join(e.Path, " > ")
	}
	return fmt.Sprintf("%s: %s (line %d): %s", ErrMalformedPreset.Error(), where, e.Line, e.Reason)
}

func (e *MalformedPresetError) Unwrap() error { return ErrMalformedPreset }

package domain

import "context"

// Completion is a single-turn chat request to a generative model.
type Completion struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, req Completion) (string, error)
}

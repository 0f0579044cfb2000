package health

import "context"

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Checker checks a single component, such as the retrieval index or a model provider.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

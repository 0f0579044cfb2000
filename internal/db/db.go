package db

import (
	"context"
	"time"
)

// Store is the key-value facade backing the embedding cache.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Neighbor is a single nearest-neighbour hit: a corpus position and its squared L2 distance.
// ID is -1 when the index holds fewer vectors than requested.
type Neighbor struct {
	ID       int
	Distance float32
}

// VectorIndex is an exact nearest-neighbour index over dense float32 vectors.
// IDs are assigned sequentially from 0 in insertion order.
type VectorIndex interface {
	// Reset drops all vectors and fixes the dimension for subsequent adds.
	Reset(ctx context.Context, dim int) error
	// Add appends vectors; each must have the configured dimension.
	Add(ctx context.Context, vectors [][]float32) error
	// Search returns exactly k neighbours per query, closest first.
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	// Len reports the number of stored vectors.
	Len() int
	// Dim reports the configured dimension, 0 before Reset.
	Dim() int
}

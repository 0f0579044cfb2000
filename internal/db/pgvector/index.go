// Package pgvector is a VectorIndex backed by a Postgres table with the pgvector extension.
package pgvector

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/workvisa/internal/db"
)

// Compile-time check: Index implements db.VectorIndex.
var _ db.VectorIndex = (*Index)(nil)

// Config holds connection parameters.
type Config struct {
	ConnString string
	Table      string // validated identifier, interpolated into DDL
}

// Index keeps one row per corpus position; row id equals the position.
type Index struct {
	pool  *pgxpool.Pool
	table string

	mu  sync.RWMutex
	dim int
	n   int
}

// New connects and enables the vector extension.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Table == "" {
		cfg.Table = "workvisa_documents"
	}

	pool, err := pgxpool.New(ctx, cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create vector extension: %w", err)
	}

	return &Index{pool: pool, table: cfg.Table}, nil
}

// Ping checks connectivity.
func (x *Index) Ping(ctx context.Context) error {
	if err := x.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (x *Index) Close() {
	x.pool.Close()
}

// Reset recreates the table for the given dimension.
func (x *Index) Reset(ctx context.Context, dim int) error {
	if dim <= 0 {
		return &db.Error{Op: db.OpReset, Err: fmt.Errorf("%w: dimension must be positive, got %d", db.ErrInvalidQuery, dim)}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	tx, err := x.pool.Begin(ctx)
	if err != nil {
		return &db.Error{Op: db.OpReset, Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", x.table)); err != nil {
		return &db.Error{Op: db.OpReset, Err: err}
	}
	createTable := fmt.Sprintf(`
		CREATE TABLE %s (
			id INTEGER PRIMARY KEY,
			embedding vector(%d) NOT NULL
		)`, x.table, dim)
	if _, err := tx.Exec(ctx, createTable); err != nil {
		return &db.Error{Op: db.OpReset, Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &db.Error{Op: db.OpReset, Err: err}
	}

	x.dim = dim
	x.n = 0
	return nil
}

// Add inserts vectors in one transaction; IDs continue from the current length.
func (x *Index) Add(ctx context.Context, vectors [][]float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for i, v := range vectors {
		if len(v) != x.dim {
			return &db.Error{Op: db.OpInsert, Err: fmt.Errorf("%w: row %d has %d, index has %d", db.ErrDimMismatch, i, len(v), x.dim)}
		}
	}

	tx, err := x.pool.Begin(ctx)
	if err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	stmt := fmt.Sprintf("INSERT INTO %s (id, embedding) VALUES ($1, $2)", x.table)
	for i, v := range vectors {
		if _, err := tx.Exec(ctx, stmt, x.n+i, pgvector.NewVector(v)); err != nil {
			return &db.Error{Op: db.OpInsert, Err: err}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return &db.Error{Op: db.OpInsert, Err: err}
	}

	x.n += len(vectors)
	return nil
}

// Search orders by L2 distance then id and reports squared distances.
// Missing rows up to k are padded with ID -1.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]db.Neighbor, error) {
	if k <= 0 {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: k must be positive, got %d", db.ErrInvalidQuery, k)}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(query) != x.dim {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: query has %d, index has %d", db.ErrDimMismatch, len(query), x.dim)}
	}

	sql := fmt.Sprintf(`
		SELECT id, embedding <-> $1 AS distance
		FROM %s
		ORDER BY distance, id
		LIMIT $2`, x.table)

	rows, err := x.pool.Query(ctx, sql, pgvector.NewVector(query), k)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	defer rows.Close()

	out := make([]db.Neighbor, 0, k)
	for rows.Next() {
		var (
			id   int
			dist float64
		)
		if err := rows.Scan(&id, &dist); err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		out = append(out, db.Neighbor{ID: id, Distance: float32(dist * dist)})
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	for len(out) < k {
		out = append(out, db.Neighbor{ID: -1, Distance: math.MaxFloat32})
	}
	return out, nil
}

// Len reports the number of vectors added since the last Reset.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.n
}

// Dim reports the configured dimension.
func (x *Index) Dim() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

// Package flat is an in-memory exact nearest-neighbour index using squared L2 distance.
package flat

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/workvisa/internal/db"
)

// Compile-time check: Index implements db.VectorIndex.
var _ db.VectorIndex = (*Index)(nil)

// Index stores vectors row-major in one contiguous slice.
type Index struct {
	mu   sync.RWMutex
	dim  int
	n    int
	data []float32
}

// New creates an empty index with the given dimension.
func New(dim int) *Index {
	return &Index{dim: dim}
}

// Reset drops all vectors and sets a new dimension.
func (x *Index) Reset(_ context.Context, dim int) error {
	if dim <= 0 {
		return &db.Error{Op: db.OpReset, Err: fmt.Errorf("%w: dimension must be positive, got %d", db.ErrInvalidQuery, dim)}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.dim = dim
	x.n = 0
	x.data = nil
	return nil
}

// Add appends vectors in order; IDs continue from the current length.
func (x *Index) Add(_ context.Context, vectors [][]float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for i, v := range vectors {
		if len(v) != x.dim {
			return &db.Error{Op: db.OpInsert, Err: fmt.Errorf("%w: row %d has %d, index has %d", db.ErrDimMismatch, i, len(v), x.dim)}
		}
	}
	for _, v := range vectors {
		x.data = append(x.data, v...)
	}
	x.n += len(vectors)
	return nil
}

// Search returns k neighbours ordered by ascending distance, ties by lower ID.
// When k exceeds the stored count the tail is padded with ID -1.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]db.Neighbor, error) {
	if k <= 0 {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: k must be positive, got %d", db.ErrInvalidQuery, k)}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(query) != x.dim {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: query has %d, index has %d", db.ErrDimMismatch, len(query), x.dim)}
	}

	all := make([]db.Neighbor, x.n)
	for id := 0; id < x.n; id++ {
		row := x.data[id*x.dim : (id+1)*x.dim]
		all[id] = db.Neighbor{ID: id, Distance: squaredL2(query, row)}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Distance < all[j].Distance
	})

	out := make([]db.Neighbor, k)
	for i := range out {
		if i < len(all) {
			out[i] = all[i]
			continue
		}
		out[i] = db.Neighbor{ID: -1, Distance: math.MaxFloat32}
	}
	return out, nil
}

// Len reports the number of stored vectors.
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

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

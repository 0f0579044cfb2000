package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/workvisa/internal/db"
)

// Compile-time check: VectorIndex implements db.VectorIndex.
var _ db.VectorIndex = (*VectorIndex)(nil)

const (
	vectorField   = "embedding"
	distanceAlias = "distance"
)

// VectorIndex is an exact FLAT/L2 index on Redis Search (Redis 8 or Redis Stack).
// Each vector is a hash at <prefix>doc:<id>.
type VectorIndex struct {
	store     *Store
	indexName string
	keyPrefix string

	mu  sync.RWMutex
	dim int
	n   int
}

// NewVectorIndex creates an index handle. Nothing is sent until Reset.
func NewVectorIndex(s *Store, prefix string) *VectorIndex {
	return &VectorIndex{
		store:     s,
		indexName: prefix + "idx",
		keyPrefix: prefix + "doc:",
	}
}

// Reset drops the index together with its hashes and recreates it for dim.
func (x *VectorIndex) Reset(ctx context.Context, dim int) error {
	if dim <= 0 {
		return &db.Error{Op: db.OpReset, Err: fmt.Errorf("%w: dimension must be positive, got %d", db.ErrInvalidQuery, dim)}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	drop := x.store.b().Arbitrary("FT.DROPINDEX").Args(x.indexName, "DD").Build()
	if err := x.store.do(ctx, drop).Error(); err != nil && !isRedisErr(err, "unknown index name") {
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}

	create := x.store.b().Arbitrary("FT.CREATE").Args(createArgs(x.indexName, x.keyPrefix, dim)...).Build()
	if err := x.store.do(ctx, create).Error(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	x.dim = dim
	x.n = 0
	return nil
}

// Add stores vectors in one DoMulti round-trip; IDs continue from the current length.
func (x *VectorIndex) Add(ctx context.Context, vectors [][]float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for i, v := range vectors {
		if len(v) != x.dim {
			return &db.Error{Op: db.OpInsert, Err: fmt.Errorf("%w: row %d has %d, index has %d", db.ErrDimMismatch, i, len(v), x.dim)}
		}
	}
	if len(vectors) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(vectors))
	for i, v := range vectors {
		cmds[i] = x.store.b().Hset().Key(x.key(x.n+i)).FieldValue().
			FieldValue(vectorField, vectorToBytes(v)).
			Build()
	}
	for i, res := range x.store.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpInsert, Err: fmt.Errorf("row %d: %w", x.n+i, err)}
		}
	}

	x.n += len(vectors)
	return nil
}

// Search runs a KNN query and reports the server's L2 scores as distances.
// Ties are broken by lower ID; missing rows up to k are padded with ID -1.
func (x *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]db.Neighbor, error) {
	if k <= 0 {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: k must be positive, got %d", db.ErrInvalidQuery, k)}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(query) != x.dim {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: query has %d, index has %d", db.ErrDimMismatch, len(query), x.dim)}
	}

	var out []db.Neighbor
	if x.n > 0 {
		cmd := x.store.b().Arbitrary("FT.SEARCH").Args(x.searchArgs(query, k)...).Build()
		raw, err := x.store.do(ctx, cmd).ToArray()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		if out, err = x.parseNeighbors(raw); err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	for len(out) < k {
		out = append(out, db.Neighbor{ID: -1, Distance: math.MaxFloat32})
	}
	return out, nil
}

// Len reports the number of vectors added since the last Reset.
func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.n
}

// Dim reports the configured dimension.
func (x *VectorIndex) Dim() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

func (x *VectorIndex) key(id int) string {
	return x.keyPrefix + strconv.Itoa(id)
}

func (x *VectorIndex) searchArgs(query []float32, k int) []string {
	return []string{
		x.indexName,
		fmt.Sprintf("*=>[KNN %d @%s $BLOB AS %s]", k, vectorField, distanceAlias),
		"SORTBY", distanceAlias,
		"RETURN", "1", distanceAlias,
		"LIMIT", "0", strconv.Itoa(k),
		"PARAMS", "2", "BLOB", vectorToBytes(query),
		"DIALECT", "2",
	}
}

// parseNeighbors reads the 2-stride reply [total, key1, fields1, key2, fields2, ...].
func (x *VectorIndex) parseNeighbors(raw []rueidis.RedisMessage) ([]db.Neighbor, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	out := make([]db.Neighbor, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, fmt.Errorf("parse key: %w", err)
		}
		id, err := strconv.Atoi(strings.TrimPrefix(key, x.keyPrefix))
		if err != nil {
			return nil, fmt.Errorf("parse id from key %q: %w", key, err)
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			return nil, fmt.Errorf("parse fields of %q: %w", key, err)
		}
		dist, err := distanceField(fields)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}

		out = append(out, db.Neighbor{ID: id, Distance: dist})
	}
	return out, nil
}

func distanceField(fields []rueidis.RedisMessage) (float32, error) {
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil || name != distanceAlias {
			continue
		}
		val, err := fields[j+1].ToString()
		if err != nil {
			return 0, fmt.Errorf("parse distance: %w", err)
		}
		d, err := strconv.ParseFloat(val, 32)
		if err != nil {
			return 0, fmt.Errorf("parse distance %q: %w", val, err)
		}
		return float32(d), nil
	}
	return 0, fmt.Errorf("missing %s field", distanceAlias)
}

func createArgs(name, prefix string, dim int) []string {
	return []string{
		name,
		"ON", "HASH",
		"PREFIX", "1", prefix,
		"SCHEMA",
		vectorField, "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dim),
		"DISTANCE_METRIC", "L2",
	}
}

// vectorToBytes encodes v as little-endian FLOAT32, the layout Redis Search expects.
func vectorToBytes(v []float32) string {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return rueidis.BinaryString(b)
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}

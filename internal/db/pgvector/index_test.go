package pgvector

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/workvisa/internal/db"
)

// newTestIndex connects to WORKVISA_TEST_DATABASE_URL or skips.
func newTestIndex(t *testing.T) *Index {
	t.Helper()
	url := os.Getenv("WORKVISA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("WORKVISA_TEST_DATABASE_URL not set")
	}
	x, err := New(context.Background(), Config{ConnString: url, Table: "workvisa_test_documents"})
	require.NoError(t, err)
	t.Cleanup(x.Close)
	return x
}

func TestIndex_SearchMatchesFlatSemantics(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, x.Reset(ctx, 2))
	require.NoError(t, x.Add(ctx, [][]float32{{1, 0}, {-1, 0}, {5, 5}}))
	assert.Equal(t, 3, x.Len())

	got, err := x.Search(ctx, []float32{0, 0}, 4)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, 0, got[0].ID, "ties break by lower id")
	assert.Equal(t, 1, got[1].ID)
	assert.Equal(t, 2, got[2].ID)
	assert.Equal(t, -1, got[3].ID)
	assert.InDelta(t, 1.0, got[0].Distance, 1e-5, "distance is squared L2")
}

func TestIndex_ResetClearsRows(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, x.Reset(ctx, 2))
	require.NoError(t, x.Add(ctx, [][]float32{{1, 0}}))
	require.NoError(t, x.Reset(ctx, 3))

	got, err := x.Search(ctx, []float32{0, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, -1, got[0].ID)
}

func TestIndex_ValidationWithoutDatabase(t *testing.T) {
	x := &Index{dim: 2}

	_, err := x.Search(context.Background(), []float32{0, 0}, 0)
	assert.True(t, errors.Is(err, db.ErrInvalidQuery))

	_, err = x.Search(context.Background(), []float32{0}, 1)
	assert.True(t, errors.Is(err, db.ErrDimMismatch))

	err = x.Add(context.Background(), [][]float32{{1, 2, 3}})
	assert.True(t, errors.Is(err, db.ErrDimMismatch))

	assert.Error(t, x.Reset(context.Background(), -1))
}

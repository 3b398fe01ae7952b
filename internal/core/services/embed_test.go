package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// shapeEmbedder returns fixed vectors keyed by text.
type shapeEmbedder struct {
	hashEmbedder
	vectors map[string][]float32
}

func (e *shapeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vectors[text]
	}
	return out, nil
}

func TestEmbedBatches_Batching(t *testing.T) {
	embedder := newHashEmbedder()
	texts := []string{"one", "two", "three", "four", "five"}
	var calls [][2]int

	vectors, err := embedBatches(context.Background(), embedder, texts, 2, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})

	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	assert.Equal(t, 5, embeddedCount(vectors))
	assert.Equal(t, 3, embedder.batches)
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, calls)
}

func TestEmbedBatches_FailedItemsAreNil(t *testing.T) {
	embedder := newHashEmbedder()
	embedder.failText = func(text string) bool { return strings.HasPrefix(text, "bad") }

	vectors, err := embedBatches(context.Background(), embedder, []string{"good", "bad one", "fine"}, 16, nil)

	require.NoError(t, err)
	assert.NotNil(t, vectors[0])
	assert.Nil(t, vectors[1])
	assert.NotNil(t, vectors[2])
	assert.Equal(t, 2, embeddedCount(vectors))
}

func TestEmbedBatches_FailedBatchIsNil(t *testing.T) {
	embedder := newHashEmbedder()
	embedder.failBatch = true

	vectors, err := embedBatches(context.Background(), embedder, []string{"a", "b"}, 1, nil)

	require.NoError(t, err)
	assert.Zero(t, embeddedCount(vectors))
}

func TestEmbedBatches_UnusableVectors(t *testing.T) {
	embedder := &shapeEmbedder{vectors: map[string][]float32{
		"zero":  {0, 0},
		"empty": {},
		"ok":    {1, 0},
	}}

	vectors, err := embedBatches(context.Background(), embedder, []string{"zero", "empty", "ok", "missing"}, 16, nil)

	require.NoError(t, err)
	assert.Nil(t, vectors[0])
	assert.Nil(t, vectors[1])
	assert.Equal(t, []float32{1, 0}, vectors[2])
	assert.Nil(t, vectors[3])
}

func TestEmbedBatches_DimensionMismatch(t *testing.T) {
	embedder := &shapeEmbedder{vectors: map[string][]float32{
		"a": {1, 0},
		"b": {1, 0, 0},
	}}

	_, err := embedBatches(context.Background(), embedder, []string{"a", "b"}, 16, nil)

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbedBatches_Cancelled(t *testing.T) {
	embedder := newHashEmbedder()
	embedder.failBatch = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := embedBatches(ctx, embedder, []string{"a"}, 16, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

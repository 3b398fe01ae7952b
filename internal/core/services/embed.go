package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// DefaultBatchSize is the number of texts sent per embedding call.
// Batching bounds peak load; batches are issued one at a time.
const DefaultBatchSize = 16

// embedBatches embeds texts in fixed-size batches and returns one slot per text.
// Failed items, and vectors that are empty, all zero or non-finite, are nil.
// A failed batch leaves all its slots nil rather than failing the run.
//
// It returns an error only when the context is done or when two usable
// vectors disagree on length.
func embedBatches(
	ctx context.Context,
	svc driven.EmbeddingService,
	texts []string,
	batchSize int,
	onBatch func(done, total int),
) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	out := make([][]float32, len(texts))
	dims := 0
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		vectors, err := svc.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("Embedding batch %d-%d failed: %v", start, end, err)
			vectors = nil
		}

		for i := start; i < end; i++ {
			if i-start >= len(vectors) {
				break
			}
			v := vectors[i-start]
			if !domain.IsUsableVector(v) {
				continue
			}
			if dims == 0 {
				dims = len(v)
			} else if len(v) != dims {
				return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(v), dims)
			}
			out[i] = v
		}

		if onBatch != nil {
			onBatch(end, len(texts))
		}
	}

	return out, nil
}

// embeddedCount returns the number of non-nil slots.
func embeddedCount(vectors [][]float32) int {
	n := 0
	for _, v := range vectors {
		if v != nil {
			n++
		}
	}
	return n
}

package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// IndexService maintains and searches the vector index.
type IndexService interface {
	// Rebuild brings the index up to date with the corpus, re-embedding
	// only documents whose fingerprint changed.
	Rebuild(ctx context.Context, onProgress domain.ProgressFunc) (domain.RebuildResult, error)

	// Search embeds query and returns the best matching chunks.
	// Embedding failure yields an empty result, not an error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// SearchVector searches with an already computed query embedding.
	SearchVector(ctx context.Context, vector []float32, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// MultiSearch runs Search per query and merges the results.
	MultiSearch(ctx context.Context, queries []string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// Stats describes the persisted index.
	Stats(ctx context.Context) (domain.IndexStats, error)
}

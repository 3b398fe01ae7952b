package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// CompressionService builds and inspects the knowledge pack.
type CompressionService interface {
	// Compress runs the full pipeline and persists a new pack.
	// Nothing is persisted when it fails.
	Compress(ctx context.Context, onProgress domain.ProgressFunc) (*domain.KnowledgePack, error)

	// Pack returns the persisted pack, or domain.ErrNotFound.
	Pack(ctx context.Context) (*domain.KnowledgePack, error)

	// IsStale reports whether the corpus has changed since the pack was built.
	IsStale(ctx context.Context) (bool, error)
}

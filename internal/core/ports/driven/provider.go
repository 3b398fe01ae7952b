package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// DocumentProvider enumerates readable text documents under a corpus root.
// Entries it cannot read are returned as skipped, never as errors.
// An error means the corpus as a whole could not be enumerated.
type DocumentProvider interface {
	// Documents returns every readable document and every skipped entry.
	Documents(ctx context.Context) ([]domain.Document, []domain.SkippedDocument, error)

	// Root returns the corpus root this provider reads from.
	Root() string
}

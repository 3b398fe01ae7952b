package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// RetrievalService fuses compressed knowledge with raw search.
type RetrievalService interface {
	// Plan matches the query against compressed domains and sizes the raw budget.
	Plan(ctx context.Context, query string) (domain.RetrievalPlan, error)

	// Retrieve runs the raw search for plan and drops results redundant
	// with its matched domains.
	Retrieve(ctx context.Context, plan domain.RetrievalPlan) ([]domain.SearchResult, error)
}

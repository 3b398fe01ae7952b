package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Raw search budgets by mean domain match similarity.
const (
	BudgetStrong    = 5
	BudgetModerate  = 8
	BudgetWeak      = 12
	BudgetNoMatches = 15
)

// Similarity cut-offs for the budget tiers.
const (
	strongCoverage   = 0.6
	moderateCoverage = 0.45
)

// RetrievalService fuses compressed domain summaries with raw search.
type RetrievalService struct {
	embedder    driven.EmbeddingService
	compression driving.CompressionService
	index       driving.IndexService
	settings    domain.RetrievalSettings
}

// NewRetrievalService creates a new retrieval service.
// The embedder is optional (can be nil); without it plans carry no domain
// matches and retrieval is left to the index.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	compression driving.CompressionService,
	index driving.IndexService,
	settings domain.RetrievalSettings,
) *RetrievalService {
	defaults := domain.DefaultAppSettings().Retrieval
	if settings.TopDomains <= 0 {
		settings.TopDomains = defaults.TopDomains
	}
	if settings.RedundancyThreshold <= 0 {
		settings.RedundancyThreshold = defaults.RedundancyThreshold
	}
	return &RetrievalService{
		embedder:    embedder,
		compression: compression,
		index:       index,
		settings:    settings,
	}
}

// Plan embeds the query once, scores it against every cached domain
// centroid and sizes the raw budget from the best matches.
// A missing pack or a failed query embedding gives a plan with no matches.
func (s *RetrievalService) Plan(ctx context.Context, query string) (domain.RetrievalPlan, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.RetrievalPlan{}, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	plan := domain.RetrievalPlan{Query: query, DomainMatches: []domain.DomainMatch{}}

	if s.embedder != nil {
		vector, err := s.embedder.Embed(ctx, query)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.RetrievalPlan{}, ctxErr
			}
			logger.Warn("Query embedding failed: %v", err)
		case !domain.IsUsableVector(vector):
			logger.Warn("Query embedding is not usable")
		default:
			plan.QueryEmbedding = vector
		}
	}

	if plan.QueryEmbedding != nil {
		matches, err := s.matchDomains(ctx, plan.QueryEmbedding)
		if err != nil {
			return domain.RetrievalPlan{}, err
		}
		plan.DomainMatches = matches
	}

	plan.Budget = Budget(plan.DomainMatches)
	logger.Debug("Plan: %d domain matches, budget %d", len(plan.DomainMatches), plan.Budget)
	return plan, nil
}

// matchDomains returns the top domains by centroid similarity.
func (s *RetrievalService) matchDomains(ctx context.Context, vector []float32) ([]domain.DomainMatch, error) {
	matches := []domain.DomainMatch{}
	if s.compression == nil {
		return matches, nil
	}

	pack, err := s.compression.Pack(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("No knowledge pack, planning without domains")
			return matches, nil
		}
		return nil, fmt.Errorf("load knowledge pack: %w", err)
	}

	for _, d := range pack.Domains {
		if len(d.Centroid) != len(vector) {
			logger.Warn("Domain %q centroid has %d dimensions, query has %d; skipping",
				d.Label, len(d.Centroid), len(vector))
			continue
		}
		matches = append(matches, domain.DomainMatch{
			Label:      d.Label,
			Summary:    d.Summary,
			Facts:      d.Facts,
			Centroid:   d.Centroid,
			Similarity: domain.CosineSimilarity(vector, d.Centroid),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > s.settings.TopDomains {
		matches = matches[:s.settings.TopDomains]
	}
	return matches, nil
}

// Budget sizes the raw search from the mean similarity of the domain
// matches. Better coverage by compressed knowledge means fewer raw chunks.
func Budget(matches []domain.DomainMatch) int {
	if len(matches) == 0 {
		return BudgetNoMatches
	}
	var sum float64
	for _, m := range matches {
		sum += m.Similarity
	}
	mean := sum / float64(len(matches))
	switch {
	case mean >= strongCoverage:
		return BudgetStrong
	case mean >= moderateCoverage:
		return BudgetModerate
	default:
		return BudgetWeak
	}
}

// Retrieve searches the index with the plan's budget and, when domains
// matched, drops results that are redundant with any matched centroid.
// Results whose embedding fails are kept.
func (s *RetrievalService) Retrieve(ctx context.Context, plan domain.RetrievalPlan) ([]domain.SearchResult, error) {
	if s.index == nil || plan.Budget <= 0 {
		return []domain.SearchResult{}, nil
	}

	opts := domain.SearchOptions{TopK: plan.Budget, MinScore: s.settings.MinScore}
	var (
		results []domain.SearchResult
		err     error
	)
	if plan.QueryEmbedding != nil {
		results, err = s.index.SearchVector(ctx, plan.QueryEmbedding, opts)
	} else {
		results, err = s.index.Search(ctx, plan.Query, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	if len(plan.DomainMatches) == 0 || len(results) == 0 || s.embedder == nil {
		return results, nil
	}
	return s.dropRedundant(ctx, results, plan.DomainMatches), nil
}

// dropRedundant removes results at or above the redundancy threshold
// against any matched centroid.
func (s *RetrievalService) dropRedundant(
	ctx context.Context, results []domain.SearchResult, matches []domain.DomainMatch,
) []domain.SearchResult {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		logger.Warn("Redundancy check skipped, embedding failed: %v", err)
		return results
	}

	kept := make([]domain.SearchResult, 0, len(results))
	for i, r := range results {
		if i >= len(vectors) || !domain.IsUsableVector(vectors[i]) {
			kept = append(kept, r)
			continue
		}
		if s.redundant(vectors[i], matches) {
			logger.Debug("Dropping %s:%d, covered by a domain summary", r.SourcePath, r.StartLine)
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func (s *RetrievalService) redundant(vector []float32, matches []domain.DomainMatch) bool {
	for _, m := range matches {
		if len(m.Centroid) != len(vector) {
			continue
		}
		if domain.CosineSimilarity(vector, m.Centroid) >= s.settings.RedundancyThreshold {
			return true
		}
	}
	return false
}

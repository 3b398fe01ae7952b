package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	results     []domain.SearchResult
	err         error
	lastQuery   string
	lastQueries []string
	lastOpts    domain.SearchOptions
}

func (m *mockIndexService) Rebuild(_ context.Context, _ domain.ProgressFunc) (domain.RebuildResult, error) {
	return domain.RebuildResult{}, m.err
}

func (m *mockIndexService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockIndexService) SearchVector(_ context.Context, _ []float32, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockIndexService) MultiSearch(
	_ context.Context,
	queries []string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQueries = queries
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockIndexService) Stats(_ context.Context) (domain.IndexStats, error) {
	return domain.IndexStats{}, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	plan    domain.RetrievalPlan
	results []domain.SearchResult
	err     error
}

func (m *mockRetrievalService) Plan(_ context.Context, query string) (domain.RetrievalPlan, error) {
	plan := m.plan
	plan.Query = query
	return plan, m.err
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ domain.RetrievalPlan) ([]domain.SearchResult, error) {
	return m.results, m.err
}

// mockCompressionService is a mock implementation of driving.CompressionService.
type mockCompressionService struct {
	pack *domain.KnowledgePack
	err  error
}

func (m *mockCompressionService) Compress(_ context.Context, _ domain.ProgressFunc) (*domain.KnowledgePack, error) {
	return m.pack, m.err
}

func (m *mockCompressionService) Pack(_ context.Context) (*domain.KnowledgePack, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.pack == nil {
		return nil, domain.ErrNotFound
	}
	return m.pack, nil
}

func (m *mockCompressionService) IsStale(_ context.Context) (bool, error) {
	return false, m.err
}

// Verify interface compliance.
var (
	_ driving.IndexService       = (*mockIndexService)(nil)
	_ driving.RetrievalService   = (*mockRetrievalService)(nil)
	_ driving.CompressionService = (*mockCompressionService)(nil)
)

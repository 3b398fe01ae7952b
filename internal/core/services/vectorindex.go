package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
	"github.com/custodia-labs/sercha-kb/internal/postprocessors/chunker"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// indexVersion is the vector index record format. Records with any other
// version are ignored and rebuilt from scratch.
const indexVersion = 1

// IndexService maintains the persisted vector index and searches it.
// Rebuilds are serialised; searches read a cached snapshot, refreshed when
// the stored record's revision moves, and may run concurrently with each
// other and with a rebuild.
type IndexService struct {
	provider  driven.DocumentProvider
	chunker   *chunker.Processor
	embedder  driven.EmbeddingService
	store     driven.RecordStore
	batchSize int
	now       func() time.Time

	rebuildMu sync.Mutex

	mu       sync.RWMutex
	cache    *domain.IndexRecord
	cacheRev int64
}

// NewIndexService creates a new vector index service.
// The embedder is optional (can be nil); without it searches return nothing.
func NewIndexService(
	provider driven.DocumentProvider,
	embedder driven.EmbeddingService,
	store driven.RecordStore,
	batchSize int,
) *IndexService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &IndexService{
		provider:  provider,
		chunker:   chunker.New(),
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// SetChunker replaces the chunker, e.g. to change chunk sizes.
func (s *IndexService) SetChunker(c *chunker.Processor) {
	s.chunker = c
}

// Rebuild brings the index up to date with the corpus. Entries of
// unchanged documents are carried forward untouched; only new or modified
// documents are re-embedded. A document with any failed chunk embedding is
// left out of the snapshot so the next rebuild retries it.
func (s *IndexService) Rebuild(ctx context.Context, onProgress domain.ProgressFunc) (domain.RebuildResult, error) {
	if !s.rebuildMu.TryLock() {
		return domain.RebuildResult{}, domain.ErrRebuildInProgress
	}
	defer s.rebuildMu.Unlock()

	logger.Section("Index Rebuild")
	fail := func(err error) (domain.RebuildResult, error) {
		onProgress.Report(domain.Progress{Phase: domain.PhaseEmbedding, Detail: err.Error(), Err: err})
		return domain.RebuildResult{}, err
	}

	if s.embedder == nil {
		return fail(domain.ErrEmbeddingUnavailable)
	}

	onProgress.Report(domain.Progress{Phase: domain.PhaseEmbedding, Detail: "scanning corpus"})
	corpus, err := s.chunker.ChunkAll(ctx, s.provider)
	if err != nil {
		return fail(fmt.Errorf("scan corpus: %w", err))
	}

	prior := s.loadRecord(ctx)
	if prior == nil {
		logger.Debug("No usable index record, rebuilding from scratch")
		prior = &domain.IndexRecord{Fingerprints: map[string]string{}}
	}

	// Partition documents
	changed := make(map[string]bool)
	for path, fp := range corpus.Fingerprints {
		if prior.Fingerprints[path] != fp {
			changed[path] = true
		}
	}
	removedDocs := 0
	for path := range prior.Fingerprints {
		if _, ok := corpus.Fingerprints[path]; !ok {
			removedDocs++
		}
	}

	var carried []domain.IndexEntry
	for _, e := range prior.Entries {
		fp, present := corpus.Fingerprints[e.SourcePath]
		if present && !changed[e.SourcePath] && prior.Fingerprints[e.SourcePath] == fp {
			carried = append(carried, e)
		}
	}
	removed := len(prior.Entries) - len(carried)

	result := domain.RebuildResult{
		Removed:          removed,
		ChangedDocuments: len(changed),
		RemovedDocuments: removedDocs,
		Skipped:          corpus.Skipped,
	}
	logger.Debug("Index: %d changed, %d removed documents, %d entries carried", len(changed), removedDocs, len(carried))

	if len(changed) == 0 && removedDocs == 0 && prior.Version == indexVersion {
		result.Total = len(carried)
		onProgress.Report(domain.Progress{Phase: domain.PhaseDone, Percent: 100, Detail: "index up to date"})
		return result, nil
	}

	// Embed only chunks of changed documents
	var pending []domain.Chunk
	for _, c := range corpus.Chunks {
		if changed[c.SourcePath] {
			pending = append(pending, c)
		}
	}
	texts := make([]string, len(pending))
	for i, c := range pending {
		texts[i] = c.Text
	}
	vectors, err := embedBatches(ctx, s.embedder, texts, s.batchSize, func(done, total int) {
		onProgress.Report(domain.Progress{
			Phase:   domain.PhaseEmbedding,
			Percent: done * 100 / total,
			Detail:  fmt.Sprintf("%d/%d chunks", done, total),
		})
	})
	if err != nil {
		return fail(err)
	}
	if len(pending) > 0 && embeddedCount(vectors) == 0 {
		return fail(domain.ErrEmbeddingUnavailable)
	}

	dims := prior.Dimensions
	if len(carried) == 0 {
		dims = 0
	}
	failedDocs := make(map[string]bool)
	for i, v := range vectors {
		if v == nil {
			failedDocs[pending[i].SourcePath] = true
			continue
		}
		if dims == 0 {
			dims = len(v)
		} else if len(v) != dims {
			return fail(fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, len(v), dims))
		}
	}

	entries := carried
	for i, c := range pending {
		if failedDocs[c.SourcePath] {
			continue
		}
		entries = append(entries, domain.NewIndexEntry(c, vectors[i]))
		result.Added++
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SourcePath != entries[j].SourcePath {
			return entries[i].SourcePath < entries[j].SourcePath
		}
		return entries[i].StartLine < entries[j].StartLine
	})

	fingerprints := make(map[string]string, len(corpus.Fingerprints))
	for path, fp := range corpus.Fingerprints {
		if failedDocs[path] {
			logger.Warn("Some chunks of %s could not be embedded, will retry next rebuild", path)
			continue
		}
		fingerprints[path] = fp
	}

	record := &domain.IndexRecord{
		Version:      indexVersion,
		Model:        s.embedder.ModelName(),
		Dimensions:   dims,
		Fingerprints: fingerprints,
		Entries:      entries,
		UpdatedAt:    s.now().UTC(),
	}
	if err := saveRecord(ctx, s.store, driven.RecordVectorIndex, record); err != nil {
		return fail(err)
	}

	// Zero never matches a saved revision, so a failed read forces a reload.
	rev, _ := s.store.Revision(ctx, driven.RecordVectorIndex)
	s.setCache(record, rev)

	result.Total = len(entries)
	onProgress.Report(domain.Progress{
		Phase:   domain.PhaseDone,
		Percent: 100,
		Detail:  fmt.Sprintf("%d added, %d removed, %d total", result.Added, result.Removed, result.Total),
	})
	return result, nil
}

// loadRecord reads the persisted index. A record with another version or
// embedding model is treated as absent.
func (s *IndexService) loadRecord(ctx context.Context) *domain.IndexRecord {
	var record domain.IndexRecord
	if err := loadRecord(ctx, s.store, driven.RecordVectorIndex, &record); err != nil {
		return nil
	}
	if record.Version != indexVersion {
		logger.Warn("Index version %d is not %d, ignoring it", record.Version, indexVersion)
		return nil
	}
	if s.embedder != nil && record.Model != s.embedder.ModelName() {
		logger.Warn("Index was built with %q, not %q, ignoring it", record.Model, s.embedder.ModelName())
		return nil
	}
	if record.Fingerprints == nil {
		record.Fingerprints = map[string]string{}
	}
	return &record
}

// snapshot returns the persisted record, reloading it when the store's
// revision differs from the cached one. Another process may have rebuilt
// the index since the last read.
func (s *IndexService) snapshot(ctx context.Context) *domain.IndexRecord {
	rev, err := s.store.Revision(ctx, driven.RecordVectorIndex)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.setCache(nil, 0)
		return nil
	case err != nil:
		logger.Warn("Reading index revision failed, using cached index: %v", err)
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.cache
	}

	s.mu.RLock()
	cached, cachedRev := s.cache, s.cacheRev
	s.mu.RUnlock()
	if cached != nil && cachedRev == rev {
		return cached
	}

	// A save racing this load leaves the newer record under the older
	// revision, which only costs one extra reload.
	record := s.loadRecord(ctx)
	s.setCache(record, rev)
	return record
}

func (s *IndexService) setCache(record *domain.IndexRecord, rev int64) {
	s.mu.Lock()
	s.cache = record
	s.cacheRev = rev
	s.mu.Unlock()
}

// Search embeds query and returns the best matching chunks.
// Queries are best-effort: an embedding failure yields no results.
func (s *IndexService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Debug("Search: %q topK=%d minScore=%.2f domain=%q", query, opts.TopK, opts.MinScore, opts.DomainFilter)

	query = strings.TrimSpace(query)
	if query == "" || opts.TopK <= 0 {
		return []domain.SearchResult{}, nil
	}
	if s.embedder == nil {
		logger.Debug("No embedding service, returning no results")
		return []domain.SearchResult{}, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil || !domain.IsUsableVector(vector) {
		logger.Warn("Query embedding failed, returning no results: %v", err)
		return []domain.SearchResult{}, nil
	}

	return s.SearchVector(ctx, vector, opts)
}

// SearchVector scores every entry passing the domain filter against vector
// and returns the top results at or above MinScore, highest first.
func (s *IndexService) SearchVector(
	ctx context.Context, vector []float32, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if opts.TopK <= 0 || len(vector) == 0 {
		return []domain.SearchResult{}, nil
	}

	record := s.snapshot(ctx)
	if record == nil || len(record.Entries) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != record.Dimensions {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(vector), record.Dimensions)
	}

	results := make([]domain.SearchResult, 0, opts.TopK)
	for _, e := range record.Entries {
		if !opts.MatchesDomain(e.DomainTag) {
			continue
		}
		score := domain.CosineSimilarity(vector, e.Embedding)
		if score < opts.MinScore {
			continue
		}
		results = append(results, domain.SearchResult{
			Text:       e.Text,
			SourcePath: e.SourcePath,
			Heading:    e.Heading,
			DomainTag:  e.DomainTag,
			Score:      score,
			StartLine:  e.StartLine,
		})
	}

	return topResults(results, opts.TopK), nil
}

// MultiSearch runs Search for each distinct query with a per-query limit
// enlarged by half, merges hits on (path, start line) keeping the best
// score, and returns the global top results.
func (s *IndexService) MultiSearch(
	ctx context.Context, queries []string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if opts.TopK <= 0 {
		return []domain.SearchResult{}, nil
	}

	type key struct {
		path string
		line int
	}
	perQuery := opts
	perQuery.TopK = opts.TopK + (opts.TopK+1)/2

	merged := make(map[key]domain.SearchResult)
	seen := make(map[string]struct{})
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if _, dup := seen[q]; dup || q == "" {
			continue
		}
		seen[q] = struct{}{}

		hits, err := s.Search(ctx, q, perQuery)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", q, err)
		}
		for _, h := range hits {
			k := key{h.SourcePath, h.StartLine}
			if prev, ok := merged[k]; !ok || h.Score > prev.Score {
				merged[k] = h
			}
		}
	}

	results := make([]domain.SearchResult, 0, len(merged))
	for _, r := range merged {
		results = append(results, r)
	}
	return topResults(results, opts.TopK), nil
}

// Stats describes the persisted index. A missing index has zero stats.
func (s *IndexService) Stats(ctx context.Context) (domain.IndexStats, error) {
	record := s.snapshot(ctx)
	if record == nil {
		return domain.IndexStats{}, nil
	}
	return domain.IndexStats{
		Entries:    len(record.Entries),
		Documents:  len(record.Fingerprints),
		Dimensions: record.Dimensions,
		Model:      record.Model,
		UpdatedAt:  record.UpdatedAt,
	}, nil
}

// topResults sorts by score descending, then path and line, and truncates.
func topResults(results []domain.SearchResult, k int) []domain.SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].SourcePath != results[j].SourcePath {
			return results[i].SourcePath < results[j].SourcePath
		}
		return results[i].StartLine < results[j].StartLine
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

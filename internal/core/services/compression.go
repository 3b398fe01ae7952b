package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-kb/internal/analysis/cluster"
	"github.com/custodia-labs/sercha-kb/internal/analysis/dedup"
	"github.com/custodia-labs/sercha-kb/internal/analysis/facts"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
	"github.com/custodia-labs/sercha-kb/internal/postprocessors/chunker"
)

// Ensure CompressionService implements the interface.
var _ driving.CompressionService = (*CompressionService)(nil)

// packVersion is the knowledge pack record format.
const packVersion = 1

// Token budgets for completion calls.
const (
	summaryMaxTokens  = 400
	overviewMaxTokens = 600
)

// Progress checkpoints for each phase.
var phaseStart = map[domain.Phase]int{
	domain.PhaseEmbedding:   0,
	domain.PhaseDedup:       35,
	domain.PhaseClustering:  40,
	domain.PhaseSummarizing: 50,
	domain.PhaseOverview:    90,
	domain.PhaseDone:        100,
}

// defaultClusterSummaryPrompt is the fallback prompt when no PromptStore is configured.
const defaultClusterSummaryPrompt = `You compress notes into a knowledge base.
The following excerpts all belong to the topic %q.
Write a dense summary of 3 to 5 sentences covering the key facts, decisions and open items.
Return ONLY the summary.`

// defaultOverviewPrompt is the fallback prompt when no PromptStore is configured.
const defaultOverviewPrompt = `You compress notes into a knowledge base.
Given the topic summaries below, write a short overview of the whole knowledge base:
what it covers and how the topics relate. Return ONLY the overview.`

// CompressionService turns the corpus into a persisted knowledge pack.
type CompressionService struct {
	provider    driven.DocumentProvider
	chunker     *chunker.Processor
	embedder    driven.EmbeddingService
	llm         driven.LLMService
	store       driven.RecordStore
	promptStore driven.PromptStore
	settings    domain.CompressionSettings
	strategy    SummaryStrategy
	now         func() time.Time
}

// NewCompressionService creates a new compression service.
// The embedder and llm parameters are optional (can be nil); without an
// embedder Compress fails, without an llm summaries use local fallbacks.
func NewCompressionService(
	provider driven.DocumentProvider,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	store driven.RecordStore,
	settings domain.CompressionSettings,
) *CompressionService {
	return &CompressionService{
		provider: provider,
		chunker:  chunker.New(),
		embedder: embedder,
		llm:      llm,
		store:    store,
		settings: settings,
		strategy: StrategyFor(settings.SummaryConcurrency),
		now:      time.Now,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the service uses hardcoded default prompts.
func (s *CompressionService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// SetStrategy replaces the summary scheduling strategy.
func (s *CompressionService) SetStrategy(strategy SummaryStrategy) {
	s.strategy = strategy
}

// SetChunker replaces the chunker, e.g. to change chunk sizes.
func (s *CompressionService) SetChunker(c *chunker.Processor) {
	s.chunker = c
}

// clusterGroup is one non-empty cluster ready for summarising.
type clusterGroup struct {
	label      string
	chunks     []domain.Chunk
	embeddings [][]float32
}

// Compress runs embedding, dedup, clustering, summarizing and overview in
// order and persists a brand-new pack. The context is checked between
// phases; any failure persists nothing.
func (s *CompressionService) Compress(
	ctx context.Context, onProgress domain.ProgressFunc,
) (*domain.KnowledgePack, error) {
	logger.Section("Compression")

	var progressMu sync.Mutex
	report := func(phase domain.Phase, percent int, detail string) {
		progressMu.Lock()
		defer progressMu.Unlock()
		logger.Phase(string(phase), percent, detail)
		onProgress.Report(domain.Progress{Phase: phase, Percent: percent, Detail: detail})
	}
	fail := func(phase domain.Phase, err error) (*domain.KnowledgePack, error) {
		progressMu.Lock()
		defer progressMu.Unlock()
		logger.Warn("Compression failed during %s: %v", phase, err)
		onProgress.Report(domain.Progress{Phase: phase, Percent: phaseStart[phase], Detail: err.Error(), Err: err})
		return nil, err
	}

	// Embedding
	report(domain.PhaseEmbedding, 0, "scanning corpus")
	if s.embedder == nil {
		return fail(domain.PhaseEmbedding, domain.ErrEmbeddingUnavailable)
	}
	corpus, err := s.chunker.ChunkAll(ctx, s.provider)
	if err != nil {
		return fail(domain.PhaseEmbedding, fmt.Errorf("scan corpus: %w", err))
	}
	for _, skipped := range corpus.Skipped {
		logger.Debug("Skipped %s: %s", skipped.Path, skipped.Reason)
	}
	if len(corpus.Chunks) == 0 {
		return fail(domain.PhaseEmbedding, domain.ErrNoCorpus)
	}
	logger.Debug("Corpus: %d documents, %d chunks, %d skipped",
		corpus.Documents, len(corpus.Chunks), len(corpus.Skipped))

	texts := make([]string, len(corpus.Chunks))
	for i, c := range corpus.Chunks {
		texts[i] = c.Text
	}
	vectors, err := embedBatches(ctx, s.embedder, texts, s.settings.BatchSize, func(done, total int) {
		report(domain.PhaseEmbedding, done*phaseStart[domain.PhaseDedup]/total, fmt.Sprintf("%d/%d chunks", done, total))
	})
	if err != nil {
		return fail(domain.PhaseEmbedding, err)
	}

	chunks := make([]domain.Chunk, 0, len(vectors))
	embeddings := make([][]float32, 0, len(vectors))
	for i, v := range vectors {
		if v != nil {
			chunks = append(chunks, corpus.Chunks[i])
			embeddings = append(embeddings, v)
		}
	}
	if len(chunks) == 0 {
		return fail(domain.PhaseEmbedding, domain.ErrEmbeddingUnavailable)
	}
	if dropped := len(corpus.Chunks) - len(chunks); dropped > 0 {
		logger.Warn("%d of %d chunks could not be embedded", dropped, len(corpus.Chunks))
	}
	if err := ctx.Err(); err != nil {
		return fail(domain.PhaseEmbedding, err)
	}

	// Dedup
	report(domain.PhaseDedup, phaseStart[domain.PhaseDedup], fmt.Sprintf("%d chunks", len(chunks)))
	threshold := s.settings.DedupThreshold
	if threshold <= 0 {
		threshold = dedup.DefaultThreshold
	}
	deduped := dedup.Dedupe(chunks, embeddings, threshold)
	logger.Debug("Dedup removed %d chunks, %d remain", deduped.Removed, len(deduped.Chunks))
	if err := ctx.Err(); err != nil {
		return fail(domain.PhaseDedup, err)
	}

	// Clustering
	n := len(deduped.Chunks)
	maxK := min(s.settings.MaxK, n/2)
	report(domain.PhaseClustering, phaseStart[domain.PhaseClustering],
		fmt.Sprintf("choosing k in [%d, %d] for %d chunks", s.settings.MinK, maxK, n))
	selection, err := cluster.SelectOptimalK(deduped.Embeddings, s.settings.MinK, maxK, s.maxIterations(), s.rng())
	if err != nil {
		return fail(domain.PhaseClustering, err)
	}
	groups := s.group(deduped, selection)
	logger.Debug("Selected k=%d (silhouette %.3f), %d non-empty clusters", selection.K, selection.Score, len(groups))
	if err := ctx.Err(); err != nil {
		return fail(domain.PhaseClustering, err)
	}

	// Summarizing
	report(domain.PhaseSummarizing, phaseStart[domain.PhaseSummarizing], fmt.Sprintf("%d clusters", len(groups)))
	domains := make([]domain.DomainSummary, len(groups))
	var doneMu sync.Mutex
	done := 0
	span := phaseStart[domain.PhaseOverview] - phaseStart[domain.PhaseSummarizing]
	err = s.strategy.Run(ctx, len(groups), func(ctx context.Context, i int) {
		domains[i] = s.summarize(ctx, groups[i])

		doneMu.Lock()
		done++
		d := done
		doneMu.Unlock()
		report(domain.PhaseSummarizing, phaseStart[domain.PhaseSummarizing]+d*span/len(groups),
			fmt.Sprintf("%d/%d %s", d, len(groups), groups[i].label))
	})
	if err != nil {
		return fail(domain.PhaseSummarizing, err)
	}
	if err := ctx.Err(); err != nil {
		return fail(domain.PhaseSummarizing, err)
	}

	// Overview
	report(domain.PhaseOverview, phaseStart[domain.PhaseOverview], "writing overview")
	overview := s.overview(ctx, domains, n)

	pack := &domain.KnowledgePack{
		ID:           uuid.NewString(),
		Version:      packVersion,
		Overview:     overview,
		Domains:      domains,
		Fingerprints: corpus.Fingerprints,
		Stats: domain.PackStats{
			Documents:  corpus.Documents,
			Skipped:    len(corpus.Skipped),
			Chunks:     len(corpus.Chunks),
			Embedded:   len(chunks),
			Duplicates: deduped.Removed,
			Clusters:   len(domains),
			Silhouette: selection.Score,
		},
		CreatedAt: s.now().UTC(),
	}
	if err := saveRecord(ctx, s.store, driven.RecordKnowledgePack, pack); err != nil {
		return fail(domain.PhaseOverview, err)
	}

	report(domain.PhaseDone, 100, fmt.Sprintf("%d domains from %d chunks", len(domains), n))
	return pack, nil
}

// group splits the deduplicated chunks by cluster, skipping empty clusters.
func (s *CompressionService) group(deduped dedup.Result, selection cluster.Selection) []clusterGroup {
	members := make([]cluster.Member, len(deduped.Chunks))
	for i, c := range deduped.Chunks {
		members[i] = cluster.Member{Text: c.Text, DomainTag: c.DomainTag}
	}
	labels := cluster.LabelClusters(members, selection.Result.Assignments, selection.K)

	all := make([]clusterGroup, selection.K)
	for i, c := range selection.Result.Assignments {
		all[c].chunks = append(all[c].chunks, deduped.Chunks[i])
		all[c].embeddings = append(all[c].embeddings, deduped.Embeddings[i])
	}

	groups := make([]clusterGroup, 0, selection.K)
	for c, g := range all {
		if len(g.chunks) == 0 {
			continue
		}
		g.label = labels[c]
		groups = append(groups, g)
	}
	return groups
}

// summarize builds the domain summary for one cluster. Completion failures
// fall back to the label; missing facts fall back to member headings.
func (s *CompressionService) summarize(ctx context.Context, g clusterGroup) domain.DomainSummary {
	texts := make([]string, len(g.chunks))
	for i, c := range g.chunks {
		texts[i] = c.Text
	}

	summary := g.label
	if s.llm != nil {
		reply, err := s.llm.Complete(ctx, driven.CompletionRequest{
			SystemPrompt: fmt.Sprintf(s.loadPrompt(driven.PromptClusterSummary, defaultClusterSummaryPrompt), g.label),
			UserPrompt:   s.clusterInput(g.chunks),
			MaxTokens:    summaryMaxTokens,
		})
		switch {
		case err != nil:
			logger.Warn("Summary for %q failed, using label: %v", g.label, err)
		case strings.TrimSpace(reply) == "":
			logger.Warn("Summary for %q was empty, using label", g.label)
		default:
			summary = strings.TrimSpace(reply)
		}
	}

	extracted := facts.Extract(texts, domain.MaxFactsPerDomain)
	if len(extracted) == 0 {
		extracted = headings(g.chunks, domain.MaxFactsPerDomain)
	}

	return domain.DomainSummary{
		Label:       g.label,
		Summary:     summary,
		Facts:       extracted,
		Centroid:    domain.Mean(g.embeddings),
		MemberCount: len(g.chunks),
		DomainTags:  domainTags(g.chunks),
	}
}

// clusterInput concatenates "[domain/heading] text" for each member,
// truncated to MaxSummaryInput runes.
func (s *CompressionService) clusterInput(chunks []domain.Chunk) string {
	limit := s.settings.MaxSummaryInput
	var sb strings.Builder
	size := 0
	for _, c := range chunks {
		entry := fmt.Sprintf("[%s/%s] %s\n\n", c.DomainTag, c.Heading, c.Text)
		n := utf8.RuneCountInString(entry)
		if limit > 0 && size+n > limit {
			if remaining := limit - size; remaining > 0 {
				sb.WriteString(string([]rune(entry)[:remaining]))
			}
			break
		}
		sb.WriteString(entry)
		size += n
	}
	return strings.TrimSpace(sb.String())
}

// overview produces the global summary, falling back to a one-line template.
func (s *CompressionService) overview(ctx context.Context, domains []domain.DomainSummary, chunks int) string {
	fallback := fmt.Sprintf("Knowledge base with %d clusters covering %d source chunks.", len(domains), chunks)
	if s.llm == nil {
		return fallback
	}

	var sb strings.Builder
	for _, d := range domains {
		fmt.Fprintf(&sb, "%s: %s\n", d.Label, d.Summary)
	}
	reply, err := s.llm.Complete(ctx, driven.CompletionRequest{
		SystemPrompt: s.loadPrompt(driven.PromptOverview, defaultOverviewPrompt),
		UserPrompt:   sb.String(),
		MaxTokens:    overviewMaxTokens,
	})
	if err != nil {
		logger.Warn("Overview failed, using template: %v", err)
		return fallback
	}
	if reply = strings.TrimSpace(reply); reply == "" {
		return fallback
	}
	return reply
}

// Pack returns the persisted knowledge pack.
// A missing, unreadable or outdated record is reported as domain.ErrNotFound.
func (s *CompressionService) Pack(ctx context.Context) (*domain.KnowledgePack, error) {
	var pack domain.KnowledgePack
	if err := loadRecord(ctx, s.store, driven.RecordKnowledgePack, &pack); err != nil {
		return nil, err
	}
	if pack.Version != packVersion {
		logger.Warn("Knowledge pack version %d is not %d, ignoring it", pack.Version, packVersion)
		return nil, domain.ErrNotFound
	}
	return &pack, nil
}

// IsStale reports whether the corpus fingerprints differ from the pack's
// snapshot. An unreadable or empty corpus is treated as not stale; a
// non-empty corpus with no pack is stale.
func (s *CompressionService) IsStale(ctx context.Context) (bool, error) {
	current, err := s.chunker.Fingerprints(ctx, s.provider)
	if err != nil {
		logger.Warn("Staleness check could not read corpus: %v", err)
		return false, nil
	}
	if len(current) == 0 {
		return false, nil
	}

	pack, err := s.Pack(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	return !domain.SameFingerprints(pack.Fingerprints, current), nil
}

func (s *CompressionService) loadPrompt(name, fallback string) string {
	if s.promptStore == nil {
		return fallback
	}
	prompt, err := s.promptStore.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}

func (s *CompressionService) maxIterations() int {
	if s.settings.MaxIterations <= 0 {
		return cluster.DefaultMaxIterations
	}
	return s.settings.MaxIterations
}

// rng returns a generator seeded from settings, or from the clock when unset.
func (s *CompressionService) rng() *rand.Rand {
	seed := s.settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func headings(chunks []domain.Chunk, limit int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range chunks {
		if _, ok := seen[c.Heading]; ok || c.Heading == "" {
			continue
		}
		seen[c.Heading] = struct{}{}
		out = append(out, c.Heading)
		if len(out) == limit {
			break
		}
	}
	return out
}

func domainTags(chunks []domain.Chunk) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, c := range chunks {
		if _, ok := seen[c.DomainTag]; ok {
			continue
		}
		seen[c.DomainTag] = struct{}{}
		tags = append(tags, c.DomainTag)
	}
	sort.Strings(tags)
	return tags
}

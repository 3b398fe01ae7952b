package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

type mockCompressionService struct {
	pack          *domain.KnowledgePack
	stale         bool
	err           error
	compressCalls int
}

func (m *mockCompressionService) Compress(_ context.Context, onProgress domain.ProgressFunc) (*domain.KnowledgePack, error) {
	m.compressCalls++
	onProgress.Report(domain.Progress{Phase: domain.PhaseEmbedding, Percent: 10, Detail: "embedding chunks"})
	if m.err != nil {
		return nil, m.err
	}
	onProgress.Report(domain.Progress{Phase: domain.PhaseDone, Percent: 100})
	return m.pack, nil
}

func (m *mockCompressionService) Pack(_ context.Context) (*domain.KnowledgePack, error) {
	if m.pack == nil {
		return nil, domain.ErrNotFound
	}
	return m.pack, nil
}

func (m *mockCompressionService) IsStale(_ context.Context) (bool, error) {
	return m.stale, nil
}

type mockIndexService struct {
	results     []domain.SearchResult
	rebuild     domain.RebuildResult
	stats       domain.IndexStats
	err         error
	lastQuery   string
	lastQueries []string
	lastOpts    domain.SearchOptions
}

func (m *mockIndexService) Rebuild(_ context.Context, onProgress domain.ProgressFunc) (domain.RebuildResult, error) {
	onProgress.Report(domain.Progress{Phase: domain.PhaseEmbedding, Percent: 50, Detail: "1/2 documents"})
	return m.rebuild, m.err
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

func (m *mockIndexService) MultiSearch(_ context.Context, queries []string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastQueries = queries
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockIndexService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

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

type mockSettingsService struct {
	values      map[string]string
	keys        []string
	setErr      error
	validateErr error

	embeddingProvider domain.AIProvider
	embeddingModel    string
	embeddingKey      string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		keys: []string{"corpus.root", "embedding.provider", "embedding.api_key", "compression.max_k"},
		values: map[string]string{
			"corpus.root":        "/notes",
			"embedding.provider": "ollama",
			"embedding.api_key":  "",
			"compression.max_k":  "8",
		},
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := domain.DefaultAppSettings()
	return &s, nil
}

func (m *mockSettingsService) Save(_ *domain.AppSettings) error { return nil }

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string { return m.keys }

func (m *mockSettingsService) Value(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrInvalidInput
	}
	return v, nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embeddingProvider = provider
	m.embeddingModel = model
	m.embeddingKey = apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(_ domain.AIProvider, _, _ string) error { return nil }

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.validateErr }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.validateErr }

type mockResultActionService struct {
	opened *domain.SearchResult
	copied *domain.SearchResult
}

func (m *mockResultActionService) CopyToClipboard(_ context.Context, r *domain.SearchResult) error {
	m.copied = r
	return nil
}

func (m *mockResultActionService) OpenDocument(_ context.Context, r *domain.SearchResult) error {
	m.opened = r
	return nil
}

func (m *mockResultActionService) Path(r *domain.SearchResult) (string, error) {
	return "/notes/" + r.SourcePath, nil
}

type mockTaskHistory struct {
	recorded []domain.TaskResult
	history  map[string][]domain.TaskResult
	pruned   int
}

func (m *mockTaskHistory) RecordResult(_ context.Context, r *domain.TaskResult) error {
	m.recorded = append(m.recorded, *r)
	return nil
}

func (m *mockTaskHistory) History(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	runs := m.history[taskID]
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *mockTaskHistory) Prune(_ context.Context, keep int) error {
	m.pruned = keep
	return nil
}

// mockScheduler reports one successful run per task and returns.
type mockScheduler struct {
	config   domain.SchedulerConfig
	onResult func(domain.TaskResult)
}

func (m *mockScheduler) Start(_ context.Context) error {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.onResult(domain.TaskResult{
		TaskID: domain.TaskIDIndexRebuild, StartedAt: now, EndedAt: now.Add(time.Second),
		Success: true, ItemsProcessed: 12,
	})
	if m.config.Compress {
		m.onResult(domain.TaskResult{
			TaskID: domain.TaskIDCompression, StartedAt: now, EndedAt: now, Error: "llm down",
		})
	}
	return context.Canceled
}

func (m *mockScheduler) Stop() error { return nil }

func (m *mockScheduler) Refresh(_ context.Context) {}

func (m *mockScheduler) OnResult(fn func(domain.TaskResult)) { m.onResult = fn }

var (
	_ driving.CompressionService  = (*mockCompressionService)(nil)
	_ driving.IndexService        = (*mockIndexService)(nil)
	_ driving.RetrievalService    = (*mockRetrievalService)(nil)
	_ driving.SettingsService     = (*mockSettingsService)(nil)
	_ driving.ResultActionService = (*mockResultActionService)(nil)
	_ driving.Scheduler           = (*mockScheduler)(nil)
	_ driven.TaskHistoryStore     = (*mockTaskHistory)(nil)
)

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	compression *mockCompressionService
	index       *mockIndexService
	retrieval   *mockRetrievalService
	settings    *mockSettingsService
	actions     *mockResultActionService
	history     *mockTaskHistory
	scheduler   *mockScheduler
}

func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{
		compression: &mockCompressionService{},
		index:       &mockIndexService{},
		retrieval:   &mockRetrievalService{},
		settings:    newMockSettingsService(),
		actions:     &mockResultActionService{},
		history:     &mockTaskHistory{history: map[string][]domain.TaskResult{}},
	}
	SetServices(&Services{
		Compression:  ts.compression,
		Index:        ts.index,
		Retrieval:    ts.retrieval,
		Settings:     ts.settings,
		ResultAction: ts.actions,
		History:      ts.history,
		NewScheduler: func(cfg domain.SchedulerConfig) driving.Scheduler {
			ts.scheduler = &mockScheduler{config: cfg}
			return ts.scheduler
		},
	})
	t.Cleanup(func() {
		SetServices(nil)
		ready = false
	})
	return ts
}

// executeCommand runs the root command with args and returns its output.
// Flags are reset first so values do not leak between tests.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

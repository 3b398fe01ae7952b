package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyCorpusRoot       = "corpus.root"
	keyCorpusExtensions = "corpus.extensions"

	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedRateLimit = "embedding.rate_limit"

	keyLLMProvider = "llm.provider"
	keyLLMModel    = "llm.model"
	keyLLMBaseURL  = "llm.base_url"
	keyLLMAPIKey   = "llm.api_key"

	keyDedupThreshold     = "compression.dedup_threshold"
	keyMinK               = "compression.min_k"
	keyMaxK               = "compression.max_k"
	keyMaxIterations      = "compression.max_iterations"
	keyBatchSize          = "compression.batch_size"
	keySummaryConcurrency = "compression.summary_concurrency"
	keySeed               = "compression.seed"
	keyMaxSummaryInput    = "compression.max_summary_input"

	keyTopDomains          = "retrieval.top_domains"
	keyRedundancyThreshold = "retrieval.redundancy_threshold"
	keyMinScore            = "retrieval.min_score"
	keyTopK                = "retrieval.top_k"
)

// settingKind is how a key's value is parsed and stored.
type settingKind int

const (
	kindString settingKind = iota
	kindList
	kindInt
	kindFloat
	kindProvider
)

type settingKey struct {
	key  string
	kind settingKind
}

// settingKeys lists every supported key in display order.
var settingKeys = []settingKey{
	{keyCorpusRoot, kindString},
	{keyCorpusExtensions, kindList},
	{keyEmbedProvider, kindProvider},
	{keyEmbedModel, kindString},
	{keyEmbedBaseURL, kindString},
	{keyEmbedAPIKey, kindString},
	{keyEmbedRateLimit, kindFloat},
	{keyLLMProvider, kindProvider},
	{keyLLMModel, kindString},
	{keyLLMBaseURL, kindString},
	{keyLLMAPIKey, kindString},
	{keyDedupThreshold, kindFloat},
	{keyMinK, kindInt},
	{keyMaxK, kindInt},
	{keyMaxIterations, kindInt},
	{keyBatchSize, kindInt},
	{keySummaryConcurrency, kindInt},
	{keySeed, kindInt},
	{keyMaxSummaryInput, kindInt},
	{keyTopDomains, kindInt},
	{keyRedundancyThreshold, kindFloat},
	{keyMinScore, kindFloat},
	{keyTopK, kindInt},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Corpus: domain.CorpusSettings{
			Root:       s.getString(keyCorpusRoot, defaults.Corpus.Root),
			Extensions: s.getStringSlice(keyCorpusExtensions, defaults.Corpus.Extensions),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:     s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:    s.configStore.GetString(keyEmbedAPIKey),
			RateLimit: s.configStore.GetFloat(keyEmbedRateLimit),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Compression: domain.CompressionSettings{
			DedupThreshold:     s.getFloat(keyDedupThreshold, defaults.Compression.DedupThreshold),
			MinK:               s.getInt(keyMinK, defaults.Compression.MinK),
			MaxK:               s.getInt(keyMaxK, defaults.Compression.MaxK),
			MaxIterations:      s.getInt(keyMaxIterations, defaults.Compression.MaxIterations),
			BatchSize:          s.getInt(keyBatchSize, defaults.Compression.BatchSize),
			SummaryConcurrency: s.getInt(keySummaryConcurrency, defaults.Compression.SummaryConcurrency),
			Seed:               int64(s.configStore.GetInt(keySeed)),
			MaxSummaryInput:    s.getInt(keyMaxSummaryInput, defaults.Compression.MaxSummaryInput),
		},
		Retrieval: domain.RetrievalSettings{
			TopDomains:          s.getInt(keyTopDomains, defaults.Retrieval.TopDomains),
			RedundancyThreshold: s.getFloat(keyRedundancyThreshold, defaults.Retrieval.RedundancyThreshold),
			MinScore:            s.getFloat(keyMinScore, defaults.Retrieval.MinScore),
			TopK:                s.getInt(keyTopK, defaults.Retrieval.TopK),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyCorpusRoot, settings.Corpus.Root},
		{keyCorpusExtensions, settings.Corpus.Extensions},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedRateLimit, settings.Embedding.RateLimit},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyDedupThreshold, settings.Compression.DedupThreshold},
		{keyMinK, settings.Compression.MinK},
		{keyMaxK, settings.Compression.MaxK},
		{keyMaxIterations, settings.Compression.MaxIterations},
		{keyBatchSize, settings.Compression.BatchSize},
		{keySummaryConcurrency, settings.Compression.SummaryConcurrency},
		{keySeed, settings.Compression.Seed},
		{keyMaxSummaryInput, settings.Compression.MaxSummaryInput},
		{keyTopDomains, settings.Retrieval.TopDomains},
		{keyRedundancyThreshold, settings.Retrieval.RedundancyThreshold},
		{keyMinScore, settings.Retrieval.MinScore},
		{keyTopK, settings.Retrieval.TopK},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when present so a save never erases them.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// Keys returns every supported dotted key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.key
	}
	return keys
}

// Set parses value for key and persists it. The resulting settings must
// still validate; otherwise nothing is written.
func (s *SettingsService) Set(key, value string) error {
	idx := slices.IndexFunc(settingKeys, func(k settingKey) bool { return k.key == key })
	if idx < 0 {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch settingKeys[idx].kind {
	case kindString:
		parsed = strings.TrimSpace(value)
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		parsed = items
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		// Zero reads back as the default, so only the seed may be zero.
		if n < 0 || n == 0 && key != keySeed {
			return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case kindProvider:
		provider := domain.AIProvider(strings.TrimSpace(value))
		if provider != "" && !provider.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, value)
		}
		parsed = provider.String()
	}

	previous, existed := s.configStore.Get(key)
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if err := s.Validate(); err != nil {
		var restore any = "" // read back as the default
		if existed {
			restore = previous
		}
		_ = s.configStore.Set(key, restore)
		return err
	}
	return nil
}

// Value returns the effective value of key, defaults included.
// API keys are masked.
func (s *SettingsService) Value(key string) (string, error) {
	settings, err := s.Get()
	if err != nil {
		return "", err
	}

	switch key {
	case keyCorpusRoot:
		return settings.Corpus.Root, nil
	case keyCorpusExtensions:
		return strings.Join(settings.Corpus.Extensions, ","), nil
	case keyEmbedProvider:
		return settings.Embedding.Provider.String(), nil
	case keyEmbedModel:
		return settings.Embedding.Model, nil
	case keyEmbedBaseURL:
		return settings.Embedding.BaseURL, nil
	case keyEmbedAPIKey:
		return mask(settings.Embedding.APIKey), nil
	case keyEmbedRateLimit:
		return formatFloat(settings.Embedding.RateLimit), nil
	case keyLLMProvider:
		return settings.LLM.Provider.String(), nil
	case keyLLMModel:
		return settings.LLM.Model, nil
	case keyLLMBaseURL:
		return settings.LLM.BaseURL, nil
	case keyLLMAPIKey:
		return mask(settings.LLM.APIKey), nil
	case keyDedupThreshold:
		return formatFloat(settings.Compression.DedupThreshold), nil
	case keyMinK:
		return strconv.Itoa(settings.Compression.MinK), nil
	case keyMaxK:
		return strconv.Itoa(settings.Compression.MaxK), nil
	case keyMaxIterations:
		return strconv.Itoa(settings.Compression.MaxIterations), nil
	case keyBatchSize:
		return strconv.Itoa(settings.Compression.BatchSize), nil
	case keySummaryConcurrency:
		return strconv.Itoa(settings.Compression.SummaryConcurrency), nil
	case keySeed:
		return strconv.FormatInt(settings.Compression.Seed, 10), nil
	case keyMaxSummaryInput:
		return strconv.Itoa(settings.Compression.MaxSummaryInput), nil
	case keyTopDomains:
		return strconv.Itoa(settings.Retrieval.TopDomains), nil
	case keyRedundancyThreshold:
		return formatFloat(settings.Retrieval.RedundancyThreshold), nil
	case keyMinScore:
		return formatFloat(settings.Retrieval.MinScore), nil
	case keyTopK:
		return strconv.Itoa(settings.Retrieval.TopK), nil
	default:
		return "", fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate provider supports embeddings
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks the current settings for consistency.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	c := settings.Compression
	r := settings.Retrieval
	switch {
	case settings.Corpus.Root == "":
		return fmt.Errorf("%w: corpus root is empty", domain.ErrInvalidInput)
	case len(settings.Corpus.Extensions) == 0:
		return fmt.Errorf("%w: no corpus extensions", domain.ErrInvalidInput)
	case settings.Embedding.Provider == domain.AIProviderAnthropic:
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, settings.Embedding.Provider)
	case settings.Embedding.RateLimit < 0:
		return fmt.Errorf("%w: embedding rate limit must not be negative", domain.ErrInvalidInput)
	case !inUnitInterval(c.DedupThreshold):
		return fmt.Errorf("%w: dedup threshold must be in (0, 1]", domain.ErrInvalidInput)
	case c.MinK < 1 || c.MaxK < c.MinK:
		return fmt.Errorf("%w: cluster bounds must satisfy 1 <= min_k <= max_k", domain.ErrInvalidInput)
	case c.MaxIterations < 1:
		return fmt.Errorf("%w: max iterations must be positive", domain.ErrInvalidInput)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size must be positive", domain.ErrInvalidInput)
	case c.SummaryConcurrency < 1 || c.SummaryConcurrency > domain.MaxSummaryConcurrency():
		return fmt.Errorf("%w: summary concurrency must be in [1, %d]",
			domain.ErrInvalidInput, domain.MaxSummaryConcurrency())
	case c.MaxSummaryInput < 1:
		return fmt.Errorf("%w: max summary input must be positive", domain.ErrInvalidInput)
	case r.TopDomains < 1:
		return fmt.Errorf("%w: top domains must be positive", domain.ErrInvalidInput)
	case !inUnitInterval(r.RedundancyThreshold):
		return fmt.Errorf("%w: redundancy threshold must be in (0, 1]", domain.ErrInvalidInput)
	case r.MinScore < -1 || r.MinScore > 1:
		return fmt.Errorf("%w: min score must be in [-1, 1]", domain.ErrInvalidInput)
	case r.TopK < 1:
		return fmt.Errorf("%w: top k must be positive", domain.ErrInvalidInput)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	// An empty string marks a cleared key.
	if val, exists := s.configStore.Get(key); !exists || val == "" {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func inUnitInterval(f float64) bool {
	return f > 0 && f <= 1
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// mask hides all but the last four characters of a secret.
func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

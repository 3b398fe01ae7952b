package domain

import "runtime"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// CorpusSettings describes where documents come from.
type CorpusSettings struct {
	// Root is the directory scanned for documents.
	Root string

	// Extensions lists the file extensions treated as text.
	Extensions []string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider == AIProviderAnthropic || !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// CompressionSettings tunes the compression pipeline.
type CompressionSettings struct {
	// DedupThreshold is the cosine similarity at which chunks are duplicates.
	DedupThreshold float64

	// MinK and MaxK bound the cluster count search.
	MinK int
	MaxK int

	// MaxIterations bounds each k-means run.
	MaxIterations int

	// BatchSize is the number of texts per embedding request.
	BatchSize int

	// SummaryConcurrency is the number of clusters summarised at once.
	// 1 keeps summarisation sequential.
	SummaryConcurrency int

	// Seed fixes clustering randomness. Zero picks a random seed.
	Seed int64

	// MaxSummaryInput caps the characters of member text sent per cluster.
	MaxSummaryInput int
}

// RetrievalSettings tunes query-time planning and search.
type RetrievalSettings struct {
	// TopDomains is the number of domain matches kept in a plan.
	TopDomains int

	// RedundancyThreshold drops retrieved chunks this similar to a matched domain.
	RedundancyThreshold float64

	// MinScore is the default minimum search score.
	MinScore float64

	// TopK is the default search result count.
	TopK int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Corpus holds document source settings.
	Corpus CorpusSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Compression holds pipeline tuning.
	Compression CompressionSettings

	// Retrieval holds query-time tuning.
	Retrieval RetrievalSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; compress and retrieve report
// ErrEmbeddingUnavailable until one is set.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Corpus: CorpusSettings{
			Root:       ".",
			Extensions: DefaultExtensions(),
		},
		Compression: DefaultCompressionSettings(),
		Retrieval: RetrievalSettings{
			TopDomains:          3,
			RedundancyThreshold: 0.78,
			MinScore:            DefaultMinScore,
			TopK:                DefaultTopK,
		},
	}
}

// DefaultCompressionSettings returns the pipeline defaults.
func DefaultCompressionSettings() CompressionSettings {
	return CompressionSettings{
		DedupThreshold:     0.92,
		MinK:               2,
		MaxK:               10,
		MaxIterations:      50,
		BatchSize:          16,
		SummaryConcurrency: 1,
		MaxSummaryInput:    6000,
	}
}

// MaxSummaryConcurrency bounds SummaryConcurrency.
func MaxSummaryConcurrency() int {
	return runtime.NumCPU() * 2
}

// DefaultExtensions returns the file extensions scanned by default.
func DefaultExtensions() []string {
	return []string{".md", ".markdown", ".txt", ".rst", ".org"}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

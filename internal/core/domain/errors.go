package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoCorpus indicates the corpus produced zero chunks.
	// Compression cannot run without source material.
	ErrNoCorpus = errors.New("no corpus: zero chunks found")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or every embedding call failed.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the completion service is not configured.
	// Summaries degrade to local fallbacks without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrDimensionMismatch indicates two embeddings of different lengths met
	// in one run. This is a programmer or configuration error and is never degraded.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrRebuildInProgress indicates an index rebuild is already running.
	ErrRebuildInProgress = errors.New("rebuild in progress")
)

// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentProvider: Enumerates and reads corpus documents
//   - RecordStore: Durable key-value store for the knowledge pack and vector index
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, compress fails
//     with ErrEmbeddingUnavailable and search returns no results.
//   - LLMService: Text completion. Without it, summaries fall back to labels
//     and the overview falls back to a template.
//   - PromptStore: Customisable prompt templates. Without it, built-in prompts are used.
//   - ChangeNotifier: Corpus change hints. Without it, background refresh is interval-only.
//   - TaskHistoryStore: Background run history. Without it, status omits past runs.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven

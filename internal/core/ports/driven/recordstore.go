package driven

import "context"

// Well-known record keys.
const (
	// RecordKnowledgePack holds the compressed knowledge pack.
	RecordKnowledgePack = "knowledge_pack"

	// RecordVectorIndex holds the vector index.
	RecordVectorIndex = "vector_index"
)

// RecordStore is a durable key-value store for whole-document records.
// Every Save replaces the previous value for the key.
// Callers serialise writers to the same key.
type RecordStore interface {
	// Load returns the value for key, or domain.ErrNotFound when absent.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the value for key.
	Save(ctx context.Context, key string, data []byte) error

	// Revision returns a counter that grows with every Save of key, or
	// domain.ErrNotFound when absent. Readers compare it to skip reloads.
	Revision(ctx context.Context, key string) (int64, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}

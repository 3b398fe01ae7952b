// Package domain defines the core business entities for sercha-kb.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A source file read from the corpus
//   - Chunk: A bounded, heading-scoped span of a document
//   - KnowledgePack: The persisted output of a compression run
//   - IndexRecord: The persisted, incrementally maintained vector index
//
// It also holds the vector math shared by the deduplicator, the clusterer
// and both orchestrators, so that every similarity in the system is computed
// the same way.
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Document is a source file as read from the corpus.
// Documents are owned by the DocumentProvider and never modified here.
type Document struct {
	// Path is the slash-separated path relative to the corpus root.
	Path string

	// Content is the full text of the document.
	Content string

	// Fingerprint is the content hash used for change detection.
	Fingerprint string
}

// SkippedDocument records a document the corpus scan could not use.
type SkippedDocument struct {
	// Path is the document path relative to the corpus root.
	Path string

	// Reason says why the document was skipped.
	Reason string
}

// Chunk is a bounded, heading-scoped span of a document's text.
// It is the atomic unit of embedding and retrieval.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// SourcePath is the path of the document the chunk came from.
	SourcePath string

	// Heading is the closest markdown heading above the chunk,
	// or the document path when there is none.
	Heading string

	// DomainTag is the coarse topic derived from the document path.
	DomainTag string

	// SourceFingerprint is the fingerprint of the whole source document.
	SourceFingerprint string

	// StartLine is the 1-based line the chunk starts on.
	StartLine int
}

// Corpus is the result of scanning every document in a provider.
type Corpus struct {
	// Chunks holds all emitted chunks in document order.
	Chunks []Chunk

	// Fingerprints maps document path to fingerprint for every readable document.
	Fingerprints map[string]string

	// Skipped lists documents that could not be used.
	Skipped []SkippedDocument

	// Documents is the number of documents that were read.
	Documents int
}

// Fingerprint returns the content hash of text.
// It is used for change detection only, not for security.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}

// SameFingerprints reports whether two fingerprint snapshots are identical key for key.
func SameFingerprints(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for path, fp := range a {
		other, ok := b[path]
		if !ok || other != fp {
			return false
		}
	}
	return true
}

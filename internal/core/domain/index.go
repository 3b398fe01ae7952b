package domain

import "time"

// IndexEntry is a chunk together with its embedding.
type IndexEntry struct {
	Text              string    `json:"text"`
	SourcePath        string    `json:"source_path"`
	Heading           string    `json:"heading"`
	DomainTag         string    `json:"domain_tag"`
	SourceFingerprint string    `json:"source_fingerprint"`
	StartLine         int       `json:"start_line"`
	Embedding         []float32 `json:"embedding"`
}

// NewIndexEntry pairs a chunk with its embedding.
func NewIndexEntry(c Chunk, embedding []float32) IndexEntry {
	return IndexEntry{
		Text:              c.Text,
		SourcePath:        c.SourcePath,
		Heading:           c.Heading,
		DomainTag:         c.DomainTag,
		SourceFingerprint: c.SourceFingerprint,
		StartLine:         c.StartLine,
		Embedding:         embedding,
	}
}

// IndexRecord is the persisted vector index.
// Entries of unchanged documents are carried forward between rebuilds.
type IndexRecord struct {
	// Version is the record format version. A mismatch forces a full rebuild.
	Version int `json:"version"`

	// Model is the embedding model that produced the entries.
	Model string `json:"model"`

	// Dimensions is the embedding length shared by all entries.
	Dimensions int `json:"dimensions"`

	// Fingerprints maps document path to the fingerprint that was indexed.
	Fingerprints map[string]string `json:"fingerprints"`

	// Entries holds every indexed chunk.
	Entries []IndexEntry `json:"entries"`

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// RebuildResult reports what an incremental rebuild changed.
type RebuildResult struct {
	// Added is the number of newly embedded entries.
	Added int `json:"added"`

	// Removed is the number of entries dropped.
	Removed int `json:"removed"`

	// Total is the number of entries after the rebuild.
	Total int `json:"total"`

	// ChangedDocuments is the number of new or modified documents.
	ChangedDocuments int `json:"changed_documents"`

	// RemovedDocuments is the number of documents no longer in the corpus.
	RemovedDocuments int `json:"removed_documents"`

	// Skipped lists documents the scan could not use.
	Skipped []SkippedDocument `json:"skipped,omitempty"`
}

// IndexStats summarises the persisted index.
type IndexStats struct {
	Entries    int       `json:"entries"`
	Documents  int       `json:"documents"`
	Dimensions int       `json:"dimensions"`
	Model      string    `json:"model"`
	UpdatedAt  time.Time `json:"updated_at"`
}

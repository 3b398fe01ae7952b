package domain

import "time"

// MaxFactsPerDomain caps the number of facts kept for one domain summary.
const MaxFactsPerDomain = 10

// DomainSummary is the compressed form of one cluster.
type DomainSummary struct {
	// Label is the short human-readable cluster name.
	Label string `json:"label"`

	// Summary is the summariser's text for the cluster.
	Summary string `json:"summary"`

	// Facts are extracted statements, in order, at most MaxFactsPerDomain.
	Facts []string `json:"facts"`

	// Centroid is the unit-normalised mean embedding of the cluster members.
	// It is cached so query-time matching never re-embeds summary text.
	Centroid []float32 `json:"centroid"`

	// MemberCount is the number of chunks in the cluster.
	MemberCount int `json:"member_count"`

	// DomainTags lists the distinct domain tags of the members.
	DomainTags []string `json:"domain_tags,omitempty"`
}

// PackStats describes the compression run that produced a pack.
type PackStats struct {
	Documents  int     `json:"documents"`
	Skipped    int     `json:"skipped"`
	Chunks     int     `json:"chunks"`
	Embedded   int     `json:"embedded"`
	Duplicates int     `json:"duplicates"`
	Clusters   int     `json:"clusters"`
	Silhouette float64 `json:"silhouette"`
}

// KnowledgePack is the persisted output of a compression run.
// It is fully replaced by every successful run.
type KnowledgePack struct {
	// ID uniquely identifies the run that produced the pack.
	ID string `json:"id"`

	// Version is the record format version.
	Version int `json:"version"`

	// Overview is the global summary across all domains.
	Overview string `json:"overview"`

	// Domains holds one summary per cluster.
	Domains []DomainSummary `json:"domains"`

	// Fingerprints is the corpus snapshot the pack was built from.
	Fingerprints map[string]string `json:"fingerprints"`

	// Stats describes the run.
	Stats PackStats `json:"stats"`

	// CreatedAt is when the pack was produced.
	CreatedAt time.Time `json:"created_at"`
}

package domain

// Default search parameters.
const (
	DefaultTopK     = 20
	DefaultMinScore = 0.2
)

// SearchOptions configures a similarity search.
type SearchOptions struct {
	// TopK is the maximum number of results. Zero or less returns nothing.
	TopK int

	// MinScore drops results scoring below it.
	MinScore float64

	// DomainFilter restricts results to a domain tag and its children.
	DomainFilter string
}

// DefaultSearchOptions returns TopK 20 and MinScore 0.2 with no filter.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{TopK: DefaultTopK, MinScore: DefaultMinScore}
}

// MatchesDomain reports whether tag equals filter or is one of its children.
// An empty filter matches everything.
func (o SearchOptions) MatchesDomain(tag string) bool {
	if o.DomainFilter == "" {
		return true
	}
	return tag == o.DomainFilter || len(tag) > len(o.DomainFilter) &&
		tag[:len(o.DomainFilter)+1] == o.DomainFilter+"/"
}

// SearchResult is a single retrieved chunk.
type SearchResult struct {
	Text       string  `json:"text"`
	SourcePath string  `json:"source_path"`
	Heading    string  `json:"heading"`
	DomainTag  string  `json:"domain_tag"`
	Score      float64 `json:"score"`
	StartLine  int     `json:"start_line"`
}

// DomainMatch is a compressed domain summary scored against a query.
type DomainMatch struct {
	Label      string    `json:"label"`
	Summary    string    `json:"summary"`
	Facts      []string  `json:"facts,omitempty"`
	Centroid   []float32 `json:"-"`
	Similarity float64   `json:"similarity"`
}

// RetrievalPlan is the query-time decision about what to fetch.
type RetrievalPlan struct {
	// Query is the original query text.
	Query string `json:"query"`

	// QueryEmbedding is the query vector, nil when embedding failed.
	QueryEmbedding []float32 `json:"-"`

	// DomainMatches are the best-matching compressed domains.
	DomainMatches []DomainMatch `json:"domain_matches"`

	// Budget is the number of raw chunks to retrieve.
	Budget int `json:"budget"`
}

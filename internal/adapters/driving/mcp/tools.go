package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// defaultLimit is the search result count when the caller gives none.
const defaultLimit = 10

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query    string   `json:"query,omitempty" jsonschema:"the search query"`
	Queries  []string `json:"queries,omitempty" jsonschema:"several phrasings searched together; results are merged"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	MinScore float64  `json:"min_score,omitempty" jsonschema:"minimum cosine similarity (default 0.2)"`
	Domain   string   `json:"domain,omitempty" jsonschema:"only return chunks under this domain tag, e.g. health"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// ChunkOutput is one chunk returned to the assistant.
type ChunkOutput struct {
	Text      string  `json:"text"`
	Path      string  `json:"path"`
	Heading   string  `json:"heading"`
	DomainTag string  `json:"domain_tag"`
	Line      int     `json:"line"`
	Score     float64 `json:"score"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Question string `json:"question" jsonschema:"the question to gather context for"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Domains []DomainOutput `json:"domains"`
	Chunks  []ChunkOutput  `json:"chunks"`
	Budget  int            `json:"budget"`
}

// DomainOutput is one matched domain.
type DomainOutput struct {
	Label      string   `json:"label"`
	Summary    string   `json:"summary"`
	Facts      []string `json:"facts,omitempty"`
	Similarity float64  `json:"similarity"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the knowledge base vector index for passages similar to a query",
	}, s.handleSearch)

	if s.ports.Retrieval != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name: "retrieve",
			Description: "Gather context for a question: matching topic domains with summaries " +
				"and facts, plus raw passages not already covered by them",
		}, s.handleRetrieve)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	queries := input.Queries
	if q := strings.TrimSpace(input.Query); q != "" {
		queries = append([]string{q}, queries...)
	}
	if len(queries) == 0 {
		return nil, SearchOutput{}, errors.New("query is required")
	}

	opts := domain.SearchOptions{
		TopK:         input.Limit,
		MinScore:     input.MinScore,
		DomainFilter: input.Domain,
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultLimit
	}
	if opts.MinScore <= 0 {
		opts.MinScore = domain.DefaultMinScore
	}

	var results []domain.SearchResult
	var err error
	if len(queries) == 1 {
		results, err = s.ports.Index.Search(ctx, queries[0], opts)
	} else {
		results, err = s.ports.Index.MultiSearch(ctx, queries, opts)
	}
	if err != nil {
		return nil, SearchOutput{}, err
	}

	chunks := toChunkOutputs(results)
	return nil, SearchOutput{Results: chunks, Count: len(chunks)}, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, RetrieveOutput{}, errors.New("question is required")
	}

	plan, err := s.ports.Retrieval.Plan(ctx, question)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}
	results, err := s.ports.Retrieval.Retrieve(ctx, plan)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	domains := make([]DomainOutput, len(plan.DomainMatches))
	for i, m := range plan.DomainMatches {
		domains[i] = DomainOutput{
			Label:      m.Label,
			Summary:    m.Summary,
			Facts:      m.Facts,
			Similarity: m.Similarity,
		}
	}

	return nil, RetrieveOutput{
		Domains: domains,
		Chunks:  toChunkOutputs(results),
		Budget:  plan.Budget,
	}, nil
}

func toChunkOutputs(results []domain.SearchResult) []ChunkOutput {
	chunks := make([]ChunkOutput, len(results))
	for i := range results {
		chunks[i] = ChunkOutput{
			Text:      results[i].Text,
			Path:      results[i].SourcePath,
			Heading:   results[i].Heading,
			DomainTag: results[i].DomainTag,
			Line:      results[i].StartLine,
			Score:     results[i].Score,
		}
	}
	return chunks
}

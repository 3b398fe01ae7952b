package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// uriScheme is the URI scheme for knowledge base resources.
const uriScheme = "kb://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Compression == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "overview",
		Name:        "overview",
		Description: "Summary of the whole corpus and its topic domains",
		MIMEType:    "text/markdown",
	}, s.handleOverviewResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "domains",
		Name:        "domains",
		Description: "Every compressed topic domain with summary and facts",
		MIMEType:    "application/json",
	}, s.handleDomainsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "domains/{label}",
		Name:        "domain",
		Description: "One topic domain by label",
		MIMEType:    "application/json",
	}, s.handleDomainResource)
}

// domainInfo is the JSON shape of a domain; centroids are left out.
type domainInfo struct {
	Label       string   `json:"label"`
	Summary     string   `json:"summary"`
	Facts       []string `json:"facts"`
	MemberCount int      `json:"member_count"`
	DomainTags  []string `json:"domain_tags,omitempty"`
}

func newDomainInfo(d domain.DomainSummary) domainInfo {
	return domainInfo{
		Label:       d.Label,
		Summary:     d.Summary,
		Facts:       d.Facts,
		MemberCount: d.MemberCount,
		DomainTags:  d.DomainTags,
	}
}

// loadPack returns the pack or a not-found error for uri.
func (s *Server) loadPack(ctx context.Context, uri string) (*domain.KnowledgePack, error) {
	pack, err := s.ports.Compression.Pack(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, fmt.Errorf("loading knowledge pack: %w", err)
	}
	return pack, nil
}

// handleOverviewResource renders the pack overview as markdown.
func (s *Server) handleOverviewResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	pack, err := s.loadPack(ctx, req.Params.URI)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("# Overview\n\n")
	b.WriteString(pack.Overview)
	b.WriteString("\n\n## Domains\n\n")
	for _, d := range pack.Domains {
		fmt.Fprintf(&b, "- **%s** (%d chunks)", d.Label, d.MemberCount)
		if d.Summary != "" {
			fmt.Fprintf(&b, ": %s", firstLine(d.Summary))
		}
		b.WriteString("\n")
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     b.String(),
		}},
	}, nil
}

// handleDomainsResource returns every domain as JSON.
func (s *Server) handleDomainsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	pack, err := s.loadPack(ctx, req.Params.URI)
	if err != nil {
		return nil, err
	}

	infos := make([]domainInfo, len(pack.Domains))
	for i, d := range pack.Domains {
		infos[i] = newDomainInfo(d)
	}
	return jsonResult(req.Params.URI, infos)
}

// handleDomainResource returns one domain by label.
func (s *Server) handleDomainResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	label := extractDomainLabel(req.Params.URI)
	if label == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	pack, err := s.loadPack(ctx, req.Params.URI)
	if err != nil {
		return nil, err
	}
	for _, d := range pack.Domains {
		if strings.EqualFold(d.Label, label) {
			return jsonResult(req.Params.URI, newDomainInfo(d))
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDomainLabel extracts the label from a URI like kb://domains/{label}.
// Labels may contain spaces, so the segment is unescaped.
func extractDomainLabel(uri string) string {
	const prefix = uriScheme + "domains/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	label, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(label)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// knowledge base. AI assistants can search the vector index, retrieve fused
// domain and chunk context, and read the compressed overview and domains.
package mcp

import "errors"

// ErrMissingIndexService is returned when the index service is not provided.
var ErrMissingIndexService = errors.New("mcp: index service is required")

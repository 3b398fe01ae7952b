package mcp

import (
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Index answers the search tool.
	Index driving.IndexService

	// Retrieval answers the retrieve tool. Optional.
	Retrieval driving.RetrievalService

	// Compression serves the overview and domain resources. Optional.
	Compression driving.CompressionService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}

// Package connectors holds document sources for the knowledge base.
// Each connector implements driven.DocumentProvider for one kind of source.
package connectors

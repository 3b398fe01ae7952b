package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// ResultActionService provides actions on search results for external actors.
// This is used by TUI, CLI, and MCP adapters.
type ResultActionService interface {
	// CopyToClipboard copies the result's text to the system clipboard.
	CopyToClipboard(ctx context.Context, result *domain.SearchResult) error

	// OpenDocument opens the result's source file in the default application.
	OpenDocument(ctx context.Context, result *domain.SearchResult) error

	// Path returns the absolute path of the result's source file.
	Path(result *domain.SearchResult) (string, error)
}

package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// Scheduler keeps the index and knowledge pack fresh in the background.
type Scheduler interface {
	// Start refreshes immediately, then on every interval and corpus change.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for it to exit.
	Stop() error

	// Refresh runs one index rebuild and, when stale, one compression.
	Refresh(ctx context.Context)

	// OnResult registers a callback invoked after every task run.
	OnResult(fn func(domain.TaskResult))
}

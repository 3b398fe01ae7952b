package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// TaskHistoryStore records scheduler task runs for status reporting.
type TaskHistoryStore interface {
	// RecordResult appends one task run.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// History returns the most recent runs of a task, newest first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// Prune keeps only the newest keep runs per task.
	Prune(ctx context.Context, keep int) error
}

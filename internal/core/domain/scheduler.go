package domain

import "time"

// Refresh task identifiers.
const (
	TaskIDIndexRebuild = "index-rebuild"
	TaskIDCompression  = "compression"
)

// TaskResult records one run of a refresh task.
type TaskResult struct {
	// TaskID identifies which task ran.
	TaskID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// EndedAt is when the run finished.
	EndedAt time.Time

	// Success is false when the task returned an error.
	Success bool

	// Error holds the failure message, if any.
	Error string

	// ItemsProcessed counts entries added or domains produced.
	ItemsProcessed int

	// Skipped is true when there was nothing to do.
	Skipped bool
}

// Duration returns how long the run took.
func (r TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig controls background refreshing.
type SchedulerConfig struct {
	// Interval is the period of unconditional refresh checks.
	// Zero disables periodic checks; change notifications still apply.
	Interval time.Duration

	// Debounce is how long the corpus must be quiet after a change
	// before a refresh starts.
	Debounce time.Duration

	// Compress rebuilds the knowledge pack when it is stale.
	// When false only the vector index is refreshed.
	Compress bool
}

// DefaultSchedulerConfig returns an hourly check with a two second debounce.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval: time.Hour,
		Debounce: 2 * time.Second,
		Compress: true,
	}
}

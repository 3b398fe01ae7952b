// Package messages defines the Bubbletea messages exchanged between a
// running task and the progress view.
package messages

import (
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// ProgressUpdate carries one progress report from the task.
type ProgressUpdate struct {
	Progress domain.Progress
}

// TaskDone is sent once when the task returns.
type TaskDone struct {
	Err error
}

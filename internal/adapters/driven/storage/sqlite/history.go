package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// taskHistoryStore implements driven.TaskHistoryStore.
type taskHistoryStore struct {
	store *Store
}

var _ driven.TaskHistoryStore = (*taskHistoryStore)(nil)

// RecordResult logs a task execution result.
func (s *taskHistoryStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO task_results (task_id, started_at, ended_at, success, skipped, error, items_processed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, result.TaskID,
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		result.EndedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(result.Success),
		boolToInt(result.Skipped),
		nullString(result.Error),
		result.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("recording task result: %w", err)
	}
	return nil
}

// History returns recent results for a task, most recent first.
func (s *taskHistoryStore) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT task_id, started_at, ended_at, success, skipped, error, items_processed
		FROM task_results
		WHERE task_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying task history: %w", err)
	}
	defer rows.Close()

	var results []domain.TaskResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		result, err := scanTaskResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task history: %w", err)
	}
	return results, nil
}

// Prune keeps the newest keep results per task.
func (s *taskHistoryStore) Prune(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_results
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
				FROM task_results
			) WHERE rn <= ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}

func scanTaskResult(rows *sql.Rows) (domain.TaskResult, error) {
	var result domain.TaskResult
	var startedAt, endedAt string
	var success, skipped int
	var errText sql.NullString

	if err := rows.Scan(&result.TaskID, &startedAt, &endedAt, &success, &skipped,
		&errText, &result.ItemsProcessed); err != nil {
		return result, fmt.Errorf("scanning task result: %w", err)
	}

	result.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	result.EndedAt, _ = time.Parse(time.RFC3339Nano, endedAt)
	result.Success = success == 1
	result.Skipped = skipped == 1
	result.Error = errText.String
	return result, nil
}

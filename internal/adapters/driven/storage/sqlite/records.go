package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// Load returns the stored value or domain.ErrNotFound.
func (s *recordStore) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.store.db.QueryRowContext(ctx, "SELECT value FROM records WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading record %s: %w", key, err)
	}
	return value, nil
}

// Save replaces the value for key in a single statement, so readers see
// either the old record or the new one.
//
// Revisions start from the clock so a key that is deleted and saved again
// does not reuse an old revision.
func (s *recordStore) Save(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC()
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO records (key, value, updated_at, revision)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at,
			revision = MAX(records.revision + 1, excluded.revision)
	`, key, data, now.Format(time.RFC3339Nano), now.UnixNano())
	if err != nil {
		return fmt.Errorf("saving record %s: %w", key, err)
	}
	return nil
}

// Revision returns the save counter for key or domain.ErrNotFound.
func (s *recordStore) Revision(ctx context.Context, key string) (int64, error) {
	var rev int64
	err := s.store.db.QueryRowContext(ctx, "SELECT revision FROM records WHERE key = ?", key).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("reading revision of %s: %w", key, err)
	}
	return rev, nil
}

// Delete removes key. Missing keys are ignored.
func (s *recordStore) Delete(ctx context.Context, key string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM records WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting record %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *recordStore) Close() error {
	return s.store.Close()
}

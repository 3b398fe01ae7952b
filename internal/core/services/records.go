package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// loadRecord decodes the record stored under key into v.
// Any read or decode failure is a cold start and reported as domain.ErrNotFound.
func loadRecord(ctx context.Context, store driven.RecordStore, key string, v any) error {
	data, err := store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Reading record %q failed, starting cold: %v", key, err)
		}
		return domain.ErrNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("Record %q is corrupt, starting cold: %v", key, err)
		return domain.ErrNotFound
	}
	return nil
}

// saveRecord encodes v and replaces the record stored under key.
// Write errors are returned; a silently lost write would corrupt staleness tracking.
func saveRecord(ctx context.Context, store driven.RecordStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Save(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

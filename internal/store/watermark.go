package store

import (
	"context"
	"fmt"
	"time"

	"github.com/s-d-m/local-jira/internal/model"
)

// GetWatermark returns the process-wide singleton watermark row.
func (s *SQLiteStore) GetWatermark(ctx context.Context) (model.SyncWatermark, error) {
	var w model.SyncWatermark
	err := s.db.GetContext(ctx, &w,
		"SELECT last_seen_updated, last_full_sync_at FROM sync_watermark WHERE singleton = 0",
	)
	if err != nil {
		return model.SyncWatermark{}, fmt.Errorf("getting sync watermark: %w", err)
	}
	return w, nil
}

// AdvanceWatermark raises last_seen_updated to lastSeenUpdated if and
// only if that is strictly greater than the current value, preserving
// the monotonicity invariant even if called out of order.
func (s *SQLiteStore) AdvanceWatermark(ctx context.Context, tx *Tx, lastSeenUpdated time.Time) error {
	_, err := tx.tx.ExecContext(ctx, `
		UPDATE sync_watermark SET last_seen_updated = ?
		WHERE singleton = 0 AND last_seen_updated < ?`,
		lastSeenUpdated.UTC(), lastSeenUpdated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("advancing sync watermark: %w", err)
	}
	return nil
}

// SetLastFullSyncAt records when the most recent full scan completed.
// Unlike last_seen_updated, this is a simple timestamp, not a monotonic
// bound, so it is always overwritten.
func (s *SQLiteStore) SetLastFullSyncAt(ctx context.Context, tx *Tx, t time.Time) error {
	_, err := tx.tx.ExecContext(ctx,
		"UPDATE sync_watermark SET last_full_sync_at = ? WHERE singleton = 0",
		t.UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting last full sync time: %w", err)
	}
	return nil
}

package sync

import (
	"context"
	"fmt"
	"strconv"

	"github.com/s-d-m/local-jira/internal/model"
)

// FetchAttachmentContent returns the bytes for attachment uuid, serving
// a cached blob if one was already downloaded and lazily filling the
// cache from the remote tenant otherwise. An attachment whose known
// size exceeds the configured cap is rejected before any network call.
func (s *Synchroniser) FetchAttachmentContent(ctx context.Context, uuid string) ([]byte, error) {
	att, err := s.store.GetAttachmentByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, model.NewError(model.NotFound, fmt.Sprintf("no such attachment %s", uuid))
	}
	if len(att.ContentData) > 0 {
		return att.ContentData, nil
	}

	s.mu.Lock()
	limit := s.maxAttachmentBytes
	s.mu.Unlock()
	if att.FileSize > limit {
		return nil, model.NewError(model.InvalidParameter,
			fmt.Sprintf("attachment %s (%d bytes) exceeds the configured maximum of %d bytes", uuid, att.FileSize, limit))
	}

	_, data, err := s.remote.DownloadAttachment(ctx, strconv.FormatInt(att.ID, 10))
	if err != nil {
		return nil, err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetAttachmentBlob(ctx, tx, uuid, data); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing attachment blob for %s: %w", uuid, err)
	}

	return data, nil
}

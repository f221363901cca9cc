package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/s-d-m/local-jira/internal/model"
)

// ListAttachments returns attachment metadata for an issue. ContentData
// is whatever has been lazily fetched so far and may be nil.
func (s *SQLiteStore) ListAttachments(ctx context.Context, issueKey string) ([]model.Attachment, error) {
	issue, err := s.GetIssueByKey(ctx, issueKey)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, model.NewError(model.NotFound, fmt.Sprintf("no such issue %s", issueKey))
	}

	var attachments []model.Attachment
	err = s.db.SelectContext(ctx, &attachments, `
		SELECT uuid, id, issue_id, filename, mime_type, file_size, content_data
		FROM attachments WHERE issue_id = ?`,
		issue.JiraID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing attachments for %s: %w", issueKey, err)
	}
	return attachments, nil
}

// GetAttachmentByUUID retrieves one attachment's metadata (and cached
// content, if any) by its UUID.
func (s *SQLiteStore) GetAttachmentByUUID(ctx context.Context, uuid string) (*model.Attachment, error) {
	var a model.Attachment
	err := s.db.GetContext(ctx, &a, `
		SELECT uuid, id, issue_id, filename, mime_type, file_size, content_data
		FROM attachments WHERE uuid = ?`, uuid,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting attachment %s: %w", uuid, err)
	}
	return &a, nil
}

// GetAttachmentBlob returns the cached bytes for an attachment, or nil
// if they have not been fetched yet.
func (s *SQLiteStore) GetAttachmentBlob(ctx context.Context, uuid string) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, "SELECT content_data FROM attachments WHERE uuid = ?", uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.NotFound, fmt.Sprintf("no such attachment %s", uuid))
	}
	if err != nil {
		return nil, fmt.Errorf("getting attachment blob %s: %w", uuid, err)
	}
	return data, nil
}

// ReplaceAttachmentMetadata makes the stored attachment rows for issueID
// equal to attachments exactly, keyed by uuid. file_size always reflects
// the remote size even when content_data has not been fetched; an
// attachment that already has cached content keeps it across the
// refresh unless the remote size changed, in which case the stale blob
// is dropped so a subsequent read re-fetches it.
func (s *SQLiteStore) ReplaceAttachmentMetadata(ctx context.Context, tx *Tx, issueID int64, attachments []model.Attachment) error {
	existing := make(map[string]int64) // uuid -> file_size
	rows, err := tx.tx.QueryxContext(ctx,
		"SELECT uuid, file_size FROM attachments WHERE issue_id = ?", issueID,
	)
	if err != nil {
		return fmt.Errorf("listing existing attachments for issue %d: %w", issueID, err)
	}
	for rows.Next() {
		var uuid string
		var size int64
		if err := rows.Scan(&uuid, &size); err != nil {
			rows.Close()
			return fmt.Errorf("scanning existing attachment: %w", err)
		}
		existing[uuid] = size
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(attachments))
	for _, a := range attachments {
		seen[a.UUID] = struct{}{}
		priorSize, known := existing[a.UUID]
		sameSizeAsCached := known && priorSize == a.FileSize

		if sameSizeAsCached {
			_, err := tx.tx.ExecContext(ctx, `
				INSERT INTO attachments (uuid, id, issue_id, filename, mime_type, file_size)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(uuid) DO UPDATE SET
					filename = excluded.filename,
					mime_type = excluded.mime_type,
					file_size = excluded.file_size`,
				a.UUID, a.ID, issueID, a.Filename, a.MimeType, a.FileSize,
			)
			if err != nil {
				return fmt.Errorf("upserting attachment %s: %w", a.UUID, err)
			}
			continue
		}

		_, err := tx.tx.ExecContext(ctx, `
			INSERT INTO attachments (uuid, id, issue_id, filename, mime_type, file_size, content_data)
			VALUES (?, ?, ?, ?, ?, ?, NULL)
			ON CONFLICT(uuid) DO UPDATE SET
				filename = excluded.filename,
				mime_type = excluded.mime_type,
				file_size = excluded.file_size,
				content_data = NULL`,
			a.UUID, a.ID, issueID, a.Filename, a.MimeType, a.FileSize,
		)
		if err != nil {
			return fmt.Errorf("upserting attachment %s: %w", a.UUID, err)
		}
	}

	for uuid := range existing {
		if _, ok := seen[uuid]; ok {
			continue
		}
		if _, err := tx.tx.ExecContext(ctx, "DELETE FROM attachments WHERE uuid = ?", uuid); err != nil {
			return fmt.Errorf("deleting stale attachment %s: %w", uuid, err)
		}
	}

	return nil
}

// SetAttachmentBlob caches downloaded bytes for an attachment. Used by
// the lazy-fill read path, not by the Synchroniser's apply step.
func (s *SQLiteStore) SetAttachmentBlob(ctx context.Context, tx *Tx, uuid string, data []byte) error {
	_, err := tx.tx.ExecContext(ctx, "UPDATE attachments SET content_data = ? WHERE uuid = ?", data, uuid)
	if err != nil {
		return fmt.Errorf("caching attachment blob %s: %w", uuid, err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/s-d-m/local-jira/internal/model"
)

// GetRendered returns the cached rendering for (issueKey, format), or
// nil if absent — the Renderer Adapter treats nil as a cache miss.
func (s *SQLiteStore) GetRendered(ctx context.Context, issueKey string, format model.Format) (*model.RenderedArtifact, error) {
	issue, err := s.GetIssueByKey(ctx, issueKey)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, model.NewError(model.NotFound, fmt.Sprintf("no such issue %s", issueKey))
	}

	var a model.RenderedArtifact
	err = s.db.GetContext(ctx, &a,
		"SELECT issue_id, format, source_hash, body FROM rendered_artifacts WHERE issue_id = ? AND format = ?",
		issue.JiraID, string(format),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting rendered artifact for %s/%s: %w", issueKey, format, err)
	}
	return &a, nil
}

// InvalidateRendered deletes every cached rendering of issueID, in any
// format. Called whenever any row contributing to the issue changes.
func (s *SQLiteStore) InvalidateRendered(ctx context.Context, tx *Tx, issueID int64) error {
	_, err := tx.tx.ExecContext(ctx, "DELETE FROM rendered_artifacts WHERE issue_id = ?", issueID)
	if err != nil {
		return fmt.Errorf("invalidating rendered artifacts for issue %d: %w", issueID, err)
	}
	return nil
}

// PutRendered writes a freshly composed rendering, keyed by (issue_id, format).
func (s *SQLiteStore) PutRendered(ctx context.Context, tx *Tx, artifact model.RenderedArtifact) error {
	_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO rendered_artifacts (issue_id, format, source_hash, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(issue_id, format) DO UPDATE SET
			source_hash = excluded.source_hash,
			body = excluded.body`,
		artifact.IssueID, string(artifact.Format), artifact.SourceHash, artifact.Body,
	)
	if err != nil {
		return fmt.Errorf("writing rendered artifact for issue %d/%s: %w", artifact.IssueID, artifact.Format, err)
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	"github.com/s-d-m/local-jira/internal/model"
)

// GetComments returns an issue's comments ordered by position_in_array.
func (s *SQLiteStore) GetComments(ctx context.Context, issueKey string) ([]model.Comment, error) {
	issue, err := s.GetIssueByKey(ctx, issueKey)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, model.NewError(model.NotFound, fmt.Sprintf("no such issue %s", issueKey))
	}

	var comments []model.Comment
	err = s.db.SelectContext(ctx, &comments, `
		SELECT id, issue_id, position_in_array, content_data, author,
			creation_time, last_modification_time
		FROM comments WHERE issue_id = ? ORDER BY position_in_array ASC`,
		issue.JiraID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting comments for %s: %w", issueKey, err)
	}
	return comments, nil
}

// ReplaceComments makes the stored comment rows for issueID equal to
// comments exactly, keyed by (id) with ordering carried in
// position_in_array: it deletes every stored comment of the issue and
// inserts the given ones.
func (s *SQLiteStore) ReplaceComments(ctx context.Context, tx *Tx, issueID int64, comments []model.Comment) error {
	_, err := tx.tx.ExecContext(ctx, "DELETE FROM comments WHERE issue_id = ?", issueID)
	if err != nil {
		return fmt.Errorf("clearing comments for issue %d: %w", issueID, err)
	}

	for _, c := range comments {
		_, err := tx.tx.ExecContext(ctx, `
			INSERT INTO comments (
				id, issue_id, position_in_array, content_data, author,
				creation_time, last_modification_time
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, issueID, c.PositionInArray, c.ContentData, c.Author,
			c.CreationTime.UTC(), c.LastModificationTime.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting comment %d on issue %d: %w", c.ID, issueID, err)
		}
	}
	return nil
}

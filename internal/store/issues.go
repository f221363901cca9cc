package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/s-d-m/local-jira/internal/model"
)

// GetIssueByKey retrieves a single issue by its key (e.g. "PROJ-1234").
func (s *SQLiteStore) GetIssueByKey(ctx context.Context, key string) (*model.Issue, error) {
	var issue model.Issue
	err := s.db.GetContext(ctx, &issue,
		"SELECT jira_id, key, project_key FROM issues WHERE key = ?", key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting issue %s: %w", key, err)
	}
	return &issue, nil
}

// ListIssueKeys lists every known issue key, optionally filtered to one
// project. This is the authoritative local view of "what issues do we
// think exist," compared against a full remote key enumeration by
// full_issue_scan.
func (s *SQLiteStore) ListIssueKeys(ctx context.Context, projectKey string) ([]IssueSummary, error) {
	query := "SELECT jira_id, key, project_key FROM issues"
	args := []interface{}{}
	if projectKey != "" {
		query += " WHERE project_key = ?"
		args = append(args, projectKey)
	}

	var rows []IssueSummary
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing issue keys: %w", err)
	}
	return rows, nil
}

// UpsertIssue inserts or updates the issue row itself. ProjectKey must
// reference an existing project or the foreign key constraint rejects it.
func (s *SQLiteStore) UpsertIssue(ctx context.Context, tx *Tx, issue model.Issue) error {
	_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO issues (jira_id, key, project_key)
		VALUES (?, ?, ?)
		ON CONFLICT(jira_id) DO UPDATE SET
			key = excluded.key,
			project_key = excluded.project_key`,
		issue.JiraID, issue.Key, issue.ProjectKey,
	)
	if err != nil {
		return fmt.Errorf("upserting issue %s: %w", issue.Key, err)
	}
	return nil
}

// DeleteIssue removes an issue and, via ON DELETE CASCADE, every row
// that references it (IssueField, Comment, Attachment metadata,
// IssueLink, Watcher, RenderedArtifact) — the cascade full_issue_scan
// relies on when a ticket transitions from visible to hidden/deleted.
func (s *SQLiteStore) DeleteIssue(ctx context.Context, tx *Tx, jiraID int64) error {
	_, err := tx.tx.ExecContext(ctx, "DELETE FROM issues WHERE jira_id = ?", jiraID)
	if err != nil {
		return fmt.Errorf("deleting issue %d: %w", jiraID, err)
	}
	return nil
}

// GetFields returns the full field bag for an issue, keyed by field_id.
func (s *SQLiteStore) GetFields(ctx context.Context, issueKey string) (FieldBag, error) {
	issue, err := s.GetIssueByKey(ctx, issueKey)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, model.NewError(model.NotFound, fmt.Sprintf("no such issue %s", issueKey))
	}

	rows, err := s.db.QueryxContext(ctx,
		"SELECT field_id, field_value FROM issue_fields WHERE issue_id = ?", issue.JiraID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting fields for %s: %w", issueKey, err)
	}
	defer rows.Close()

	bag := make(FieldBag)
	for rows.Next() {
		var fieldID, fieldValue string
		if err := rows.Scan(&fieldID, &fieldValue); err != nil {
			return nil, fmt.Errorf("scanning field row for %s: %w", issueKey, err)
		}
		bag[fieldID] = fieldValue
	}
	return bag, rows.Err()
}

// ReplaceIssueFields makes the stored (issue_id, field_id) rows equal to
// fields exactly, per IssueField invariant: delete rows not
// present in the new bag, upsert the rest.
func (s *SQLiteStore) ReplaceIssueFields(ctx context.Context, tx *Tx, issueID int64, fields FieldBag) error {
	existing, err := tx.existingFieldIDs(ctx, issueID)
	if err != nil {
		return err
	}

	for fieldID, value := range fields {
		_, err := tx.tx.ExecContext(ctx, `
			INSERT INTO issue_fields (issue_id, field_id, field_value)
			VALUES (?, ?, ?)
			ON CONFLICT(issue_id, field_id) DO UPDATE SET field_value = excluded.field_value`,
			issueID, fieldID, value,
		)
		if err != nil {
			return fmt.Errorf("upserting field %s on issue %d: %w", fieldID, issueID, err)
		}
		delete(existing, fieldID)
	}

	for staleFieldID := range existing {
		_, err := tx.tx.ExecContext(ctx,
			"DELETE FROM issue_fields WHERE issue_id = ? AND field_id = ?",
			issueID, staleFieldID,
		)
		if err != nil {
			return fmt.Errorf("deleting stale field %s on issue %d: %w", staleFieldID, issueID, err)
		}
	}

	return nil
}

func (t *Tx) existingFieldIDs(ctx context.Context, issueID int64) (map[string]struct{}, error) {
	rows, err := t.tx.QueryxContext(ctx,
		"SELECT field_id FROM issue_fields WHERE issue_id = ?", issueID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing existing fields for issue %d: %w", issueID, err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning existing field id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

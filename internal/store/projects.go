package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/s-d-m/local-jira/internal/model"
)

// GetProjectByKey retrieves a single project by its key.
func (s *SQLiteStore) GetProjectByKey(ctx context.Context, key string) (*model.Project, error) {
	var p model.Project
	err := s.db.GetContext(ctx, &p,
		"SELECT jira_id, key, name, description, is_archived FROM projects WHERE key = ?", key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", key, err)
	}
	return &p, nil
}

// UpsertProject inserts or updates a project definition.
func (s *SQLiteStore) UpsertProject(ctx context.Context, tx *Tx, p model.Project) error {
	_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO projects (jira_id, key, name, description, is_archived)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(jira_id) DO UPDATE SET
			key = excluded.key,
			name = excluded.name,
			description = excluded.description,
			is_archived = excluded.is_archived`,
		p.JiraID, p.Key, p.Name, p.Description, boolToInt(p.IsArchived),
	)
	if err != nil {
		return fmt.Errorf("upserting project %s: %w", p.Key, err)
	}
	return nil
}

// UpsertIssueType inserts or updates an issue type definition.
func (s *SQLiteStore) UpsertIssueType(ctx context.Context, tx *Tx, it model.IssueType) error {
	_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO issue_types (jira_id, name, description)
		VALUES (?, ?, ?)
		ON CONFLICT(jira_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description`,
		it.JiraID, it.Name, it.Description,
	)
	if err != nil {
		return fmt.Errorf("upserting issue type %d: %w", it.JiraID, err)
	}
	return nil
}

// UpsertIssueTypePerProject records that an issue type is enabled on a project.
func (s *SQLiteStore) UpsertIssueTypePerProject(ctx context.Context, tx *Tx, link model.IssueTypePerProject) error {
	_, err := tx.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO issue_type_per_project (project_id, issue_type_id)
		VALUES (?, ?)`,
		link.ProjectID, link.IssueTypeID,
	)
	if err != nil {
		return fmt.Errorf(
			"linking issue type %d to project %d: %w",
			link.IssueTypeID, link.ProjectID, err,
		)
	}
	return nil
}

// UpsertField inserts or updates a field definition.
func (s *SQLiteStore) UpsertField(ctx context.Context, tx *Tx, f model.Field) error {
	_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO fields (jira_id, key, human_name, schema, is_custom)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(jira_id) DO UPDATE SET
			key = excluded.key,
			human_name = excluded.human_name,
			schema = excluded.schema,
			is_custom = excluded.is_custom`,
		f.JiraID, f.Key, f.HumanName, f.Schema, boolToInt(f.IsCustom),
	)
	if err != nil {
		return fmt.Errorf("upserting field %s: %w", f.JiraID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

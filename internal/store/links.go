package store

import (
	"context"
	"fmt"

	"github.com/s-d-m/local-jira/internal/model"
)

// UpsertIssueLinkType inserts or updates a link type definition.
func (s *SQLiteStore) UpsertIssueLinkType(ctx context.Context, tx *Tx, lt model.IssueLinkType) error {
	_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO issue_link_types (jira_id, name, outward_name, inward_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(jira_id) DO UPDATE SET
			name = excluded.name,
			outward_name = excluded.outward_name,
			inward_name = excluded.inward_name`,
		lt.JiraID, lt.Name, lt.OutwardName, lt.InwardName,
	)
	if err != nil {
		return fmt.Errorf("upserting link type %d: %w", lt.JiraID, err)
	}
	return nil
}

// ReplaceIssueLinks makes the stored outward links for outwardIssueID
// equal to links exactly, keyed by jira_id.
func (s *SQLiteStore) ReplaceIssueLinks(ctx context.Context, tx *Tx, outwardIssueID int64, links []model.IssueLink) error {
	_, err := tx.tx.ExecContext(ctx, "DELETE FROM issue_links WHERE outward_issue_id = ?", outwardIssueID)
	if err != nil {
		return fmt.Errorf("clearing links for issue %d: %w", outwardIssueID, err)
	}

	for _, l := range links {
		_, err := tx.tx.ExecContext(ctx, `
			INSERT INTO issue_links (jira_id, link_type_id, outward_issue_id, inward_issue_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(jira_id) DO UPDATE SET
				link_type_id = excluded.link_type_id,
				outward_issue_id = excluded.outward_issue_id,
				inward_issue_id = excluded.inward_issue_id`,
			l.JiraID, l.LinkTypeID, l.OutwardIssueID, l.InwardIssueID,
		)
		if err != nil {
			return fmt.Errorf("inserting link %d: %w", l.JiraID, err)
		}
	}
	return nil
}

// ReplaceWatchers makes the stored watcher rows for issueID equal to
// accountIDs exactly.
func (s *SQLiteStore) ReplaceWatchers(ctx context.Context, tx *Tx, issueID int64, accountIDs []string) error {
	_, err := tx.tx.ExecContext(ctx, "DELETE FROM watchers WHERE issue = ?", issueID)
	if err != nil {
		return fmt.Errorf("clearing watchers for issue %d: %w", issueID, err)
	}

	for _, accountID := range accountIDs {
		_, err := tx.tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO watchers (person, issue) VALUES (?, ?)",
			accountID, issueID,
		)
		if err != nil {
			return fmt.Errorf("adding watcher %s on issue %d: %w", accountID, issueID, err)
		}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/s-d-m/local-jira/internal/model"
)

// GetPerson looks up a person by account id, returning nil if unknown.
func (s *SQLiteStore) GetPerson(ctx context.Context, accountID string) (*model.Person, error) {
	var p model.Person
	err := s.db.GetContext(ctx, &p,
		"SELECT account_id, display_name FROM people WHERE account_id = ?", accountID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting person %s: %w", accountID, err)
	}
	return &p, nil
}

// UpsertPerson inserts a person on first reference, or updates their
// display name if it changed. Person rows are never deleted.
func (s *SQLiteStore) UpsertPerson(ctx context.Context, tx *Tx, p model.Person) error {
	_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO people (account_id, display_name) VALUES (?, ?)
		ON CONFLICT(account_id) DO UPDATE SET display_name = excluded.display_name`,
		p.AccountID, p.DisplayName,
	)
	if err != nil {
		return fmt.Errorf("upserting person %s: %w", p.AccountID, err)
	}
	return nil
}

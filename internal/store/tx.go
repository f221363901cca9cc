package store

import "github.com/jmoiron/sqlx"

// Tx wraps a *sqlx.Tx so writer methods on Store can take a transaction
// handle explicitly without ever committing it themselves. The caller
// (the Synchroniser, almost always) owns the commit/rollback decision.
type Tx struct {
	tx *sqlx.Tx
}

// Commit commits the underlying transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the underlying transaction. Calling Rollback
// after a successful Commit is a no-op error callers are expected to
// ignore (the standard database/sql contract), matching the prior design's
// `defer tx.Rollback()` idiom.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

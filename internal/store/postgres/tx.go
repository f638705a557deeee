package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/shopbot/internal/shop"
)

// withTx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return shop.Transient(op+": begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return shop.Transient(op+": commit", err)
	}
	return nil
}

// Package postgres implements store.Store on PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/store"
)

// Migrations embeds the schema applied by core/database.RunMigrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the SQL files.
const MigrationsDir = "migrations"

var _ store.Store = (*Store)(nil)

type Store struct {
	db *sqlx.DB
}

// New wraps an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return shop.Transient("ping", s.db.PingContext(ctx))
}

func (s *Store) Close() error {
	return s.db.Close()
}

const pgForeignKeyViolation = "23503"

// classify maps driver errors onto the shop error taxonomy.
func classify(op, entity string, key any, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return shop.NotFound(entity, key)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgForeignKeyViolation {
		return shop.NotFound(entity, key)
	}
	return shop.Transient(op, err)
}

// affected turns a zero-row update into NotFound.
func affected(res sql.Result, entity string, key any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return shop.Transient("rows affected", err)
	}
	if n == 0 {
		return shop.NotFound(entity, key)
	}
	return nil
}

// pageLimit maps a non-positive limit onto LIMIT NULL, which returns all rows.
func pageLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func isNotFound(err error) bool {
	return errors.Is(err, shop.ErrNotFound)
}

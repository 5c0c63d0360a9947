package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
)

//go:embed schema/*.sql
var schemaFS embed.FS

type sqlStore struct {
	db *sqlx.DB
}

// NewStore returns a Store backed by db. Both postgres and sqlite3 drivers are supported.
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Repositories() Repositories {
	return newRepositories(s.db)
}

func (s *sqlStore) Atomic(ctx context.Context, fn func(repos Repositories) error) error {
	return s.run(ctx, nil, fn)
}

// Read uses repeatable read on Postgres so every query in fn shares one
// snapshot. SQLite transactions are serializable already.
func (s *sqlStore) Read(ctx context.Context, fn func(repos Repositories) error) error {
	opts := &sql.TxOptions{ReadOnly: true}
	if s.db.DriverName() == "postgres" {
		opts.Isolation = sql.LevelRepeatableRead
	}
	return s.run(ctx, opts, fn)
}

func (s *sqlStore) run(ctx context.Context, opts *sql.TxOptions, fn func(repos Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(newRepositories(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func newRepositories(ext sqlx.ExtContext) Repositories {
	return Repositories{
		Products:     &productRepository{db: ext},
		Limits:       &limitsRepository{db: ext},
		Applications: &applicationRepository{db: ext},
		Loans:        &loanRepository{db: ext},
		Installments: &installmentRepository{db: ext},
		Payments:     &paymentRepository{db: ext},
		Waivers:      &waiverRepository{db: ext},
	}
}

// Migrate creates the tables for the database driver in use.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	name := "schema/" + db.DriverName() + ".sql"
	ddl, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("no schema for driver %s: %w", db.DriverName(), err)
	}
	if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// forUpdate returns the row-locking clause for the driver, if it has one.
// SQLite serializes writers at the database level instead.
func forUpdate(ext sqlx.ExtContext) string {
	if ext.DriverName() == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}

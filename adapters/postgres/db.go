package postgres

import (
	"context"
	"fmt"

	"gobrick/internal/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the ledger database. driver is "postgres" or "sqlite";
// a sqlite database is pinned to one connection so ":memory:" stays shared.
func Open(ctx context.Context, driver, url string) (*sqlx.DB, error) {
	if driver != "postgres" && driver != "sqlite" {
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported database driver %q", driver))
	}

	db, err := sqlx.ConnectContext(ctx, driver, url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

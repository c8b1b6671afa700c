package database

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/iliyamo/contact-book/internal/database/migrations"
)

// gooseUp is swapped in tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations that have not run yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("mysql"); err != nil {
		return err
	}
	return gooseUp(ctx, db, ".")
}

// Package migrations embeds the device SQLite schema and applies it with
// goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var Migrations embed.FS

// gooseLogger receives goose's progress lines. The CLI's stdout and stderr
// belong to command output, so they are dropped.
var gooseLogger goose.Logger = goose.NopLogger()

// Up applies every pending migration. It is safe to call on an up-to-date
// database.
func Up(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(Migrations)
	goose.SetLogger(gooseLogger)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Package repomanager opens the device database and hands out repositories
// bound to it or to a transaction.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gigbook/internal/client/migrations"
	"github.com/dmitrijs2005/gigbook/internal/client/repositories/deletes"
	"github.com/dmitrijs2005/gigbook/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gigbook/internal/client/repositories/records"
	"github.com/dmitrijs2005/gigbook/internal/dbx"

	_ "modernc.org/sqlite"
)

type RepositoryManager interface {
	Conn() dbx.DBTX
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error

	Records(db dbx.DBTX) records.Repository
	PendingDeletes(db dbx.DBTX) deletes.Repository
	Metadata(db dbx.DBTX) metadata.Repository

	Close() error
}

type SQLiteRepositoryManager struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dsn and migrates it.
// ":memory:" is accepted and pinned to a single connection.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteRepositoryManager, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepositoryManager{db: db}, nil
}

func (m *SQLiteRepositoryManager) Conn() dbx.DBTX {
	return m.db
}

func (m *SQLiteRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, m.db, nil, fn)
}

func (m *SQLiteRepositoryManager) Records(db dbx.DBTX) records.Repository {
	return records.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) PendingDeletes(db dbx.DBTX) deletes.Repository {
	return deletes.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Close() error {
	return m.db.Close()
}

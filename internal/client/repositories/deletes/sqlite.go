package deletes

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/dbx"
	"github.com/dmitrijs2005/gigbook/internal/schema"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Add(ctx context.Context, c schema.Collection, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_deletes (collection, id, deleted_at) VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET deleted_at = excluded.deleted_at
	`, string(c), id, models.FormatTime(at))
	if err != nil {
		return fmt.Errorf("failed to add pending delete %s/%s: %w", c, id, err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, c schema.Collection, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_deletes WHERE collection = ? AND id = ?`, string(c), id)
	if err != nil {
		return fmt.Errorf("failed to remove pending delete %s/%s: %w", c, id, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]PendingDelete, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT collection, id, deleted_at FROM pending_deletes ORDER BY deleted_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deletes: %w", err)
	}
	defer rows.Close()

	var out []PendingDelete
	for rows.Next() {
		var c, id, at string
		if err := rows.Scan(&c, &id, &at); err != nil {
			return nil, err
		}
		t, err := models.ParseTime(at)
		if err != nil {
			return nil, fmt.Errorf("deleted_at of %s: %w", id, err)
		}
		out = append(out, PendingDelete{Collection: schema.Collection(c), ID: id, DeletedAt: t})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) IDs(ctx context.Context, c schema.Collection) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM pending_deletes WHERE collection = ?`, string(c))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deletes of %s: %w", c, err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_deletes`); err != nil {
		return fmt.Errorf("failed to clear pending deletes: %w", err)
	}
	return nil
}

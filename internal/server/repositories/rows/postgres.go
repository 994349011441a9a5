package rows

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/common"
	"github.com/dmitrijs2005/gigbook/internal/dbx"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/server/models"
)

// PostgresRepository works over a dbx.DBTX (*sql.DB or *sql.Tx). Table names
// come from schema.Collection and are never user input.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func table(c schema.Collection) (string, error) {
	if _, err := schema.ParseCollection(string(c)); err != nil {
		return "", err
	}
	return c.Table(), nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, c schema.Collection, row *models.Row) error {
	t, err := table(c)
	if err != nil {
		return err
	}

	data, err := json.Marshal(row.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, user_id, platform, updated_at, last_synced_at, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			last_synced_at = EXCLUDED.last_synced_at,
			data = EXCLUDED.data
			WHERE %[1]s.user_id = EXCLUDED.user_id;
	`, t)

	res, err := r.db.ExecContext(ctx, query,
		row.ID, row.UserID, string(row.Platform), row.UpdatedAt, row.LastSyncedAt, string(data))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return err
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrOwnershipConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) Get(ctx context.Context, c schema.Collection, id, userID string) (*models.Row, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, user_id, platform, updated_at, last_synced_at, data FROM %s
		WHERE id = $1 AND user_id = $2`, t)

	row, err := scanRow(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return row, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, c schema.Collection, id, userID string) (bool, error) {
	t, err := table(c)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, t)

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepository) Select(ctx context.Context, c schema.Collection, userID string, platforms []schema.Platform) ([]*models.Row, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}
	if len(platforms) == 0 {
		return nil, nil
	}

	args := []any{userID}
	marks := make([]string, 0, len(platforms))
	for _, p := range platforms {
		args = append(args, string(p))
		marks = append(marks, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT id, user_id, platform, updated_at, last_synced_at, data FROM %s
		WHERE user_id = $1 AND platform IN (%s)
		ORDER BY updated_at`, t, strings.Join(marks, ", "))

	rs, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", t, err)
	}
	defer rs.Close()

	var result []*models.Row
	for rs.Next() {
		item, err := scanRow(rs)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (*models.Row, error) {
	var (
		item     models.Row
		platform string
		data     []byte
		updated  time.Time
		synced   time.Time
	)
	if err := s.Scan(&item.ID, &item.UserID, &platform, &updated, &synced, &data); err != nil {
		return nil, err
	}
	item.Platform = schema.Platform(platform)
	item.UpdatedAt = updated.UTC()
	item.LastSyncedAt = synced.UTC()
	if err := json.Unmarshal(data, &item.Data); err != nil {
		return nil, fmt.Errorf("row %s: decode data: %w", item.ID, err)
	}
	return &item, nil
}

func (r *PostgresRepository) Count(ctx context.Context, c schema.Collection, userID string, platform schema.Platform) (int64, error) {
	t, err := table(c)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1 AND platform = $2`, t)

	var n int64
	if err := r.db.QueryRowContext(ctx, query, userID, string(platform)).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

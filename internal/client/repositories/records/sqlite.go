package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/common"
	"github.com/dmitrijs2005/gigbook/internal/dbx"
	"github.com/dmitrijs2005/gigbook/internal/schema"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `id, owner_id, platform, payload, updated_at, last_synced_at`

func (r *SQLiteRepository) Put(ctx context.Context, c schema.Collection, rec *models.Record, pending bool) error {
	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", c, rec.ID, err)
	}

	var synced sql.NullString
	if rec.LastSyncedAt != nil {
		synced = sql.NullString{String: models.FormatTime(*rec.LastSyncedAt), Valid: true}
	}

	query := `INSERT INTO records (collection, id, owner_id, platform, payload, updated_at, last_synced_at, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			owner_id = excluded.owner_id,
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			last_synced_at = excluded.last_synced_at,
			pending = excluded.pending`

	_, err = r.db.ExecContext(ctx, query,
		string(c), rec.ID, rec.OwnerID, string(rec.Platform), string(payload),
		models.FormatTime(rec.UpdatedAt), synced, pending)
	if err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", c, rec.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec               models.Record
		platform, payload string
		updated           string
		synced            sql.NullString
	)
	if err := s.Scan(&rec.ID, &rec.OwnerID, &platform, &payload, &updated, &synced); err != nil {
		return nil, err
	}

	rec.Platform = schema.Platform(platform)
	if err := json.Unmarshal([]byte(payload), &rec.Fields); err != nil {
		return nil, fmt.Errorf("decode payload of %s: %w", rec.ID, err)
	}
	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}

	t, err := models.ParseTime(updated)
	if err != nil {
		return nil, fmt.Errorf("updated_at of %s: %w", rec.ID, err)
	}
	rec.UpdatedAt = t

	if synced.Valid {
		t, err := models.ParseTime(synced.String)
		if err != nil {
			return nil, fmt.Errorf("last_synced_at of %s: %w", rec.ID, err)
		}
		rec.LastSyncedAt = &t
	}
	return &rec, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, c schema.Collection, id string) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM records WHERE collection = ? AND id = ?`, string(c), id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", c, id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) List(ctx context.Context, c schema.Collection, platforms []schema.Platform) ([]*models.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM records WHERE collection = ?`
	args := []any{string(c)}

	if platforms != nil {
		if len(platforms) == 0 {
			return nil, nil
		}
		placeholders := make([]string, len(platforms))
		for i, p := range platforms {
			placeholders[i] = "?"
			args = append(args, string(p))
		}
		query += ` AND platform IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY updated_at DESC, id`

	return r.query(ctx, query, args...)
}

func (r *SQLiteRepository) ListPending(ctx context.Context, c schema.Collection) ([]*models.Record, error) {
	return r.query(ctx,
		`SELECT `+selectColumns+` FROM records WHERE collection = ? AND pending = 1 ORDER BY updated_at, id`,
		string(c))
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, c schema.Collection, id string, updatedAt, syncedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE records SET pending = 0, last_synced_at = ? WHERE collection = ? AND id = ? AND updated_at = ?`,
		models.FormatTime(syncedAt), string(c), id, models.FormatTime(updatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to mark %s/%s synced: %w", c, id, err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, c schema.Collection, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, string(c), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s/%s: %w", c, id, err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, c schema.Collection) (int64, int64, error) {
	var total, pending int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(pending), 0) FROM records WHERE collection = ?`, string(c)).
		Scan(&total, &pending)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count %s: %w", c, err)
	}
	return total, pending, nil
}

func (r *SQLiteRepository) DropForeign(ctx context.Context, owner string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE owner_id <> '' AND owner_id <> ?`, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to drop records of other accounts: %w", err)
	}
	return dbx.RowsAffected(res)
}

func (r *SQLiteRepository) Adopt(ctx context.Context, owner string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE records SET owner_id = ? WHERE owner_id = ''`, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to adopt ownerless records: %w", err)
	}
	return dbx.RowsAffected(res)
}

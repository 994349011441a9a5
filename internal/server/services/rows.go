package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/common"
	"github.com/dmitrijs2005/gigbook/internal/dbx"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/server/models"
	"github.com/dmitrijs2005/gigbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gigbook/internal/tier"
)

// RowService applies the sync protocol to the collection tables. The owner
// always comes from the authenticated session, never from the payload.
type RowService struct {
	repomanager repomanager.RepositoryManager
	tiers       *TierCache
	now         func() time.Time
}

func NewRowService(m repomanager.RepositoryManager, tiers *TierCache) *RowService {
	return &RowService{
		repomanager: m,
		tiers:       tiers,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *RowService) prepare(userID string, cloud map[string]any, syncedAt time.Time) (*models.Row, error) {
	row, err := models.RowFromCloud(cloud)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	row.UserID = userID
	row.LastSyncedAt = syncedAt
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = syncedAt
	}
	return row, nil
}

// Upsert stores one row and returns it as persisted, including the
// server-assigned last_synced_at. The platform echoed back is the stored
// one, which an update never changes.
func (s *RowService) Upsert(ctx context.Context, userID string, c schema.Collection, cloud map[string]any) (map[string]any, error) {
	row, err := s.prepare(userID, cloud, s.now())
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Rows(s.repomanager.Conn())
	if err := repo.Upsert(ctx, c, row); err != nil {
		return nil, err
	}

	stored, err := repo.Get(ctx, c, row.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("reload %s: %w", row.ID, err)
	}
	return stored.Cloud(), nil
}

// PushAll upserts many rows of one collection in a single transaction and
// returns them as persisted, like Upsert. Rows not listed are left alone.
func (s *RowService) PushAll(ctx context.Context, userID string, c schema.Collection, cloud []map[string]any) ([]map[string]any, error) {
	syncedAt := s.now()

	prepared := make([]*models.Row, 0, len(cloud))
	for _, m := range cloud {
		row, err := s.prepare(userID, m, syncedAt)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, row)
	}

	out := make([]map[string]any, 0, len(prepared))
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Rows(tx)
		for _, row := range prepared {
			if err := repo.Upsert(ctx, c, row); err != nil {
				return fmt.Errorf("row %s: %w", row.ID, err)
			}
		}
		for _, row := range prepared {
			stored, err := repo.Get(ctx, c, row.ID, userID)
			if err != nil {
				return fmt.Errorf("reload %s: %w", row.ID, err)
			}
			out = append(out, stored.Cloud())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the row if the caller owns it. Deleting a missing row is
// not an error.
func (s *RowService) Delete(ctx context.Context, userID string, c schema.Collection, id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: empty id", common.ErrorValidation)
	}
	return s.repomanager.Rows(s.repomanager.Conn()).Delete(ctx, c, id, userID)
}

// PullAll returns the caller's rows for each collection on the requested
// platforms, narrowed to what the account's tier may read from current.
func (s *RowService) PullAll(ctx context.Context, userID string, current schema.Platform, platforms []schema.Platform, collections []schema.Collection) (map[schema.Collection][]map[string]any, error) {
	t, err := s.tiers.Tier(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve tier: %w", err)
	}

	allowed := tier.Filter(t, current, platforms)
	if len(collections) == 0 {
		collections = schema.Collections()
	}

	repo := s.repomanager.Rows(s.repomanager.Conn())
	out := make(map[schema.Collection][]map[string]any, len(collections))
	for _, c := range collections {
		rows, err := repo.Select(ctx, c, userID, allowed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		converted := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			converted = append(converted, r.Cloud())
		}
		out[c] = converted
	}
	return out, nil
}

// Count backs cross-platform merge detection. It answers only for platforms
// the account's tier may read from current, the same clamp PullAll applies.
func (s *RowService) Count(ctx context.Context, userID string, c schema.Collection, current, p schema.Platform) (int64, error) {
	t, err := s.tiers.Tier(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("resolve tier: %w", err)
	}
	if !tier.CanAccessPlatform(t, p, current) {
		return 0, fmt.Errorf("%w: %s from %s", common.ErrTierLocked, p, current)
	}
	return s.repomanager.Rows(s.repomanager.Conn()).Count(ctx, c, userID, p)
}

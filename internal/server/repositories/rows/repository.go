// Package rows persists collection records on the cloud side. Every table
// has the same shape, so one repository serves all collections.
package rows

import (
	"context"

	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/server/models"
)

type Repository interface {
	// Upsert inserts row or overwrites the stored row with the same id.
	// Platform is kept from the first insert. An id owned by another user
	// yields common.ErrOwnershipConflict.
	Upsert(ctx context.Context, c schema.Collection, row *models.Row) error

	// Get returns common.ErrorNotFound unless userID owns the row.
	Get(ctx context.Context, c schema.Collection, id, userID string) (*models.Row, error)

	// Delete removes the row only when it belongs to userID.
	Delete(ctx context.Context, c schema.Collection, id, userID string) (bool, error)

	// Select returns every row of userID on the given platforms.
	Select(ctx context.Context, c schema.Collection, userID string, platforms []schema.Platform) ([]*models.Row, error)

	// Count counts rows of userID on one platform.
	Count(ctx context.Context, c schema.Collection, userID string, platform schema.Platform) (int64, error)
}

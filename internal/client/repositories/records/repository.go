// Package records persists device records of every collection in one
// SQLite table.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/schema"
)

type Repository interface {
	// Put inserts or replaces the record. pending marks it for the next push.
	Put(ctx context.Context, c schema.Collection, rec *models.Record, pending bool) error

	// Get returns common.ErrorNotFound for a missing record.
	Get(ctx context.Context, c schema.Collection, id string) (*models.Record, error)

	// List returns the records on the given platforms, newest first. A nil
	// platforms slice means every platform.
	List(ctx context.Context, c schema.Collection, platforms []schema.Platform) ([]*models.Record, error)

	ListPending(ctx context.Context, c schema.Collection) ([]*models.Record, error)

	// MarkSynced clears the pending flag and stores the server timestamp,
	// but only while the stored updated_at still equals updatedAt. A local
	// edit made while the push was in flight keeps the record pending.
	MarkSynced(ctx context.Context, c schema.Collection, id string, updatedAt, syncedAt time.Time) (bool, error)

	Delete(ctx context.Context, c schema.Collection, id string) (bool, error)

	// Count returns the total and pending number of records.
	Count(ctx context.Context, c schema.Collection) (total int64, pending int64, err error)

	// DropForeign deletes every record owned by an account other than
	// owner. Ownerless records are kept.
	DropForeign(ctx context.Context, owner string) (int64, error)

	// Adopt assigns owner to every ownerless record.
	Adopt(ctx context.Context, owner string) (int64, error)
}

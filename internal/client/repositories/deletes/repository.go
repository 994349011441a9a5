// Package deletes tracks local deletions whose cloud delete has not been
// confirmed yet. A pull skips these ids so it cannot resurrect them.
package deletes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/schema"
)

type PendingDelete struct {
	Collection schema.Collection
	ID         string
	DeletedAt  time.Time
}

type Repository interface {
	Add(ctx context.Context, c schema.Collection, id string, at time.Time) error
	Remove(ctx context.Context, c schema.Collection, id string) error
	List(ctx context.Context) ([]PendingDelete, error)
	// IDs returns the pending ids of one collection as a set.
	IDs(ctx context.Context, c schema.Collection) (map[string]bool, error)
	Clear(ctx context.Context) error
}

package rows

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/common"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	row := sampleRow()
	require.NoError(t, r.Upsert(ctx, schema.Events, row))
	require.NoError(t, r.Upsert(ctx, schema.Events, row))

	got, err := r.Select(ctx, schema.Events, "u1", []schema.Platform{schema.Web})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, row, got[0])
}

func TestMemory_OwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	require.NoError(t, r.Upsert(ctx, schema.Events, sampleRow()))

	other := sampleRow()
	other.UserID = "u2"
	require.ErrorIs(t, r.Upsert(ctx, schema.Events, other), common.ErrOwnershipConflict)

	ok, err := r.Delete(ctx, schema.Events, "e1", "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	n, _ := r.Count(ctx, schema.Events, "u1", schema.Web)
	assert.Equal(t, int64(1), n)

	ok, err = r.Delete(ctx, schema.Events, "e1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_PlatformNeverChanges(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	require.NoError(t, r.Upsert(ctx, schema.Events, sampleRow()))

	moved := sampleRow()
	moved.Platform = schema.Native
	moved.UpdatedAt = ts.Add(time.Hour)
	moved.Data["title"] = "Late set"
	require.NoError(t, r.Upsert(ctx, schema.Events, moved))

	got, _ := r.Select(ctx, schema.Events, "u1", []schema.Platform{schema.Web, schema.Native})
	require.Len(t, got, 1)
	assert.Equal(t, schema.Web, got[0].Platform)
	assert.Equal(t, "Late set", got[0].Data["title"])
}

func TestMemory_SelectAndCountByPlatform(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	for i, p := range []schema.Platform{schema.Web, schema.Native, schema.Native} {
		row := &models.Row{ID: string(rune('a' + i)), UserID: "u1", Platform: p, UpdatedAt: ts.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, r.Upsert(ctx, schema.Blocks, row))
	}
	require.NoError(t, r.Upsert(ctx, schema.Blocks, &models.Row{ID: "z", UserID: "u2", Platform: schema.Native}))

	web, _ := r.Select(ctx, schema.Blocks, "u1", []schema.Platform{schema.Web})
	assert.Len(t, web, 1)

	n, _ := r.Count(ctx, schema.Blocks, "u1", schema.Native)
	assert.Equal(t, int64(2), n)

	_, err := r.Count(ctx, "songs", "u1", schema.Web)
	require.ErrorIs(t, err, common.ErrUnknownCollection)
}

func TestMemory_GetScopedByOwner(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	require.NoError(t, r.Upsert(ctx, schema.Events, sampleRow()))

	got, err := r.Get(ctx, schema.Events, "e1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Jazz night", got.Data["title"])

	_, err = r.Get(ctx, schema.Events, "e1", "u2")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

package merge

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/client/client"
	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/gigbook/internal/client/store"
	"github.com/dmitrijs2005/gigbook/internal/logging"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCloud is an in-memory cloud keyed by collection and id.
type fakeCloud struct {
	mu       sync.Mutex
	rows     map[schema.Collection]map[string]*models.Record
	countErr error
	pushErr  map[schema.Collection]error
	pulls    int
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{rows: map[schema.Collection]map[string]*models.Record{}}
}

func (f *fakeCloud) put(c schema.Collection, r *models.Record) {
	if f.rows[c] == nil {
		f.rows[c] = map[string]*models.Record{}
	}
	f.rows[c][r.ID] = r.Clone()
}

func (f *fakeCloud) Count(ctx context.Context, c schema.Collection, p schema.Platform) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	var n int64
	for _, r := range f.rows[c] {
		if r.Platform == p {
			n++
		}
	}
	return n, nil
}

func (f *fakeCloud) PullAll(ctx context.Context, platforms []schema.Platform) (models.Bundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	out := models.Bundle{}
	for c, rows := range f.rows {
		for _, r := range rows {
			for _, p := range platforms {
				if r.Platform == p {
					out[c] = append(out[c], r.Clone())
				}
			}
		}
	}
	return out, nil
}

func (f *fakeCloud) PushAll(ctx context.Context, c schema.Collection, recs []*models.Record) ([]*models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pushErr[c]; err != nil {
		return nil, err
	}
	synced := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*models.Record, 0, len(recs))
	for _, r := range recs {
		stored := r.Clone()
		if prev, ok := f.rows[c][r.ID]; ok {
			stored.Platform = prev.Platform
		}
		stored.LastSyncedAt = &synced
		f.put(c, stored)
		out = append(out, stored.Clone())
	}
	return out, nil
}

type offline struct{}

func (offline) Session() (client.Session, bool) { return client.Session{}, false }
func (offline) Upsert(context.Context, schema.Collection, *models.Record) (*models.Record, error) {
	return nil, nil
}
func (offline) Delete(context.Context, schema.Collection, string) error { return nil }

func newLocal(t *testing.T, p schema.Platform) *store.Store {
	t.Helper()
	rm, err := repomanager.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rm.Close() })

	tagger, err := store.NewPlatformTagger(p)
	require.NoError(t, err)
	return store.New(rm, tagger, offline{}, func() tier.Tier { return tier.Paid }, logging.Nop())
}

func rec(id string, p schema.Platform, title string) *models.Record {
	return &models.Record{
		ID:        id,
		OwnerID:   "u1",
		Platform:  p,
		Fields:    map[string]any{"title": title},
		UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func ids(recs []*models.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	sort.Strings(out)
	return out
}

func paid() tier.Tier { return tier.Paid }
func free() tier.Tier { return tier.Free }

func TestCheck_LockedForFreeTier(t *testing.T) {
	cloud := newFakeCloud()
	m := NewCoordinator(cloud, newLocal(t, schema.Native), schema.Native, free, logging.Nop())

	_, _, err := m.Check(context.Background())
	require.ErrorIs(t, err, ErrCrossPlatformLocked)
	st, _, _ := m.State()
	assert.Equal(t, Unchecked, st)
}

func TestCheck_NothingOnOtherPlatform(t *testing.T) {
	cloud := newFakeCloud()
	cloud.put(schema.Events, rec("n1", schema.Native, "own island"))
	m := NewCoordinator(cloud, newLocal(t, schema.Native), schema.Native, paid, logging.Nop())

	st, counts, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Resolved, st)
	assert.Zero(t, counts.Total())

	_, _, res := m.State()
	assert.Equal(t, None, res)
	require.ErrorIs(t, m.KeepSeparate(), ErrNotDetected)
}

func TestCheck_Detects(t *testing.T) {
	cloud := newFakeCloud()
	cloud.put(schema.Events, rec("w1", schema.Web, "a"))
	cloud.put(schema.Events, rec("w2", schema.Web, "b"))
	cloud.put(schema.People, rec("w3", schema.Web, "c"))
	m := NewCoordinator(cloud, newLocal(t, schema.Native), schema.Native, paid, logging.Nop())

	st, counts, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Detected, st)
	assert.Equal(t, Counts{schema.Events: 2, schema.People: 1}, counts)

	// a second check does not hit the cloud again
	cloud.countErr = errors.New("should not be called")
	st, _, err = m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Detected, st)
}

func TestCheck_CountErrorStaysUnchecked(t *testing.T) {
	cloud := newFakeCloud()
	cloud.countErr = client.ErrUnavailable
	m := NewCoordinator(cloud, newLocal(t, schema.Native), schema.Native, paid, logging.Nop())

	_, _, err := m.Check(context.Background())
	require.ErrorIs(t, err, client.ErrUnavailable)
	st, _, _ := m.State()
	assert.Equal(t, Unchecked, st)
}

func TestKeepSeparate_FetchesNothing(t *testing.T) {
	cloud := newFakeCloud()
	cloud.put(schema.Blocks, rec("w1", schema.Web, "a"))
	m := NewCoordinator(cloud, newLocal(t, schema.Native), schema.Native, paid, logging.Nop())

	_, _, err := m.Check(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.KeepSeparate())

	st, _, res := m.State()
	assert.Equal(t, Resolved, st)
	assert.Equal(t, KeptSeparate, res)
	assert.Zero(t, cloud.pulls)

	_, err = m.Merge(context.Background())
	require.ErrorIs(t, err, ErrNotDetected)
}

func TestMerge_UnionOfBothIslands(t *testing.T) {
	ctx := context.Background()
	cloud := newFakeCloud()
	cloud.put(schema.Events, rec("w1", schema.Web, "web gig"))
	cloud.put(schema.Events, rec("n1", schema.Native, "native gig, cloud"))
	cloud.put(schema.Routines, rec("w2", schema.Web, "web routine"))

	local := newLocal(t, schema.Native)
	mine, err := local.Create(ctx, schema.Events, map[string]any{"title": "native gig, device only"})
	require.NoError(t, err)

	m := NewCoordinator(cloud, local, schema.Native, paid, logging.Nop())
	_, _, err = m.Check(ctx)
	require.NoError(t, err)

	rep, err := m.Merge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Pulled)
	assert.Equal(t, 4, rep.Pushed)

	st, _, res := m.State()
	assert.Equal(t, Resolved, st)
	assert.Equal(t, Merged, res)

	events, err := local.All(ctx, schema.Events)
	require.NoError(t, err)
	want := []string{"n1", "w1", mine.ID}
	sort.Strings(want)
	if diff := cmp.Diff(want, ids(events)); diff != "" {
		t.Fatalf("device events mismatch (-want +got):\n%s", diff)
	}

	routines, err := local.All(ctx, schema.Routines)
	require.NoError(t, err)
	assert.Equal(t, []string{"w2"}, ids(routines))

	assert.Len(t, cloud.rows[schema.Events], 3)
	assert.Equal(t, schema.Web, cloud.rows[schema.Events]["w1"].Platform)
	assert.Equal(t, schema.Native, cloud.rows[schema.Events][mine.ID].Platform)

	for _, c := range []schema.Collection{schema.Events, schema.Routines} {
		pending, err := local.Pending(ctx, c)
		require.NoError(t, err)
		assert.Empty(t, pending, c)
	}
}

func TestMerge_SameIDOnBothPlatformsKeepsNewer(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t, schema.Native)

	kept, err := local.Create(ctx, schema.Events, map[string]any{"title": "device copy"})
	require.NoError(t, err)
	replaced, err := local.Create(ctx, schema.Events, map[string]any{"title": "stale device copy"})
	require.NoError(t, err)

	cloud := newFakeCloud()
	older := rec(kept.ID, schema.Web, "stale cloud copy")
	older.UpdatedAt = kept.UpdatedAt.Add(-time.Hour)
	cloud.put(schema.Events, older)
	newer := rec(replaced.ID, schema.Web, "cloud copy")
	newer.UpdatedAt = replaced.UpdatedAt.Add(time.Hour)
	cloud.put(schema.Events, newer)

	m := NewCoordinator(cloud, local, schema.Native, paid, logging.Nop())
	_, counts, err := m.Check(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[schema.Events])

	rep, err := m.Merge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Reconciled.Kept)
	assert.Equal(t, 1, rep.Reconciled.Updated)
	assert.Zero(t, rep.Reconciled.Added)

	events, err := local.All(ctx, schema.Events)
	require.NoError(t, err)
	want := []string{kept.ID, replaced.ID}
	sort.Strings(want)
	if diff := cmp.Diff(want, ids(events)); diff != "" {
		t.Fatalf("device events mismatch (-want +got):\n%s", diff)
	}

	got, err := local.Get(ctx, schema.Events, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "device copy", got.Fields["title"])
	assert.True(t, got.UpdatedAt.Equal(kept.UpdatedAt), "local copy was newer")

	got, err = local.Get(ctx, schema.Events, replaced.ID)
	require.NoError(t, err)
	assert.Equal(t, "cloud copy", got.Fields["title"])
	assert.True(t, got.UpdatedAt.Equal(newer.UpdatedAt), "cloud copy was newer")

	require.Len(t, cloud.rows[schema.Events], 2)
	assert.Equal(t, "device copy", cloud.rows[schema.Events][kept.ID].Fields["title"])
	assert.True(t, cloud.rows[schema.Events][kept.ID].UpdatedAt.Equal(kept.UpdatedAt))
	assert.Equal(t, "cloud copy", cloud.rows[schema.Events][replaced.ID].Fields["title"])
}

func TestMerge_PartialFailureStaysDetected(t *testing.T) {
	ctx := context.Background()
	cloud := newFakeCloud()
	cloud.put(schema.Events, rec("w1", schema.Web, "web gig"))
	cloud.put(schema.People, rec("w2", schema.Web, "web person"))
	cloud.pushErr = map[schema.Collection]error{schema.People: errors.New("people down")}

	local := newLocal(t, schema.Native)
	m := NewCoordinator(cloud, local, schema.Native, paid, logging.Nop())
	_, _, err := m.Check(ctx)
	require.NoError(t, err)

	_, err = m.Merge(ctx)
	require.ErrorContains(t, err, "people down")

	st, _, _ := m.State()
	assert.Equal(t, Detected, st)

	events, err := local.All(ctx, schema.Events)
	require.NoError(t, err)
	assert.Len(t, events, 1, "successful collections are not rolled back")
}

func TestMerge_RequiresDetected(t *testing.T) {
	m := NewCoordinator(newFakeCloud(), newLocal(t, schema.Web), schema.Web, paid, logging.Nop())
	_, err := m.Merge(context.Background())
	require.ErrorIs(t, err, ErrNotDetected)
}

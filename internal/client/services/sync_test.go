package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/client/client"
	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/client/status"
	"github.com/dmitrijs2005/gigbook/internal/client/store"
	"github.com/dmitrijs2005/gigbook/internal/logging"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	online    bool
	pingErr   error
	deleteErr error
	pushErr   map[schema.Collection]error
	pullErr   error

	deleted   []string
	pushed    map[schema.Collection]int
	platforms []schema.Platform
	bundle    models.Bundle
}

func (f *fakeRemote) Session() (client.Session, bool) {
	return client.Session{UserID: "u1"}, f.online
}

func (f *fakeRemote) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeRemote) Upsert(ctx context.Context, c schema.Collection, rec *models.Record) (*models.Record, error) {
	return nil, errors.New("offline in tests")
}

func (f *fakeRemote) Delete(ctx context.Context, c schema.Collection, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRemote) PushAll(ctx context.Context, c schema.Collection, recs []*models.Record) ([]*models.Record, error) {
	if err := f.pushErr[c]; err != nil {
		return nil, err
	}
	if f.pushed == nil {
		f.pushed = map[schema.Collection]int{}
	}
	f.pushed[c] += len(recs)
	synced := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*models.Record, 0, len(recs))
	for _, r := range recs {
		s := r.Clone()
		s.LastSyncedAt = &synced
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeRemote) PullAll(ctx context.Context, platforms []schema.Platform) (models.Bundle, error) {
	f.platforms = platforms
	return f.bundle, f.pullErr
}

type syncFixture struct {
	remote *fakeRemote
	store  *store.Store
	svc    SyncService
	tier   tier.Tier
}

func newSyncFixture(t *testing.T, r *fakeRemote) *syncFixture {
	t.Helper()
	rm := openDB(t)
	f := &syncFixture{remote: r, tier: tier.Free}

	tagger, err := store.NewPlatformTagger(schema.Native)
	require.NoError(t, err)
	tierFn := func() tier.Tier { return f.tier }
	f.store = store.New(rm, tagger, r, tierFn, logging.Nop())
	f.svc = NewSyncService(r, f.store, tierFn, rm.Metadata(rm.Conn()), time.Second, logging.Nop())
	return f
}

func TestFullSync_NoSessionGoesOffline(t *testing.T) {
	f := newSyncFixture(t, &fakeRemote{})

	var seen []status.State
	f.svc.Status().Subscribe(func(tr status.Transition) { seen = append(seen, tr.To) })

	rep, err := f.svc.FullSync(context.Background(), SyncOptions{})
	require.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.Equal(t, status.Offline, rep.State)
	assert.Equal(t, []status.State{status.Syncing, status.Offline}, seen)
}

func TestFullSync_UnreachableGoesOffline(t *testing.T) {
	f := newSyncFixture(t, &fakeRemote{online: true, pingErr: client.ErrUnavailable})

	var seen []status.State
	f.svc.Status().Subscribe(func(tr status.Transition) { seen = append(seen, tr.To) })

	_, err := f.svc.FullSync(context.Background(), SyncOptions{})
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.NotContains(t, seen, status.Synced)
	assert.Equal(t, status.Offline, f.svc.Status().State())
	assert.ErrorIs(t, f.svc.Status().LastError(), client.ErrUnavailable)
}

func TestFullSync_PushesPendingAndPulls(t *testing.T) {
	ctx := context.Background()
	r := &fakeRemote{}
	f := newSyncFixture(t, r)

	created, err := f.store.Create(ctx, schema.Events, map[string]any{"title": "Gig"})
	require.NoError(t, err)
	r.online = true
	r.bundle = models.Bundle{schema.People: {
		{ID: "p1", Platform: schema.Native, Fields: map[string]any{"name": "Ana"}, UpdatedAt: time.Now()},
	}}

	var seen []status.State
	f.svc.Status().Subscribe(func(tr status.Transition) { seen = append(seen, tr.To) })

	rep, err := f.svc.FullSync(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, []status.State{status.Syncing, status.Synced}, seen)
	assert.Equal(t, 1, rep.Pushed)
	assert.Equal(t, 1, rep.Pulled)
	assert.Equal(t, 1, rep.Reconciled.Added)
	assert.Equal(t, []schema.Platform{schema.Native}, r.platforms)

	got, err := f.store.Get(ctx, schema.Events, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastSyncedAt)

	_, err = f.store.Get(ctx, schema.People, "p1")
	require.NoError(t, err)

	// nothing pending the second time
	rep, err = f.svc.FullSync(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Zero(t, rep.Pushed)

	// unless everything is requested
	rep, err = f.svc.FullSync(ctx, SyncOptions{FullPush: true})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Pushed)
}

func TestFullSync_PaidPullsBothPlatforms(t *testing.T) {
	r := &fakeRemote{online: true}
	f := newSyncFixture(t, r)
	f.tier = tier.Paid

	_, err := f.svc.FullSync(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, []schema.Platform{schema.Native, schema.Web}, r.platforms)
}

func TestFullSync_RetriesPendingDeletes(t *testing.T) {
	ctx := context.Background()
	r := &fakeRemote{}
	f := newSyncFixture(t, r)

	rec, err := f.store.Create(ctx, schema.Routines, map[string]any{"title": "Scales"})
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(ctx, schema.Routines, rec.ID))

	// the cloud still has it; the pull must not bring it back
	r.online = true
	r.bundle = models.Bundle{schema.Routines: {rec}}
	r.deleteErr = client.ErrUnavailable

	_, err = f.svc.FullSync(ctx, SyncOptions{})
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, status.Idle, f.svc.Status().State())
	_, err = f.store.Get(ctx, schema.Routines, rec.ID)
	require.Error(t, err)

	r.deleteErr = nil
	rep, err := f.svc.FullSync(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Deleted)
	assert.Equal(t, []string{rec.ID}, r.deleted)
}

func TestFullSync_PartialFailure(t *testing.T) {
	ctx := context.Background()
	r := &fakeRemote{pushErr: map[schema.Collection]error{schema.Blocks: errors.New("blocks down")}}
	f := newSyncFixture(t, r)

	ev, err := f.store.Create(ctx, schema.Events, map[string]any{"title": "Gig"})
	require.NoError(t, err)
	_, err = f.store.Create(ctx, schema.Blocks, map[string]any{"title": "Warmup"})
	require.NoError(t, err)
	r.online = true

	rep, err := f.svc.FullSync(ctx, SyncOptions{})
	require.ErrorContains(t, err, "blocks down")
	assert.Equal(t, status.Idle, rep.State)
	assert.Equal(t, 1, rep.Pushed)

	got, err := f.store.Get(ctx, schema.Events, ev.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastSyncedAt, "successful collections are kept")

	pending, err := f.store.Pending(ctx, schema.Blocks)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestFullSync_RejectsConcurrentRun(t *testing.T) {
	f := newSyncFixture(t, &fakeRemote{online: true})
	require.NoError(t, f.svc.Status().Begin())

	_, err := f.svc.FullSync(context.Background(), SyncOptions{})
	require.ErrorIs(t, err, status.ErrSyncInProgress)
}

func TestFullSync_RecordsLastState(t *testing.T) {
	ctx := context.Background()
	rm := openDB(t)
	r := &fakeRemote{}
	tagger, err := store.NewPlatformTagger(schema.Web)
	require.NoError(t, err)
	st := store.New(rm, tagger, r, func() tier.Tier { return tier.Free }, logging.Nop())
	svc := NewSyncService(r, st, func() tier.Tier { return tier.Free }, rm.Metadata(rm.Conn()), 0, logging.Nop())

	_, err = svc.FullSync(ctx, SyncOptions{})
	require.Error(t, err)

	values, err := rm.Metadata(rm.Conn()).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "offline", values[KeyLastSyncState])
	assert.Equal(t, client.ErrUnauthenticated.Error(), values[KeyLastSyncError])
	assert.NotEmpty(t, values[KeyLastSyncAt])
}

package services

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/client/client"
	"github.com/dmitrijs2005/gigbook/internal/client/gateway"
	"github.com/dmitrijs2005/gigbook/internal/client/merge"
	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/gigbook/internal/client/status"
	"github.com/dmitrijs2005/gigbook/internal/client/store"
	"github.com/dmitrijs2005/gigbook/internal/common"
	"github.com/dmitrijs2005/gigbook/internal/logging"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/server/config"
	servergrpc "github.com/dmitrijs2005/gigbook/internal/server/grpc"
	serverrepos "github.com/dmitrijs2005/gigbook/internal/server/repositories/repomanager"
	serversvc "github.com/dmitrijs2005/gigbook/internal/server/services"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

const adminKey = "admin-secret"

// startServer runs the real sync service with in-memory repositories.
func startServer(t *testing.T) *bufconn.Listener {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AdminKey = adminKey

	m := serverrepos.NewMemoryRepositoryManager()
	tiers := serversvc.NewTierCache(m, cfg.TierCacheTTL)
	srv := servergrpc.NewGRPCServer("", logging.Nop(),
		serversvc.NewUserService(m, tiers, cfg),
		serversvc.NewRowService(m, tiers),
		serversvc.NewMediaService(cfg),
		cfg.SecretKey, cfg.AdminKey)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, lis)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return lis
}

type device struct {
	client *client.GRPCClient
	gw     *gateway.Gateway
	store  *store.Store
	auth   AuthService
	sync   SyncService
	merge  *merge.Coordinator
}

func newDevice(t *testing.T, lis *bufconn.Listener, p schema.Platform) *device {
	t.Helper()
	ctx := context.Background()

	c, err := client.NewGRPCClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	rm, err := repomanager.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rm.Close() })

	log := logging.Nop()
	auth := NewAuthService(c, rm, log)
	gw := gateway.New(c, p, 5*time.Second, log)
	tagger, err := store.NewPlatformTagger(p)
	require.NoError(t, err)
	st := store.New(rm, tagger, gw, auth.Tier, log)
	t.Cleanup(st.Wait)

	return &device{
		client: c,
		gw:     gw,
		store:  st,
		auth:   auth,
		sync:   NewSyncService(gw, st, auth.Tier, rm.Metadata(rm.Conn()), 30*time.Second, log),
		merge:  merge.NewCoordinator(gw, st, p, auth.Tier, log),
	}
}

func TestEndToEnd_PlatformIslandsAndUpgrade(t *testing.T) {
	ctx := context.Background()
	lis := startServer(t)

	web := newDevice(t, lis, schema.Web)

	// Offline create: the record exists locally, the push is a no-op.
	e1, err := web.store.Create(ctx, schema.Events, map[string]any{"title": "Rehearsal"})
	require.NoError(t, err)
	stored, err := web.gw.Upsert(ctx, schema.Events, e1)
	require.NoError(t, err)
	assert.Nil(t, stored)
	got, err := web.store.Get(ctx, schema.Events, e1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rehearsal", got.Fields["title"])

	_, err = web.auth.Register(ctx, "band@example.com", "correct horse")
	require.NoError(t, err)
	sess, err := web.auth.Login(ctx, "band@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, tier.Free, sess.Tier)

	pushed, err := web.gw.PushAll(ctx, schema.Events, []*models.Record{e1})
	require.NoError(t, err)
	require.Len(t, pushed, 1)
	assert.Equal(t, e1.ID, pushed[0].ID)
	assert.Equal(t, sess.UserID, pushed[0].OwnerID)
	assert.Equal(t, schema.Web, pushed[0].Platform)
	assert.Equal(t, "Rehearsal", pushed[0].Fields["title"])
	require.NotNil(t, pushed[0].LastSyncedAt)

	// Same account on a native device, still free.
	native := newDevice(t, lis, schema.Native)
	_, err = native.auth.Login(ctx, "band@example.com", "correct horse")
	require.NoError(t, err)

	bundle, err := native.gw.PullAll(ctx, []schema.Platform{schema.Native, schema.Web})
	require.NoError(t, err)
	assert.Empty(t, bundle[schema.Events], "free tier never sees the web island")

	_, _, err = native.merge.Check(ctx)
	require.ErrorIs(t, err, merge.ErrCrossPlatformLocked)

	_, err = native.gw.Count(ctx, schema.Events, schema.Web)
	require.ErrorIs(t, err, common.ErrTierLocked, "server refuses to count the locked island")

	// Upgrade.
	require.NoError(t, native.auth.SetTier(ctx, adminKey, "band@example.com", tier.Paid))
	tr, err := native.auth.RefreshAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, tier.Paid, tr)

	bundle, err = native.gw.PullAll(ctx, []schema.Platform{schema.Native, schema.Web})
	require.NoError(t, err)
	require.Len(t, bundle[schema.Events], 1)
	assert.Equal(t, e1.ID, bundle[schema.Events][0].ID)

	state, counts, err := native.merge.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, merge.Detected, state)
	assert.EqualValues(t, 1, counts[schema.Events])
	assert.EqualValues(t, 1, counts.Total())

	_, err = native.merge.Merge(ctx)
	require.NoError(t, err)
	merged, err := native.store.List(ctx, schema.Events)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, schema.Web, merged[0].Platform)
}

func TestEndToEnd_FullSyncBetweenDevices(t *testing.T) {
	ctx := context.Background()
	lis := startServer(t)

	a := newDevice(t, lis, schema.Web)
	_, err := a.auth.Register(ctx, "duo@example.com", "correct horse")
	require.NoError(t, err)
	_, err = a.auth.Login(ctx, "duo@example.com", "correct horse")
	require.NoError(t, err)

	block, err := a.store.Create(ctx, schema.Blocks, map[string]any{"title": "Scales", "tempoBpm": 90})
	require.NoError(t, err)
	a.store.Wait()

	rep, err := a.sync.FullSync(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, status.Synced, rep.State)

	b := newDevice(t, lis, schema.Web)
	_, err = b.auth.Login(ctx, "duo@example.com", "correct horse")
	require.NoError(t, err)

	rep, err = b.sync.FullSync(ctx, SyncOptions{FullPush: true})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Reconciled.Added)

	got, err := b.store.Get(ctx, schema.Blocks, block.ID)
	require.NoError(t, err)
	assert.Equal(t, "Scales", got.Fields["title"])
	assert.EqualValues(t, 90, got.Fields["tempoBpm"])

	// A delete on b reaches the cloud and a stays additive until it is told.
	require.NoError(t, b.store.Delete(ctx, schema.Blocks, block.ID))
	b.store.Wait()
	tomb, err := b.store.PendingDeletes(ctx)
	require.NoError(t, err)
	assert.Empty(t, tomb)

	_, err = a.sync.FullSync(ctx, SyncOptions{})
	require.NoError(t, err)
	_, err = a.store.Get(ctx, schema.Blocks, block.ID)
	require.NoError(t, err, "pull never deletes local records")
}

func TestEndToEnd_AccountSwitchIsolatesData(t *testing.T) {
	ctx := context.Background()
	lis := startServer(t)
	d := newDevice(t, lis, schema.Web)

	_, err := d.auth.Register(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)
	_, err = d.auth.Login(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	private, err := d.store.Create(ctx, schema.Events, map[string]any{"title": "A private"})
	require.NoError(t, err)
	d.store.Wait()
	rep, err := d.sync.FullSync(ctx, SyncOptions{})
	require.NoError(t, err)
	require.Equal(t, status.Synced, rep.State)

	require.NoError(t, d.auth.Logout(ctx))
	_, err = d.auth.Register(ctx, "bob@example.com", "correct horse")
	require.NoError(t, err)
	_, err = d.auth.Login(ctx, "bob@example.com", "correct horse")
	require.NoError(t, err)

	visible, err := d.store.List(ctx, schema.Events)
	require.NoError(t, err)
	assert.Empty(t, visible, "previous account's records are gone")

	rep, err = d.sync.FullSync(ctx, SyncOptions{FullPush: true})
	require.NoError(t, err)
	assert.Equal(t, status.Synced, rep.State)
	assert.Zero(t, rep.Pushed)

	bundle, err := d.gw.PullAll(ctx, []schema.Platform{schema.Web})
	require.NoError(t, err)
	assert.Empty(t, bundle[schema.Events], "nothing leaked into the new account")

	// Switching back restores the first account's data from the cloud.
	require.NoError(t, d.auth.Logout(ctx))
	_, err = d.auth.Login(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)
	rep, err = d.sync.FullSync(ctx, SyncOptions{FullPush: true})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Reconciled.Added)

	got, err := d.store.Get(ctx, schema.Events, private.ID)
	require.NoError(t, err)
	assert.Equal(t, "A private", got.Fields["title"])
}

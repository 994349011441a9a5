package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gigbook/internal/client/client"
	"github.com/dmitrijs2005/gigbook/internal/client/config"
	"github.com/dmitrijs2005/gigbook/internal/client/gateway"
	"github.com/dmitrijs2005/gigbook/internal/client/merge"
	"github.com/dmitrijs2005/gigbook/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/gigbook/internal/client/services"
	"github.com/dmitrijs2005/gigbook/internal/client/store"
	"github.com/dmitrijs2005/gigbook/internal/logging"
	"google.golang.org/grpc"
)

// App is one wired client: device database, transport, store and services.
type App struct {
	config *config.Config
	logger logging.Logger

	rm      repomanager.RepositoryManager
	client  *client.GRPCClient
	gateway *gateway.Gateway
	store   *store.Store
	auth    services.AuthService
	sync    services.SyncService
	merge   *merge.Coordinator

	closers []io.Closer
}

// NewApp opens everything cfg points at and restores the saved session.
// dialOpts are passed to the gRPC client.
func NewApp(ctx context.Context, cfg *config.Config, dialOpts ...grpc.DialOption) (*App, error) {
	logger, logCloser := logging.NewFileLogger(cfg.LogFile, cfg.LogLevel)
	a := &App{config: cfg, closers: []io.Closer{logCloser}}
	a.logger = logger.With("platform", cfg.Platform)

	rm, err := repomanager.OpenSQLite(ctx, cfg.DBPath())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open device db: %w", err)
	}
	a.rm = rm
	a.closers = append(a.closers, rm)

	c, err := client.NewGRPCClient(cfg.ServerAddr, dialOpts...)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("grpc client: %w", err)
	}
	a.client = c
	a.closers = append(a.closers, c)

	tagger, err := store.NewPlatformTagger(cfg.Platform)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.auth = services.NewAuthService(c, rm, a.logger)
	a.gateway = gateway.New(c, cfg.Platform, cfg.RequestTimeout, a.logger)
	a.store = store.New(rm, tagger, a.gateway, a.auth.Tier, a.logger)
	a.sync = services.NewSyncService(a.gateway, a.store, a.auth.Tier, rm.Metadata(rm.Conn()), cfg.SyncTimeout, a.logger)
	a.merge = merge.NewCoordinator(a.gateway, a.store, cfg.Platform, a.auth.Tier, a.logger)

	if _, err := a.auth.Restore(ctx); err != nil {
		a.logger.Warn(ctx, "Restoring session failed", "error", err)
	}
	return a, nil
}

// Close waits for background pushes, then releases resources in reverse
// order of acquisition.
func (a *App) Close() error {
	if a.store != nil {
		a.store.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Package server wires storage, services and the gRPC endpoint together
// and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gigbook/internal/logging"
	"github.com/dmitrijs2005/gigbook/internal/server/config"
	gs "github.com/dmitrijs2005/gigbook/internal/server/grpc"
	"github.com/dmitrijs2005/gigbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gigbook/internal/server/services"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	repomanager  repomanager.RepositoryManager
	userService  *services.UserService
	rowService   *services.RowService
	mediaService *services.MediaService
}

var openPostgres = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
	return repomanager.OpenPostgres(ctx, dsn)
}

func openRepositories(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == config.MemoryDSN {
		return repomanager.NewMemoryRepositoryManager(), nil
	}

	m, err := openPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := m.RunMigrations(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return m, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(c.LogLevel)

	m, err := openRepositories(ctx, c)
	if err != nil {
		return nil, err
	}

	tiers := services.NewTierCache(m, c.TierCacheTTL)

	return &App{
		config:       c,
		logger:       logger,
		repomanager:  m,
		userService:  services.NewUserService(m, tiers, c),
		rowService:   services.NewRowService(m, tiers),
		mediaService: services.NewMediaService(c),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a signal arrives, then closes the
// database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "dsn_memory", app.config.DatabaseDSN == config.MemoryDSN)
	if app.config.AdminKey == "" {
		app.logger.Warn(ctx, "admin key is empty, SetTier is disabled")
	}

	app.initSignalHandler(cancelFunc)

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger,
		app.userService, app.rowService, app.mediaService,
		app.config.SecretKey, app.config.AdminKey)

	err := s.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, "grpc server stopped", "error", err)
	}

	if cerr := app.repomanager.Close(); cerr != nil {
		app.logger.Error(ctx, "close db", "error", cerr)
	}
	return err
}

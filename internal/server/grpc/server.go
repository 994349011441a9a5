// Package grpc exposes the sync services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gigbook/internal/logging"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/server/models"
	"github.com/dmitrijs2005/gigbook/internal/server/services"
	"github.com/dmitrijs2005/gigbook/internal/syncpb"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"google.golang.org/grpc"
)

type userSvc interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Account(ctx context.Context, userID string) (*models.User, error)
	SetTier(ctx context.Context, email string, t tier.Tier) error
}

type rowSvc interface {
	Upsert(ctx context.Context, userID string, c schema.Collection, cloud map[string]any) (map[string]any, error)
	PushAll(ctx context.Context, userID string, c schema.Collection, cloud []map[string]any) ([]map[string]any, error)
	Delete(ctx context.Context, userID string, c schema.Collection, id string) (bool, error)
	PullAll(ctx context.Context, userID string, current schema.Platform, platforms []schema.Platform, collections []schema.Collection) (map[schema.Collection][]map[string]any, error)
	Count(ctx context.Context, userID string, c schema.Collection, current, p schema.Platform) (int64, error)
}

type mediaSvc interface {
	PresignUpload(ctx context.Context, userID, filename string) (*services.MediaUpload, error)
}

type GRPCServer struct {
	syncpb.UnimplementedSyncServiceServer
	address   string
	users     userSvc
	rows      rowSvc
	media     mediaSvc
	logger    logging.Logger
	jwtSecret []byte
	adminKey  string
}

func NewGRPCServer(a string, l logging.Logger, us userSvc, rs rowSvc, ms mediaSvc, secretKey, adminKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		rows:      rs,
		media:     ms,
		jwtSecret: []byte(secretKey),
		adminKey:  adminKey,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	syncpb.RegisterSyncServiceServer(srv, s)
	return srv
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

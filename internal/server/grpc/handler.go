package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/syncpb"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *syncpb.RegisterRequest) (*syncpb.RegisterResponse, error) {
	user, err := s.users.Register(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Registered", "user_id", user.ID)
	return &syncpb.RegisterResponse{UserID: user.ID}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *syncpb.LoginRequest) (*syncpb.LoginResponse, error) {
	res, err := s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &syncpb.LoginResponse{
		UserID:       res.User.ID,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		Tier:         string(res.User.Tier),
	}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *syncpb.RefreshTokenRequest) (*syncpb.RefreshTokenResponse, error) {
	pair, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &syncpb.RefreshTokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *syncpb.PingRequest) (*syncpb.PingResponse, error) {
	return &syncpb.PingResponse{ServerTime: time.Now().UTC().Format(time.RFC3339Nano)}, nil
}

func (s *GRPCServer) Account(ctx context.Context, req *syncpb.AccountRequest) (*syncpb.AccountResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Account(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &syncpb.AccountResponse{UserID: user.ID, Email: user.Email, Tier: string(user.Tier)}, nil
}

func (s *GRPCServer) SetTier(ctx context.Context, req *syncpb.SetTierRequest) (*syncpb.SetTierResponse, error) {
	t, err := tier.Parse(req.Tier)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := s.users.SetTier(ctx, req.Email, t); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Tier changed", "tier", t)
	return &syncpb.SetTierResponse{}, nil
}

func collection(name string) (schema.Collection, error) {
	c, err := schema.ParseCollection(name)
	if err != nil {
		return "", status.Error(codes.InvalidArgument, err.Error())
	}
	return c, nil
}

func (s *GRPCServer) Upsert(ctx context.Context, req *syncpb.UpsertRequest) (*syncpb.UpsertResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	c, err := collection(req.Collection)
	if err != nil {
		return nil, err
	}
	if req.Row == nil {
		return nil, status.Error(codes.InvalidArgument, "row is required")
	}

	row, err := s.rows.Upsert(ctx, userID, c, req.Row)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &syncpb.UpsertResponse{Row: row}, nil
}

func (s *GRPCServer) Delete(ctx context.Context, req *syncpb.DeleteRequest) (*syncpb.DeleteResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	c, err := collection(req.Collection)
	if err != nil {
		return nil, err
	}

	deleted, err := s.rows.Delete(ctx, userID, c, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &syncpb.DeleteResponse{Deleted: deleted}, nil
}

func (s *GRPCServer) PushAll(ctx context.Context, req *syncpb.PushAllRequest) (*syncpb.PushAllResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	c, err := collection(req.Collection)
	if err != nil {
		return nil, err
	}

	rows, err := s.rows.PushAll(ctx, userID, c, req.Rows)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Debug(ctx, "Pushed", "collection", c, "rows", len(rows))
	return &syncpb.PushAllResponse{Rows: rows}, nil
}

func parsePlatforms(names []string) ([]schema.Platform, error) {
	out := make([]schema.Platform, 0, len(names))
	for _, n := range names {
		p, err := schema.ParsePlatform(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *GRPCServer) PullAll(ctx context.Context, req *syncpb.PullAllRequest) (*syncpb.PullAllResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	current, err := schema.ParsePlatform(req.CurrentPlatform)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	platforms, err := parsePlatforms(req.Platforms)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var collections []schema.Collection
	for _, name := range req.Collections {
		c, err := collection(name)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}

	got, err := s.rows.PullAll(ctx, userID, current, platforms, collections)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := make(map[string][]syncpb.Row, len(got))
	for c, rows := range got {
		out[string(c)] = rows
	}
	return &syncpb.PullAllResponse{Collections: out}, nil
}

func (s *GRPCServer) Count(ctx context.Context, req *syncpb.CountRequest) (*syncpb.CountResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	c, err := collection(req.Collection)
	if err != nil {
		return nil, err
	}
	current, err := schema.ParsePlatform(req.CurrentPlatform)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	p, err := schema.ParsePlatform(req.Platform)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	n, err := s.rows.Count(ctx, userID, c, current, p)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &syncpb.CountResponse{Count: n}, nil
}

func (s *GRPCServer) PresignMedia(ctx context.Context, req *syncpb.PresignMediaRequest) (*syncpb.PresignMediaResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	up, err := s.media.PresignUpload(ctx, userID, req.Filename)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &syncpb.PresignMediaResponse{UploadURL: up.UploadURL, PublicURL: up.PublicURL, Key: up.Key}, nil
}

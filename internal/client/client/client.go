package client

import (
	"context"

	"github.com/dmitrijs2005/gigbook/internal/syncpb"
	"github.com/dmitrijs2005/gigbook/internal/tier"
)

// Session is what a successful login leaves behind on the device.
type Session struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	Tier         tier.Tier
}

type Client interface {
	Close() error

	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Ping(ctx context.Context) error
	Account(ctx context.Context) (*syncpb.AccountResponse, error)
	SetTier(ctx context.Context, adminKey, email string, t tier.Tier) error

	Upsert(ctx context.Context, collection string, row syncpb.Row) (syncpb.Row, error)
	Delete(ctx context.Context, collection, id string) (bool, error)
	PushAll(ctx context.Context, collection string, rows []syncpb.Row) ([]syncpb.Row, error)
	PullAll(ctx context.Context, current string, platforms, collections []string) (map[string][]syncpb.Row, error)
	Count(ctx context.Context, collection, current, platform string) (int64, error)
	PresignMedia(ctx context.Context, filename string) (*syncpb.PresignMediaResponse, error)

	SetSession(s *Session)
	ClearSession()
	Session() (Session, bool)
}

package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gigbook/internal/client/client"
	"github.com/dmitrijs2005/gigbook/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/gigbook/internal/syncpb"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *repomanager.SQLiteRepositoryManager {
	t.Helper()
	rm, err := repomanager.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rm.Close() })
	return rm
}

// fakeClient implements client.Client for service tests. Embedding the
// interface makes unexpected calls panic.
type fakeClient struct {
	client.Client

	session    client.Session
	hasSession bool
	onTokens   func(client.Session)

	registerID  string
	registerErr error
	loginResp   *client.Session
	loginErr    error
	accountTier string
	accountErr  error
	setTierArgs []string
}

func (f *fakeClient) Register(ctx context.Context, email, password string) (string, error) {
	return f.registerID, f.registerErr
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*client.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.SetSession(f.loginResp)
	return f.loginResp, nil
}

func (f *fakeClient) Account(ctx context.Context) (*syncpb.AccountResponse, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return &syncpb.AccountResponse{UserID: f.session.UserID, Tier: f.accountTier}, nil
}

func (f *fakeClient) SetTier(ctx context.Context, adminKey, email string, t tier.Tier) error {
	f.setTierArgs = []string{adminKey, email, string(t)}
	return nil
}

func (f *fakeClient) SetSession(s *client.Session) {
	f.session, f.hasSession = *s, true
}

func (f *fakeClient) ClearSession() {
	f.session, f.hasSession = client.Session{}, false
}

func (f *fakeClient) Session() (client.Session, bool) {
	return f.session, f.hasSession
}

func (f *fakeClient) OnTokens(fn func(client.Session)) {
	f.onTokens = fn
}

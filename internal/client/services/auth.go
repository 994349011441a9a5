// Package services holds the client's application services: account and
// session handling (AuthService) and the full sync workflow (SyncService).
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gigbook/internal/client/client"
	"github.com/dmitrijs2005/gigbook/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/gigbook/internal/dbx"
	"github.com/dmitrijs2005/gigbook/internal/logging"
	"github.com/dmitrijs2005/gigbook/internal/tier"
)

// Metadata keys of the persisted session.
const (
	keyUserID       = "session.user_id"
	keyEmail        = "session.email"
	keyAccessToken  = "session.access_token"
	keyRefreshToken = "session.refresh_token"
	keyTier         = "session.tier"
)

var sessionKeys = []string{keyUserID, keyEmail, keyAccessToken, keyRefreshToken, keyTier}

// keyDeviceOwner names the account whose data the device holds. It outlives
// Logout.
const keyDeviceOwner = "device.owner_id"

// AuthService defines account operations for the CLI.
//
// Login persists the session in the device database so later processes can
// Restore it. Logout forgets the session but keeps every local record; a
// later login as a different account drops the previous account's records
// and adopts the ownerless ones.
type AuthService interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (*client.Session, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (bool, error)
	RefreshAccount(ctx context.Context) (tier.Tier, error)
	SetTier(ctx context.Context, adminKey, email string, t tier.Tier) error
	Session() (client.Session, bool)
	Tier() tier.Tier
}

// tokenNotifier is implemented by transports that rotate tokens on their own.
type tokenNotifier interface {
	OnTokens(func(client.Session))
}

type authService struct {
	client client.Client
	rm     repomanager.RepositoryManager
	logger logging.Logger
}

// NewAuthService constructs an AuthService. When the client rotates tokens
// itself, the new pair is written back to the metadata table.
func NewAuthService(c client.Client, rm repomanager.RepositoryManager, l logging.Logger) AuthService {
	a := &authService{client: c, rm: rm, logger: l.With("module", "auth")}
	if n, ok := c.(tokenNotifier); ok {
		n.OnTokens(a.persistTokens)
	}
	return a
}

func (a *authService) Register(ctx context.Context, email, password string) (string, error) {
	id, err := a.client.Register(ctx, email, password)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	return id, nil
}

func (a *authService) Login(ctx context.Context, email, password string) (*client.Session, error) {
	sess, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := a.save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	a.logger.Info(ctx, "Logged in", "user_id", sess.UserID, "tier", sess.Tier)
	return sess, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.client.ClearSession()
	return a.rm.Metadata(a.rm.Conn()).Delete(ctx, sessionKeys...)
}

// Restore loads a persisted session into the client. It reports false when
// the device has none.
func (a *authService) Restore(ctx context.Context) (bool, error) {
	values, err := a.rm.Metadata(a.rm.Conn()).List(ctx)
	if err != nil {
		return false, err
	}
	if values[keyAccessToken] == "" {
		return false, nil
	}

	t, err := tier.Parse(values[keyTier])
	if err != nil {
		t = tier.Free
	}
	a.client.SetSession(&client.Session{
		UserID:       values[keyUserID],
		Email:        values[keyEmail],
		AccessToken:  values[keyAccessToken],
		RefreshToken: values[keyRefreshToken],
		Tier:         t,
	})
	return true, nil
}

// RefreshAccount asks the server for the current tier and stores it.
func (a *authService) RefreshAccount(ctx context.Context) (tier.Tier, error) {
	sess, ok := a.client.Session()
	if !ok {
		return tier.Free, client.ErrUnauthenticated
	}

	acc, err := a.client.Account(ctx)
	if err != nil {
		return sess.Tier, err
	}
	t, err := tier.Parse(acc.Tier)
	if err != nil {
		return sess.Tier, err
	}

	if t != sess.Tier {
		a.logger.Info(ctx, "Tier changed", "from", sess.Tier, "to", t)
	}
	sess.Tier = t
	a.client.SetSession(&sess)
	return t, a.rm.Metadata(a.rm.Conn()).Set(ctx, keyTier, string(t))
}

func (a *authService) SetTier(ctx context.Context, adminKey, email string, t tier.Tier) error {
	return a.client.SetTier(ctx, adminKey, email, t)
}

func (a *authService) Session() (client.Session, bool) {
	return a.client.Session()
}

// Tier is the tier of the current session, free when logged out.
func (a *authService) Tier() tier.Tier {
	sess, ok := a.client.Session()
	if !ok || sess.Tier == "" {
		return tier.Free
	}
	return sess.Tier
}

// save replaces the persisted session and hands the device to the new
// owner in one transaction.
func (a *authService) save(ctx context.Context, s *client.Session) error {
	var dropped int64
	err := a.rm.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.rm.Metadata(tx)
		prev, _, err := repo.Get(ctx, keyDeviceOwner)
		if err != nil {
			return err
		}

		if dropped, err = a.rm.Records(tx).DropForeign(ctx, s.UserID); err != nil {
			return err
		}
		if dropped > 0 || (prev != "" && prev != s.UserID) {
			if err := a.rm.PendingDeletes(tx).Clear(ctx); err != nil {
				return err
			}
			if err := repo.Delete(ctx, KeyLastSyncState, KeyLastSyncAt, KeyLastSyncError); err != nil {
				return err
			}
		}
		if _, err := a.rm.Records(tx).Adopt(ctx, s.UserID); err != nil {
			return err
		}

		if err := repo.Delete(ctx, sessionKeys...); err != nil {
			return err
		}
		return repo.SetMany(ctx, map[string]string{
			keyUserID:       s.UserID,
			keyEmail:        s.Email,
			keyAccessToken:  s.AccessToken,
			keyRefreshToken: s.RefreshToken,
			keyTier:         string(s.Tier),
			keyDeviceOwner:  s.UserID,
		})
	})
	if err != nil {
		return err
	}
	if dropped > 0 {
		a.logger.Warn(ctx, "Dropped records of the previous account", "records", dropped)
	}
	return nil
}

func (a *authService) persistTokens(s client.Session) {
	ctx := context.Background()
	err := a.rm.Metadata(a.rm.Conn()).SetMany(ctx, map[string]string{
		keyAccessToken:  s.AccessToken,
		keyRefreshToken: s.RefreshToken,
	})
	if err != nil {
		a.logger.Error(ctx, "Persisting refreshed tokens failed", "error", err)
	}
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/common"
	"github.com/dmitrijs2005/gigbook/internal/server/auth"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, "  Ana@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, tier.Free, u.Tier)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, []byte("correct horse"), u.PasswordHash)

	_, err = f.users.Register(ctx, "ana@example.com", "another one")
	require.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = f.users.Register(ctx, "not-an-email", "correct horse")
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.users.Register(ctx, "bob@example.com", "short")
	require.ErrorIs(t, err, common.ErrorValidation)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "ana@example.com")

	res, err := f.users.Login(ctx, "ANA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, id, res.User.ID)

	uid, err := auth.GetUserIDFromToken(res.Tokens.AccessToken, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, id, uid)

	stored, err := f.manager.RefreshTokens(nil).Find(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, id, stored.UserID)

	_, err = f.users.Login(ctx, "ana@example.com", "wrong password")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.users.Login(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.users.Login(ctx, "garbage", "correct horse")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestRefreshToken_Rotates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ana@example.com")

	res, err := f.users.Login(ctx, "ana@example.com", "correct horse")
	require.NoError(t, err)

	pair, err := f.users.RefreshToken(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.Tokens.RefreshToken, pair.RefreshToken)

	// the consumed token cannot be replayed
	_, err = f.users.RefreshToken(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.users.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshToken_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "ana@example.com")

	require.NoError(t, f.manager.RefreshTokens(nil).Create(ctx, id, "stale", -time.Minute))

	_, err := f.users.RefreshToken(ctx, "stale")
	require.ErrorIs(t, err, common.ErrRefreshTokenExpired)

	_, err = f.manager.RefreshTokens(nil).Find(ctx, "stale")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSetTier_InvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "ana@example.com")

	got, err := f.tiers.Tier(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, tier.Free, got)

	require.NoError(t, f.users.SetTier(ctx, "Ana@example.com", tier.Paid))

	got, err = f.tiers.Tier(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, tier.Paid, got)

	acct, err := f.users.Account(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, tier.Paid, acct.Tier)

	err = f.users.SetTier(ctx, "nobody@example.com", tier.Paid)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

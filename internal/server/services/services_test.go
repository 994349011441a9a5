package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/server/config"
	"github.com/dmitrijs2005/gigbook/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	return cfg
}

type fixture struct {
	manager *repomanager.MemoryRepositoryManager
	tiers   *TierCache
	users   *UserService
	rows    *RowService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := repomanager.NewMemoryRepositoryManager()
	tiers := NewTierCache(m, time.Minute)
	return &fixture{
		manager: m,
		tiers:   tiers,
		users:   NewUserService(m, tiers, testConfig()),
		rows:    NewRowService(m, tiers),
	}
}

func (f *fixture) register(t *testing.T, email string) string {
	t.Helper()
	u, err := f.users.Register(context.Background(), email, "correct horse")
	require.NoError(t, err)
	return u.ID
}

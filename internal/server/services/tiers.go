package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gigbook/internal/tier"
	"github.com/patrickmn/go-cache"
)

// TierCache memoises account tiers for a short TTL so every pull does not
// hit the users table.
type TierCache struct {
	repomanager repomanager.RepositoryManager
	cache       *cache.Cache
}

func NewTierCache(m repomanager.RepositoryManager, ttl time.Duration) *TierCache {
	return &TierCache{
		repomanager: m,
		cache:       cache.New(ttl, 2*ttl),
	}
}

// Tier returns the account's tier, loading it on a cache miss.
func (c *TierCache) Tier(ctx context.Context, userID string) (tier.Tier, error) {
	if v, ok := c.cache.Get(userID); ok {
		return v.(tier.Tier), nil
	}

	user, err := c.repomanager.Users(c.repomanager.Conn()).GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	c.cache.Set(userID, user.Tier, cache.DefaultExpiration)
	return user.Tier, nil
}

func (c *TierCache) Invalidate(userID string) {
	c.cache.Delete(userID)
}

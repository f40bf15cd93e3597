package rules

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"tagwright/internal/constants"
	"tagwright/internal/logger"
	"tagwright/pkg/metrics"
)

// CachedStore puts a short-lived Redis cache in front of a Store. Only
// ListRules is cached; the store stays the source of truth and a cache
// failure always falls through to it. Writes invalidate the shop's entry and
// config events from other processes do the same.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = constants.DefaultRuleCacheTTL
	}
	return &CachedStore{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (c *CachedStore) ListRules(ctx context.Context, shopDomain string) ([]Rule, error) {
	key := constants.CacheKeyPrefixRules + shopDomain

	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var result []Rule
		if err := json.Unmarshal(cached, &result); err == nil {
			metrics.RuleCacheRequestsTotal.WithLabelValues("hit").Inc()
			return result, nil
		}
		// Unreadable entry; drop it and reload.
		_ = c.client.Del(ctx, key).Err()
	} else if err != redis.Nil {
		c.logger.WarnwCtx(ctx, "Rule cache read failed, falling back to store",
			"error", err,
			"shop", shopDomain,
		)
	}

	metrics.RuleCacheRequestsTotal.WithLabelValues("miss").Inc()

	result, err := c.inner.ListRules(ctx, shopDomain)
	if err != nil {
		return nil, err
	}

	if body, err := json.Marshal(result); err == nil {
		if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
			c.logger.WarnwCtx(ctx, "Rule cache write failed",
				"error", err,
				"shop", shopDomain,
			)
		}
	}

	return result, nil
}

func (c *CachedStore) GetRule(ctx context.Context, shopDomain, id string) (*Rule, error) {
	return c.inner.GetRule(ctx, shopDomain, id)
}

func (c *CachedStore) CreateRule(ctx context.Context, rule *Rule) error {
	if err := c.inner.CreateRule(ctx, rule); err != nil {
		return err
	}
	c.Invalidate(ctx, rule.ShopDomain)
	return nil
}

func (c *CachedStore) ToggleRule(ctx context.Context, shopDomain, id string, enabled bool) error {
	if err := c.inner.ToggleRule(ctx, shopDomain, id, enabled); err != nil {
		return err
	}
	c.Invalidate(ctx, shopDomain)
	return nil
}

func (c *CachedStore) DeleteRule(ctx context.Context, shopDomain, id string) error {
	if err := c.inner.DeleteRule(ctx, shopDomain, id); err != nil {
		return err
	}
	c.Invalidate(ctx, shopDomain)
	return nil
}

func (c *CachedStore) Invalidate(ctx context.Context, shopDomain string) {
	key := constants.CacheKeyPrefixRules + shopDomain
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WarnwCtx(ctx, "Rule cache invalidation failed",
			"error", err,
			"shop", shopDomain,
		)
	}
}

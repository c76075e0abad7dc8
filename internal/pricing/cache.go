package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	cacheKeyPrefix   = "pricing:active:"
	cacheKeyRegistry = "pricing:active:keys"
	cacheTTL         = 30 * time.Second
)

// RuleCache is a read-through Redis cache for active rule sets, keyed by
// product/category scope. Entries carry a short TTL; rule CRUD additionally
// drops every entry through the key registry. Evaluations made after a rule
// change therefore see it, in-flight ones may be stale by one change.
type RuleCache struct {
	rdb *redis.Client
}

func NewRuleCache(rdb *redis.Client) *RuleCache {
	return &RuleCache{rdb: rdb}
}

func cacheKey(productID, category string) string {
	return fmt.Sprintf("%s%s:%s", cacheKeyPrefix, productID, category)
}

// GetActive returns the cached active rule set for a scope, if present. Cache
// errors degrade to a miss; the store falls through to the database.
func (c *RuleCache) GetActive(ctx context.Context, productID, category string) ([]PricingRule, bool) {
	payload, err := c.rdb.Get(ctx, cacheKey(productID, category)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("rule cache read failed")
		}
		return nil, false
	}

	var rules []PricingRule
	if err := json.Unmarshal(payload, &rules); err != nil {
		log.Warn().Err(err).Msg("rule cache payload corrupt, discarding")
		return nil, false
	}
	return rules, true
}

// SetActive stores an active rule set and registers its key for invalidation.
func (c *RuleCache) SetActive(ctx context.Context, productID, category string, rules []PricingRule) {
	payload, err := json.Marshal(rules)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal rule set for cache")
		return
	}

	key := cacheKey(productID, category)
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, key, payload, cacheTTL)
	pipe.SAdd(ctx, cacheKeyRegistry, key)
	pipe.Expire(ctx, cacheKeyRegistry, cacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Msg("rule cache write failed")
	}
}

// Invalidate drops every cached rule set. Called on any rule mutation.
func (c *RuleCache) Invalidate(ctx context.Context) error {
	keys, err := c.rdb.SMembers(ctx, cacheKeyRegistry).Result()
	if err != nil {
		return err
	}

	keys = append(keys, cacheKeyRegistry)
	return c.rdb.Del(ctx, keys...).Err()
}

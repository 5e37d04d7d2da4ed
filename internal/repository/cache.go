package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tixwave/pricing-engine/internal/domain"
)

const (
	activeRulesCacheKey = "pricing:rules:active"
	couponCacheKey      = "pricing:coupon:"
)

// CachedRuleRepository is a read-through cache in front of the rule store.
// Rules change rarely and every quote reads the full active set, so a short
// TTL takes the store off the hot path. Cache failures degrade to the store.
type CachedRuleRepository struct {
	inner  domain.RuleRepository
	redis  redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedRuleRepository(
	inner domain.RuleRepository,
	redisClient redis.UniversalClient,
	ttl time.Duration,
	logger *slog.Logger) *CachedRuleRepository {

	return &CachedRuleRepository{
		inner:  inner,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedRuleRepository) GetActiveRules(ctx context.Context) ([]domain.PricingRule, error) {
	payload, err := c.redis.Get(ctx, activeRulesCacheKey).Bytes()
	if err == nil {
		var rules []domain.PricingRule
		if err = json.Unmarshal(payload, &rules); err == nil {
			return rules, nil
		}
		c.logger.Warn("discarding undecodable rules cache entry", "error", err)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("rules cache read failed", "error", err)
	}

	rules, err := c.inner.GetActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, activeRulesCacheKey, rules)

	return rules, nil
}

func (c *CachedRuleRepository) store(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}

	if err = c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// CachedCouponRepository caches coupon lookups by code. The usage counters
// are never authoritative in the cache: IncrementUsage always goes straight
// through to the store's atomic path and drops the cached entry afterwards.
type CachedCouponRepository struct {
	inner  domain.CouponRepository
	redis  redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedCouponRepository(
	inner domain.CouponRepository,
	redisClient redis.UniversalClient,
	ttl time.Duration,
	logger *slog.Logger) *CachedCouponRepository {

	return &CachedCouponRepository{
		inner:  inner,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedCouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	key := couponCacheKey + code

	payload, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var coupon domain.Coupon
		if err = json.Unmarshal(payload, &coupon); err == nil {
			return &coupon, nil
		}
		c.logger.Warn("discarding undecodable coupon cache entry", "code", code, "error", err)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("coupon cache read failed", "code", code, "error", err)
	}

	coupon, err := c.inner.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	couponPayload, err := json.Marshal(coupon)
	if err != nil {
		c.logger.Warn("failed to encode coupon cache entry", "code", code, "error", err)
		return coupon, nil
	}

	if err = c.redis.Set(ctx, key, couponPayload, c.ttl).Err(); err != nil {
		c.logger.Warn("coupon cache write failed", "code", code, "error", err)
	}

	return coupon, nil
}

func (c *CachedCouponRepository) IncrementUsage(ctx context.Context, couponID, userID int64, bookingID string) error {
	err := c.inner.IncrementUsage(ctx, couponID, userID, bookingID)
	if err != nil && !errors.Is(err, domain.ErrRedemptionCommitted) {
		return err
	}

	// The cached used_count is stale now. Cache keys are code-based and the
	// committer only knows the id, so walk the coupon keyspace with a cursor
	// scan (KEYS would block the server) and drop every entry. Best effort:
	// quoting tolerates a stale counter since commit rechecks atomically
	// anyway.
	var cursor uint64
	for {
		keys, next, scanErr := c.redis.Scan(ctx, cursor, couponCacheKey+"*", 100).Result()
		if scanErr != nil {
			c.logger.Warn("coupon cache invalidation failed", "coupon_id", couponID, "error", scanErr)
			return err
		}

		if len(keys) > 0 {
			if delErr := c.redis.Del(ctx, keys...).Err(); delErr != nil {
				c.logger.Warn("coupon cache invalidation failed", "coupon_id", couponID, "error", delErr)
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return err
}

func (c *CachedCouponRepository) CountRedemptions(ctx context.Context, couponID, userID int64) (int, error) {
	return c.inner.CountRedemptions(ctx, couponID, userID)
}

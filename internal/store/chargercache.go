package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"csms/internal/domain/charger"
)

// chargerCacheTTL bounds how stale a cached Charger row can be before the
// next Get falls through to Postgres regardless of whether a write
// invalidated it.
const chargerCacheTTL = 30 * time.Second

// CachedChargerRepository wraps a charger.Repository with a Redis
// read-through cache on Get, the gateway's hottest read path (every
// BootNotification and reconnection check reads the charger row). Every
// mutating method delegates and then deletes the cached row, so the next
// Get reads the updated row from Postgres; if the delete fails, the old row
// can be served until chargerCacheTTL expires.
type CachedChargerRepository struct {
	charger.Repository
	redis *redis.Client
}

// NewCachedChargerRepository wraps repo with a Redis cache. redis must not
// be nil; callers should only construct this when REDIS_URL is configured.
func NewCachedChargerRepository(repo charger.Repository, redisClient *redis.Client) *CachedChargerRepository {
	return &CachedChargerRepository{Repository: repo, redis: redisClient}
}

func (c *CachedChargerRepository) Get(ctx context.Context, chargePointID string) (charger.Entity, error) {
	if cached, err := c.redis.Get(ctx, chargerCacheKey(chargePointID)).Result(); err == nil {
		var entity charger.Entity
		if jsonErr := json.Unmarshal([]byte(cached), &entity); jsonErr == nil {
			return entity, nil
		}
	}

	entity, err := c.Repository.Get(ctx, chargePointID)
	if err != nil {
		return entity, err
	}

	if payload, err := json.Marshal(entity); err == nil {
		_ = c.redis.Set(ctx, chargerCacheKey(chargePointID), payload, chargerCacheTTL).Err()
	}
	return entity, nil
}

func (c *CachedChargerRepository) Upsert(ctx context.Context, e charger.Entity) (charger.Entity, error) {
	out, err := c.Repository.Upsert(ctx, e)
	c.invalidate(ctx, e.ChargePointID)
	return out, err
}

func (c *CachedChargerRepository) UpdateHeartbeat(ctx context.Context, chargePointID string, at time.Time) error {
	err := c.Repository.UpdateHeartbeat(ctx, chargePointID, at)
	c.invalidate(ctx, chargePointID)
	return err
}

func (c *CachedChargerRepository) UpdateAvailability(ctx context.Context, chargePointID string, availability charger.Availability) error {
	err := c.Repository.UpdateAvailability(ctx, chargePointID, availability)
	c.invalidate(ctx, chargePointID)
	return err
}

func (c *CachedChargerRepository) invalidate(ctx context.Context, chargePointID string) {
	_ = c.redis.Del(ctx, chargerCacheKey(chargePointID)).Err()
}

func chargerCacheKey(chargePointID string) string { return "charger:" + chargePointID }

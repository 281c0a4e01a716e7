/**
 * @description
 * Redis-backed read-through cache for the aggregated admin views. Values are stored
 * as JSON under admin:user_details:{role}:{user_id} with a fixed TTL.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Redis client.
 */
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helparo/admin-service/internal/domain"
)

const defaultDetailsPrefix = "admin:user_details"

// DetailsCache stores aggregated user views in Redis.
type DetailsCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewDetailsCache creates a DetailsCache. A non-positive ttl disables caching: reads
// always miss and writes are dropped.
func NewDetailsCache(client redis.UniversalClient, ttl time.Duration) *DetailsCache {
	return &DetailsCache{client: client, prefix: defaultDetailsPrefix, ttl: ttl}
}

// Key returns the Redis key for a role view of userID.
func (c *DetailsCache) Key(role, userID string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, role, strings.TrimSpace(userID))
}

func (c *DetailsCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get decodes a cached view into dest. It reports false on a miss.
func (c *DetailsCache) Get(ctx context.Context, role, userID string, dest any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	raw, err := c.client.Get(ctx, c.Key(role, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cached details: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached details: %w", err)
	}
	return true, nil
}

// Set stores value for the configured TTL.
func (c *DetailsCache) Set(ctx context.Context, role, userID string, value any) error {
	if !c.enabled() {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(role, userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cached details: %w", err)
	}
	return nil
}

// Invalidate removes both the customer and the helper view of userID.
func (c *DetailsCache) Invalidate(ctx context.Context, userID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	keys := []string{c.Key(domain.RoleCustomer, userID), c.Key(domain.RoleHelper, userID)}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate cached details: %w", err)
	}
	return nil
}

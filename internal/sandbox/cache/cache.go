// Package cache provides a Redis-backed fast path for sandbox status lookups.
// Entries are written on read-through and refreshed by decision events, so a
// cold cache only costs one store round trip per entity.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"gatehouse/internal/entity"
	"gatehouse/internal/sandbox"
)

const keyPrefix = "gatehouse:status:"

type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewStatusCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *StatusCache {
	return &StatusCache{client: client, ttl: ttl, logger: logger}
}

func statusKey(source entity.Ref) string {
	return keyPrefix + source.String()
}

func (c *StatusCache) GetStatus(ctx context.Context, source entity.Ref) (sandbox.Status, bool, error) {
	val, err := c.client.Get(ctx, statusKey(source)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get status for %s: %w", source.String(), err)
	}
	return sandbox.Status(val), true, nil
}

func (c *StatusCache) SetStatus(ctx context.Context, source entity.Ref, status sandbox.Status) error {
	if err := c.client.Set(ctx, statusKey(source), string(status), c.ttl).Err(); err != nil {
		return fmt.Errorf("set status for %s: %w", source.String(), err)
	}
	return nil
}

// Invalidate drops the cached status, forcing the next query to the store.
func (c *StatusCache) Invalidate(ctx context.Context, source entity.Ref) error {
	if err := c.client.Del(ctx, statusKey(source)).Err(); err != nil {
		return fmt.Errorf("invalidate status for %s: %w", source.String(), err)
	}
	return nil
}

// DecisionSubscriber keeps the cache in step with the event bus: the cached
// status is rewritten as soon as a decision lands.
func DecisionSubscriber(c *StatusCache) sandbox.Subscriber {
	return func(ctx context.Context, ev sandbox.DecisionEvent) {
		if ev.Phase != sandbox.PhasePost {
			return
		}
		if err := c.SetStatus(ctx, ev.Source, ev.Status); err != nil {
			c.logger.WarnContext(ctx, "decision event cache update failed",
				"source", ev.Source.String(), "error", err)
		}
	}
}

package service

import (
	"context"
	"time"

	"cinebook/pkg/cache"
)

type RedisSeatCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewRedisSeatCache(c *cache.Cache, ttl time.Duration) *RedisSeatCache {
	return &RedisSeatCache{cache: c, ttl: ttl}
}

func (r *RedisSeatCache) Snapshot(ctx context.Context, showID string, load func(ctx context.Context) (*SeatSnapshot, error)) (*SeatSnapshot, error) {
	return cache.GetOrSetJSON(ctx, r.cache, cache.KeySeatSnapshot(showID), r.ttl, load)
}

func (r *RedisSeatCache) Invalidate(ctx context.Context, showID string) error {
	return r.cache.InvalidateShow(ctx, showID)
}

type RedisSeatEvents struct {
	pubsub *cache.SeatsPubSub
}

func NewRedisSeatEvents(pubsub *cache.SeatsPubSub) *RedisSeatEvents {
	return &RedisSeatEvents{pubsub: pubsub}
}

func (r *RedisSeatEvents) SeatsChanged(ctx context.Context, showID string, seats []string, state string) error {
	return r.pubsub.PublishSeatsChanged(ctx, showID, seats, state)
}

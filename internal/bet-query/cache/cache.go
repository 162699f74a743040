package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/views"
)

type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func (c *Cache) GetBet(ctx context.Context, id uint64) (views.BetView, bool, error) {
	var v views.BetView
	b, err := c.R.Get(ctx, views.BetCacheKey(id)).Bytes()
	if err == redis.Nil {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	return v, true, json.Unmarshal(b, &v)
}

func (c *Cache) SetBet(ctx context.Context, v views.BetView, ttl time.Duration) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, views.BetCacheKey(v.BetID), b, ttl).Err()
}

// BetIDByRequest resolve requestId -> betId pelo índice gravado pelo indexer.
func (c *Cache) BetIDByRequest(ctx context.Context, requestID string) (uint64, bool, error) {
	s, err := c.R.Get(ctx, views.RequestCacheKey(requestID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/coinflip-platform-poc/pkg/contracts/views"
)

// RedisCache guarda a última versão de cada aposta projetada.
// Client: cliente Redis
// TTL: tempo de expiração dos registros
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

// SetBet grava a view e o índice requestId -> betId.
func (r *RedisCache) SetBet(ctx context.Context, v views.BetView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	pipe := r.Client.TxPipeline()
	pipe.Set(ctx, views.BetCacheKey(v.BetID), b, r.TTL)
	if v.RequestID != "" {
		pipe.Set(ctx, views.RequestCacheKey(v.RequestID), strconv.FormatUint(v.BetID, 10), r.TTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

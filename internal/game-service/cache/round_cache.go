package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

const keyCurrentRound = "round:current"

func (c *Cache) GetCurrentRound(ctx context.Context, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyCurrentRound).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetCurrentRound(ctx context.Context, v any, ttl time.Duration) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, keyCurrentRound, b, ttl).Err()
}

// InvalidateCurrentRound derruba o cache quando a rodada muda de estado
func (c *Cache) InvalidateCurrentRound(ctx context.Context) error {
	return c.R.Del(ctx, keyCurrentRound).Err()
}

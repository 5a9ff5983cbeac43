package appstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "video-dashboard:preferences:"

// RedisClient is the subset of the go-redis client used by RedisRepo.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisRepo keeps preferences as JSON strings keyed by profile.
type RedisRepo struct {
	Client RedisClient
}

func (r *RedisRepo) Load(ctx context.Context, profile string) (Preferences, error) {
	raw, err := r.Client.Get(ctx, redisKeyPrefix+profile).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Preferences{}, ErrNotFound
		}
		return Preferences{}, fmt.Errorf("redis get preferences: %w", err)
	}
	var prefs Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return prefs, nil
}

func (r *RedisRepo) Save(ctx context.Context, profile string, prefs Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := r.Client.Set(ctx, redisKeyPrefix+profile, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set preferences: %w", err)
	}
	return nil
}

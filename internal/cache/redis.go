package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/paraglide/config"
	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client    *redis.Client
	pilotsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, pilotsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		pilotsTTL: pilotsTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetPilots returns the cached verified pilots of a company, or nil on a miss.
func (c *RedisCache) GetPilots(ctx context.Context, companyID string) ([]domain.Pilot, error) {
	data, err := c.client.Get(ctx, pilotsKey(companyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var pilots []domain.Pilot
	if err := json.Unmarshal(data, &pilots); err != nil {
		return nil, err
	}
	return pilots, nil
}

func (c *RedisCache) SetPilots(ctx context.Context, companyID string, pilots []domain.Pilot) error {
	payload, err := json.Marshal(pilots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pilotsKey(companyID), payload, c.pilotsTTL).Err()
}

// releaseLock deletes the lock only while it still carries the caller's token.
var releaseLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// AcquireBookingLock marks a booking as being processed and returns the token
// that releases it. ok is false if another request already holds the lock.
func (c *RedisCache) AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = c.client.SetNX(ctx, bookingLockKey(bookingID), token, ttl).Result()
	if err != nil || !ok {
		return "", ok, err
	}
	return token, true, nil
}

// ReleaseBookingLock removes the lock if token still owns it. A lock that
// expired and was taken by someone else is left alone.
func (c *RedisCache) ReleaseBookingLock(ctx context.Context, bookingID, token string) error {
	return releaseLock.Run(ctx, c.client, []string{bookingLockKey(bookingID)}, token).Err()
}

func pilotsKey(companyID string) string {
	return fmt.Sprintf("cache:company:%s:pilots:verified", companyID)
}

func bookingLockKey(bookingID string) string {
	return fmt.Sprintf("lock:booking:%s", bookingID)
}

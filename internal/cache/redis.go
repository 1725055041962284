package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tripora/booking/config"
	"github.com/tripora/booking/internal/domain"
)

type RedisCache struct {
	client   *redis.Client
	availTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, availTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		availTTL: availTTL,
	}
}

// AcquireHoldGuard takes a short-lived SetNX guard on a room/stay combination
// before the database transaction runs. It only thins out stampedes on the
// same stay; the row lock on room_availability remains the authority.
func (c *RedisCache) AcquireHoldGuard(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, holdGuardKey(roomTypeID, checkIn, checkOut), "held", ttl).Result()
}

func (c *RedisCache) ReleaseHoldGuard(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) error {
	return c.client.Del(ctx, holdGuardKey(roomTypeID, checkIn, checkOut)).Err()
}

func (c *RedisCache) GetAvailability(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time) ([]domain.RoomAvailability, error) {
	data, err := c.client.Get(ctx, availabilityKey(roomTypeID, checkIn, checkOut)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var avail []domain.RoomAvailability
	if err := json.Unmarshal(data, &avail); err != nil {
		return nil, err
	}
	return avail, nil
}

func (c *RedisCache) SetAvailability(ctx context.Context, roomTypeID uuid.UUID, checkIn, checkOut time.Time, avail []domain.RoomAvailability) error {
	payload, err := json.Marshal(avail)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, availabilityKey(roomTypeID, checkIn, checkOut), payload, c.availTTL).Err()
}

func holdGuardKey(roomTypeID uuid.UUID, checkIn, checkOut time.Time) string {
	return fmt.Sprintf("hold:room:%s:%s:%s", roomTypeID, checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"))
}

func availabilityKey(roomTypeID uuid.UUID, checkIn, checkOut time.Time) string {
	return fmt.Sprintf("cache:availability:%s:%s:%s", roomTypeID, checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"))
}

package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL     = 4 * time.Hour
	lockTTL        = 5 * time.Second
	lockRetryDelay = 50 * time.Millisecond
	lockRetryLimit = 20
)

// RedisStore keeps one JSON document per table with a sliding TTL. Updates
// of the same table are serialised with a redislock lock.
type RedisStore struct {
	rdb    *redis.Client
	locker *redislock.Client
	ttl    time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		rdb:    rdb,
		locker: redislock.New(rdb),
		ttl:    ttl,
	}
}

func (s *RedisStore) Get(ctx context.Context, tableID uuid.UUID) (Cart, error) {
	val, err := s.rdb.Get(ctx, cartKey(tableID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(tableID), nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("cannot read cart %s: %w", tableID, err)
	}

	var c Cart
	if err := json.Unmarshal(val, &c); err != nil {
		return Cart{}, fmt.Errorf("cannot decode cart %s: %w", tableID, err)
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return c, nil
}

func (s *RedisStore) Update(ctx context.Context, tableID uuid.UUID, fn func(*Cart) error) (Cart, error) {
	lock, err := s.locker.Obtain(ctx, lockKey(tableID), lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(lockRetryDelay), lockRetryLimit),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return Cart{}, fmt.Errorf("cart %s is busy: %w", tableID, err)
	}
	if err != nil {
		return Cart{}, fmt.Errorf("cannot lock cart %s: %w", tableID, err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()

	c, err := s.Get(ctx, tableID)
	if err != nil {
		return Cart{}, err
	}
	if err := fn(&c); err != nil {
		return Cart{}, err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return Cart{}, fmt.Errorf("cannot encode cart %s: %w", tableID, err)
	}
	if err := s.rdb.Set(ctx, cartKey(tableID), data, s.ttl).Err(); err != nil {
		return Cart{}, fmt.Errorf("cannot save cart %s: %w", tableID, err)
	}
	return c, nil
}

func (s *RedisStore) Clear(ctx context.Context, tableID uuid.UUID) error {
	if err := s.rdb.Del(ctx, cartKey(tableID)).Err(); err != nil {
		return fmt.Errorf("cannot clear cart %s: %w", tableID, err)
	}
	return nil
}

func cartKey(tableID uuid.UUID) string {
	return "cart:" + tableID.String()
}

func lockKey(tableID uuid.UUID) string {
	return "cart-lock:" + tableID.String()
}

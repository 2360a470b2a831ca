package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MuteStore persists the per-restaurant mute toggle across restarts.
type MuteStore interface {
	Muted(ctx context.Context, restaurantID uuid.UUID) (bool, error)
	SetMuted(ctx context.Context, restaurantID uuid.UUID, muted bool) error
}

type RedisMuteStore struct {
	rdb *redis.Client
}

func NewRedisMuteStore(rdb *redis.Client) *RedisMuteStore {
	return &RedisMuteStore{rdb: rdb}
}

func (s *RedisMuteStore) Muted(ctx context.Context, restaurantID uuid.UUID) (bool, error) {
	val, err := s.rdb.Get(ctx, muteKey(restaurantID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cannot read mute flag %s: %w", restaurantID, err)
	}
	return val == "1", nil
}

func (s *RedisMuteStore) SetMuted(ctx context.Context, restaurantID uuid.UUID, muted bool) error {
	var err error
	if muted {
		err = s.rdb.Set(ctx, muteKey(restaurantID), "1", 0).Err()
	} else {
		err = s.rdb.Del(ctx, muteKey(restaurantID)).Err()
	}
	if err != nil {
		return fmt.Errorf("cannot save mute flag %s: %w", restaurantID, err)
	}
	return nil
}

func muteKey(restaurantID uuid.UUID) string {
	return "alerts:mute:" + restaurantID.String()
}

// MemoryMuteStore is used when Redis is not configured.
type MemoryMuteStore struct {
	mu    sync.RWMutex
	muted map[uuid.UUID]bool
}

func NewMemoryMuteStore() *MemoryMuteStore {
	return &MemoryMuteStore{muted: make(map[uuid.UUID]bool)}
}

func (s *MemoryMuteStore) Muted(ctx context.Context, restaurantID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted[restaurantID], nil
}

func (s *MemoryMuteStore) SetMuted(ctx context.Context, restaurantID uuid.UUID, muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if muted {
		s.muted[restaurantID] = true
	} else {
		delete(s.muted, restaurantID)
	}
	return nil
}

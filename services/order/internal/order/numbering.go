package order

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func formatOrderNumber(seq int64) string {
	return fmt.Sprintf("ORD-%03d", seq)
}

// RedisNumberer keeps one INCR counter per restaurant.
type RedisNumberer struct {
	rdb *redis.Client
}

func NewRedisNumberer(rdb *redis.Client) *RedisNumberer {
	return &RedisNumberer{rdb: rdb}
}

func (n *RedisNumberer) Next(ctx context.Context, restaurantID uuid.UUID) (string, error) {
	seq, err := n.rdb.Incr(ctx, "order-seq:"+restaurantID.String()).Result()
	if err != nil {
		return "", fmt.Errorf("cannot allocate order number: %w", err)
	}
	return formatOrderNumber(seq), nil
}

// MemoryNumberer is used when no Redis is configured. Without an OrderRepo
// sequences restart with the process; with one, each restaurant resumes
// after its highest stored number the first time it is numbered.
type MemoryNumberer struct {
	orders OrderRepo

	mu   sync.Mutex
	seqs map[uuid.UUID]int64
}

func NewMemoryNumberer() *MemoryNumberer {
	return &MemoryNumberer{seqs: make(map[uuid.UUID]int64)}
}

func NewResumingNumberer(orders OrderRepo) *MemoryNumberer {
	return &MemoryNumberer{orders: orders, seqs: make(map[uuid.UUID]int64)}
}

func (n *MemoryNumberer) Next(ctx context.Context, restaurantID uuid.UUID) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	seq, ok := n.seqs[restaurantID]
	if !ok && n.orders != nil {
		last, err := n.highest(ctx, restaurantID)
		if err != nil {
			return "", fmt.Errorf("cannot resume order numbers: %w", err)
		}
		seq = last
	}
	seq++
	n.seqs[restaurantID] = seq
	return formatOrderNumber(seq), nil
}

// highest ignores numbers not produced by formatOrderNumber.
func (n *MemoryNumberer) highest(ctx context.Context, restaurantID uuid.UUID) (int64, error) {
	orders, err := n.orders.List(ctx, OrderFilter{RestaurantID: restaurantID})
	if err != nil {
		return 0, err
	}
	var max int64
	for _, o := range orders {
		var seq int64
		if _, err := fmt.Sscanf(o.OrderNumber, "ORD-%d", &seq); err == nil && seq > max {
			max = seq
		}
	}
	return max, nil
}

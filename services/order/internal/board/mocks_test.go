package board

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
)

// MockOrderRepo is an in-memory order.OrderRepo with version checks.
// HoldNextGet and HoldNextList make the next read capture its result and
// then wait on a gate, like a reply delayed on the wire. Held reports each
// captured read.
type MockOrderRepo struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]order.Order
	getGate  chan struct{}
	listGate chan struct{}
	Held     chan string
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{orders: make(map[uuid.UUID]order.Order), Held: make(chan string, 8)}
}

func (m *MockOrderRepo) HoldNextGet(gate chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getGate = gate
}

func (m *MockOrderRepo) HoldNextList(gate chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listGate = gate
}

func (m *MockOrderRepo) wait(ctx context.Context, kind string, gate chan struct{}) {
	if gate == nil {
		return
	}
	m.Held <- kind
	select {
	case <-gate:
	case <-ctx.Done():
	}
}

func (m *MockOrderRepo) Create(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = *o
	return nil
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	m.mu.Lock()
	o, ok := m.orders[id]
	gate := m.getGate
	m.getGate = nil
	m.mu.Unlock()

	m.wait(ctx, "get", gate)
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (m *MockOrderRepo) List(ctx context.Context, filter order.OrderFilter) ([]*order.Order, error) {
	m.mu.Lock()
	result := m.list(filter)
	gate := m.listGate
	m.listGate = nil
	m.mu.Unlock()

	m.wait(ctx, "list", gate)
	return result, nil
}

func (m *MockOrderRepo) list(filter order.OrderFilter) []*order.Order {
	var result []*order.Order
	for _, o := range m.orders {
		if filter.RestaurantID != uuid.Nil && o.RestaurantID != filter.RestaurantID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if s == o.Status {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		c := o
		result = append(result, &c)
	}
	return result
}

func (m *MockOrderRepo) Update(ctx context.Context, o *order.Order, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return order.ErrVersionConflict
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *MockOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	return nil
}

// MockWriter fails the first Failures calls with Err, optionally blocking
// on Gate first, then delegates to Next.
type MockWriter struct {
	Next     StatusWriter
	Failures int32
	Err      error
	Gate     chan struct{}
	calls    atomic.Int32
}

func (m *MockWriter) UpdateStatus(ctx context.Context, id uuid.UUID, target string, expectedVersion int) (*order.Order, error) {
	n := m.calls.Add(1)
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n <= m.Failures {
		return nil, m.Err
	}
	return m.Next.UpdateStatus(ctx, id, target, expectedVersion)
}

func (m *MockWriter) Calls() int {
	return int(m.calls.Load())
}

// snapshotRecorder keeps every snapshot an observer saw.
type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *snapshotRecorder) ObserveSnapshot(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *snapshotRecorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

var fixedNow = time.Date(2026, 5, 4, 19, 30, 0, 0, time.UTC)

// MockRestaurantSource knows the restaurants in IDs.
type MockRestaurantSource struct {
	IDs map[uuid.UUID]bool
	Err error
}

func (m *MockRestaurantSource) Get(ctx context.Context, id uuid.UUID) (*order.Restaurant, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if !m.IDs[id] {
		return nil, order.ErrNotFound
	}
	return &order.Restaurant{ID: id}, nil
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

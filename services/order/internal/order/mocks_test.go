package order

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockPublisher records published messages.
type MockPublisher struct {
	mu          sync.Mutex
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
	Published   []PublishedMessage
}

type PublishedMessage struct {
	Topic string
	Data  []byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	m.Published = append(m.Published, PublishedMessage{Topic: topic, Data: msg})
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	return nil
}

func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}

// MockOrderRepo is an in-memory OrderRepo that enforces versions like the
// real stores do.
type MockOrderRepo struct {
	mu         sync.RWMutex
	orders     map[uuid.UUID]*Order
	calls      int
	CreateFunc func(ctx context.Context, order *Order) error
	GetFunc    func(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateFunc func(ctx context.Context, order *Order, expectedVersion int) error
	DeleteFunc func(ctx context.Context, id uuid.UUID) error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		orders: make(map[uuid.UUID]*Order),
	}
}

func (m *MockOrderRepo) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

func (m *MockOrderRepo) Put(order *Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *order
	m.orders[order.ID] = &c
}

func (m *MockOrderRepo) Create(ctx context.Context, order *Order) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	m.Put(order)
	return nil
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *order
	return &c, nil
}

func (m *MockOrderRepo) List(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		if filter.RestaurantID != uuid.Nil && o.RestaurantID != filter.RestaurantID {
			continue
		}
		if filter.TableID != uuid.Nil && o.TableID != filter.TableID {
			continue
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, o.Status) {
			continue
		}
		c := *o
		result = append(result, &c)
	}
	return result, nil
}

func (m *MockOrderRepo) Update(ctx context.Context, order *Order, expectedVersion int) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, order, expectedVersion)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	c := *order
	m.orders[order.ID] = &c
	return nil
}

func (m *MockOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

type MockRestaurantRepo struct {
	mu          sync.RWMutex
	restaurants map[uuid.UUID]*Restaurant
	GetFunc     func(ctx context.Context, id uuid.UUID) (*Restaurant, error)
}

func NewMockRestaurantRepo(restaurants ...*Restaurant) *MockRestaurantRepo {
	m := &MockRestaurantRepo{restaurants: make(map[uuid.UUID]*Restaurant)}
	for _, r := range restaurants {
		m.restaurants[r.ID] = r
	}
	return m
}

func (m *MockRestaurantRepo) Create(ctx context.Context, restaurant *Restaurant) error {
	return m.Save(ctx, restaurant)
}

func (m *MockRestaurantRepo) Get(ctx context.Context, id uuid.UUID) (*Restaurant, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.restaurants[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *MockRestaurantRepo) List(ctx context.Context) ([]*Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Restaurant
	for _, r := range m.restaurants {
		result = append(result, r)
	}
	return result, nil
}

func (m *MockRestaurantRepo) Save(ctx context.Context, restaurant *Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *restaurant
	m.restaurants[restaurant.ID] = &c
	return nil
}

type MockTableRepo struct {
	mu     sync.RWMutex
	tables map[uuid.UUID]*Table
}

func NewMockTableRepo(tables ...*Table) *MockTableRepo {
	m := &MockTableRepo{tables: make(map[uuid.UUID]*Table)}
	for _, t := range tables {
		m.tables[t.ID] = t
	}
	return m
}

func (m *MockTableRepo) Create(ctx context.Context, table *Table) error {
	return m.Save(ctx, table)
}

func (m *MockTableRepo) Get(ctx context.Context, id uuid.UUID) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}

func (m *MockTableRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Table
	for _, t := range m.tables {
		if t.RestaurantID == restaurantID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *MockTableRepo) Save(ctx context.Context, table *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *table
	m.tables[table.ID] = &c
	return nil
}

type MockMenuItemRepo struct {
	items map[uuid.UUID]*MenuItem
}

func NewMockMenuItemRepo(items ...*MenuItem) *MockMenuItemRepo {
	m := &MockMenuItemRepo{items: make(map[uuid.UUID]*MenuItem)}
	for _, i := range items {
		m.items[i.ID] = i
	}
	return m
}

func (m *MockMenuItemRepo) Create(ctx context.Context, item *MenuItem) error {
	m.items[item.ID] = item
	return nil
}

func (m *MockMenuItemRepo) Get(ctx context.Context, id uuid.UUID) (*MenuItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return item, nil
}

func (m *MockMenuItemRepo) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*MenuItem, error) {
	var result []*MenuItem
	for _, i := range m.items {
		if i.RestaurantID == restaurantID {
			result = append(result, i)
		}
	}
	return result, nil
}

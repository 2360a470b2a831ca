package alert

import (
	"context"
	"sync"

	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
)

type MockSink struct {
	mu       sync.Mutex
	Alerts   []event.NewOrdersAlert
	SendFunc func(ctx context.Context, alert event.NewOrdersAlert) error
}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Send(ctx context.Context, alert event.NewOrdersAlert) error {
	m.mu.Lock()
	m.Alerts = append(m.Alerts, alert)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, alert)
	}
	return nil
}

func (m *MockSink) all() []event.NewOrdersAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]event.NewOrdersAlert(nil), m.Alerts...)
}

type MockMuteStore struct {
	MutedFunc    func(ctx context.Context, restaurantID uuid.UUID) (bool, error)
	SetMutedFunc func(ctx context.Context, restaurantID uuid.UUID, muted bool) error
}

func (m *MockMuteStore) Muted(ctx context.Context, restaurantID uuid.UUID) (bool, error) {
	if m.MutedFunc != nil {
		return m.MutedFunc(ctx, restaurantID)
	}
	return false, nil
}

func (m *MockMuteStore) SetMuted(ctx context.Context, restaurantID uuid.UUID, muted bool) error {
	if m.SetMutedFunc != nil {
		return m.SetMutedFunc(ctx, restaurantID, muted)
	}
	return nil
}

// MockOrderSource serves a single stored order.
type MockOrderSource struct {
	Order order.Order
}

func (m *MockOrderSource) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if id != m.Order.ID {
		return nil, order.ErrNotFound
	}
	o := m.Order
	return &o, nil
}

func (m *MockOrderSource) List(ctx context.Context, filter order.OrderFilter) ([]*order.Order, error) {
	o := m.Order
	return []*order.Order{&o}, nil
}

type MockStatusWriter struct {
	UpdateStatusFunc func(ctx context.Context, id uuid.UUID, target string, expectedVersion int) (*order.Order, error)
}

func (m *MockStatusWriter) UpdateStatus(ctx context.Context, id uuid.UUID, target string, expectedVersion int) (*order.Order, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, target, expectedVersion)
	}
	return nil, order.ErrNotFound
}

package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/tableside/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableside/pkg/enums/priority"
	"github.com/google/uuid"
)

// AnyVersion skips the optimistic concurrency check on status writes.
const AnyVersion = 0

// StatusService owns every mutation of an existing order.
type StatusService struct {
	orders  OrderRepo
	changes changePublisher
	logger  apt.Logger
	now     func() time.Time
}

func NewStatusService(orders OrderRepo, publisher events.Publisher, logger apt.Logger) *StatusService {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	logger = logger.With("component", "status-service")
	return &StatusService{
		orders:  orders,
		changes: changePublisher{publisher: publisher, logger: logger},
		logger:  logger,
		now:     time.Now,
	}
}

func (s *StatusService) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *StatusService) List(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	return s.orders.List(ctx, filter)
}

// UpdateStatus advances an order. expectedVersion guards against a
// concurrent write; pass AnyVersion to apply against whatever is stored.
func (s *StatusService) UpdateStatus(ctx context.Context, id uuid.UUID, target string, expectedVersion int) (*Order, error) {
	next, ok := orderstatus.Parse(target)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.advance(ctx, order, next, expectedVersion)
}

func (s *StatusService) advance(ctx context.Context, order *Order, next orderstatus.Status, expectedVersion int) (*Order, error) {
	if expectedVersion != AnyVersion && order.Version != expectedVersion {
		return nil, fmt.Errorf("%w: order %s is at version %d, not %d", ErrVersionConflict, order.OrderNumber, order.Version, expectedVersion)
	}

	previous := order.Status
	stored := order.Version
	if err := order.AdvanceTo(next, s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, order, stored); err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		"order_id", order.ID.String(),
		"order_number", order.OrderNumber,
		"from", previous,
		"to", order.Status,
		"version", order.Version,
	)
	s.changes.updated(ctx, order, previous)
	return order, nil
}

func (s *StatusService) UpdatePriority(ctx context.Context, id uuid.UUID, name string) (*Order, error) {
	p := priority.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, name)
	}

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Priority == p.Code() {
		return order, nil
	}

	stored := order.Version
	order.SetPriority(*p, s.now())
	if err := s.orders.Update(ctx, order, stored); err != nil {
		return nil, err
	}
	s.changes.updated(ctx, order, order.Status)
	return order, nil
}

// BulkResult reports the outcome for one order of a bulk update.
type BulkResult struct {
	OrderID uuid.UUID `json:"order_id"`
	Order   *Order    `json:"order,omitempty"`
	Error   string    `json:"error,omitempty"`
	Err     error     `json:"-"`
}

// BulkUpdateStatus applies the same target to each order of the restaurant
// independently. A failure on one order does not stop or undo the others.
// Orders of other restaurants are reported as not found.
func (s *StatusService) BulkUpdateStatus(ctx context.Context, restaurantID uuid.UUID, ids []uuid.UUID, target string) []BulkResult {
	results := make([]BulkResult, 0, len(ids))
	next, ok := orderstatus.Parse(target)

	for _, id := range ids {
		res := BulkResult{OrderID: id}
		order, err := s.bulkOne(ctx, restaurantID, id, next, ok, target)
		if err != nil {
			res.Err = err
			res.Error = err.Error()
		} else {
			res.Order = order
		}
		results = append(results, res)
	}
	return results
}

func (s *StatusService) bulkOne(ctx context.Context, restaurantID, id uuid.UUID, next orderstatus.Status, valid bool, target string) (*Order, error) {
	if !valid {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.RestaurantID != restaurantID {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	return s.advance(ctx, order, next, AnyVersion)
}

// Delete purges an order. It exists for administrative cleanup only.
func (s *StatusService) Delete(ctx context.Context, id uuid.UUID) error {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("cannot delete order %s: %w", id, err)
	}
	s.logger.Info("order deleted", "order_id", id.String(), "order_number", order.OrderNumber)
	s.changes.deleted(ctx, order)
	return nil
}

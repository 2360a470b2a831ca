package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrVersionConflict   = errors.New("order was changed by someone else")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidPriority   = errors.New("unknown priority")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrTableUnavailable  = errors.New("table does not accept orders")
	ErrItemUnavailable   = errors.New("menu item is not available")
	ErrItemNotOnMenu     = errors.New("menu item is not on this restaurant's menu")
)

type OrderFilter struct {
	RestaurantID uuid.UUID
	TableID      uuid.UUID
	Statuses     []string
}

type OrderRepo interface {
	Create(ctx context.Context, order *Order) error
	// Get returns ErrNotFound when no order has the id.
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*Order, error)
	// Update replaces status, priority and timestamps only if the stored
	// version still equals expectedVersion. It returns ErrVersionConflict
	// otherwise, or ErrNotFound if the order is gone.
	Update(ctx context.Context, order *Order, expectedVersion int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type RestaurantRepo interface {
	Create(ctx context.Context, restaurant *Restaurant) error
	Get(ctx context.Context, id uuid.UUID) (*Restaurant, error)
	List(ctx context.Context) ([]*Restaurant, error)
	Save(ctx context.Context, restaurant *Restaurant) error
}

type TableRepo interface {
	Create(ctx context.Context, table *Table) error
	Get(ctx context.Context, id uuid.UUID) (*Table, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*Table, error)
	Save(ctx context.Context, table *Table) error
}

type MenuItemRepo interface {
	Create(ctx context.Context, item *MenuItem) error
	Get(ctx context.Context, id uuid.UUID) (*MenuItem, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]*MenuItem, error)
}

// Numberer hands out human readable order numbers per restaurant.
type Numberer interface {
	Next(ctx context.Context, restaurantID uuid.UUID) (string, error)
}

// Repos groups the persistence collaborators the service needs.
type Repos struct {
	Orders      OrderRepo
	Restaurants RestaurantRepo
	Tables      TableRepo
	MenuItems   MenuItemRepo
}

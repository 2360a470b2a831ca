package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/tableside/services/order/internal/cart"
	"github.com/google/uuid"
)

type SubmitterDeps struct {
	Repos     Repos
	Numberer  Numberer
	Carts     cart.Store
	Publisher events.Publisher
}

// Submitter turns table carts into pending orders.
type Submitter struct {
	orders      OrderRepo
	restaurants RestaurantRepo
	tables      TableRepo
	menuItems   MenuItemRepo
	numberer    Numberer
	carts       cart.Store
	changes     changePublisher
	logger      apt.Logger
}

func NewSubmitter(deps SubmitterDeps, logger apt.Logger) *Submitter {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	numberer := deps.Numberer
	if numberer == nil {
		numberer = NewMemoryNumberer()
	}
	logger = logger.With("component", "submitter")
	return &Submitter{
		orders:      deps.Repos.Orders,
		restaurants: deps.Repos.Restaurants,
		tables:      deps.Repos.Tables,
		menuItems:   deps.Repos.MenuItems,
		numberer:    numberer,
		carts:       deps.Carts,
		changes:     changePublisher{publisher: deps.Publisher, logger: logger},
		logger:      logger,
	}
}

type submitOptions struct {
	customerName string
}

type SubmitOption func(*submitOptions)

func WithCustomerName(name string) SubmitOption {
	return func(o *submitOptions) {
		o.customerName = strings.TrimSpace(name)
	}
}

// Submit persists c as a pending order for tableID. Totals use the
// restaurant's tax rate at this moment and are never recomputed. Every line
// must be on the menu of the table's restaurant. The submitted lines are
// taken out of the table's stored cart only after the order is written; on
// any error the cart is left as it was.
func (s *Submitter) Submit(ctx context.Context, c cart.Cart, specialInstructions string, tableID uuid.UUID, opts ...SubmitOption) (*Order, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	for _, line := range c.Lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: %s has quantity %d", ErrInvalidQuantity, line.Name, line.Quantity)
		}
	}

	options := submitOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	table, err := s.tables.Get(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("cannot load table %s: %w", tableID, err)
	}
	if !table.AcceptsOrders() {
		return nil, fmt.Errorf("%w: table %s is %s", ErrTableUnavailable, table.Number, table.Status)
	}

	restaurant, err := s.restaurants.Get(ctx, table.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("cannot load restaurant %s: %w", table.RestaurantID, err)
	}
	if err := s.checkMenu(ctx, restaurant.ID, c.Lines); err != nil {
		return nil, err
	}

	order := NewOrder()
	order.RestaurantID = restaurant.ID
	order.TableID = table.ID
	order.CustomerName = options.customerName
	order.SpecialInstructions = strings.TrimSpace(specialInstructions)
	order.EstimatedTimeMinutes = restaurant.PrepTimeMinutes
	order.Currency = restaurant.CurrencySymbol
	order.TaxRatePercent = restaurant.TaxRatePercent
	order.Items = itemsFromCart(c)

	totals := ComputeTotals(order.Items, restaurant.TaxRatePercent)
	order.Subtotal = totals.Subtotal
	order.Tax = totals.Tax
	order.TotalAmount = totals.Total

	number, err := s.numberer.Next(ctx, restaurant.ID)
	if err != nil {
		return nil, err
	}
	order.OrderNumber = number
	order.BeforeCreate()

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("cannot create order: %w", err)
	}

	s.logger.Info("order submitted",
		"order_id", order.ID.String(),
		"order_number", order.OrderNumber,
		"restaurant_id", order.RestaurantID.String(),
		"table_id", order.TableID.String(),
		"total", order.TotalAmount.StringFixed(moneyPlaces),
	)

	if s.carts != nil {
		submitted := c.Lines
		_, err := s.carts.Update(ctx, tableID, func(stored *cart.Cart) error {
			stored.Subtract(submitted)
			return nil
		})
		if err != nil {
			s.logger.Error("cannot clear cart after submission", "table_id", tableID.String(), "error", err)
		}
	}

	s.changes.added(ctx, order)
	return order, nil
}

// SubmitTable submits whatever is in the table's stored cart.
func (s *Submitter) SubmitTable(ctx context.Context, tableID uuid.UUID, specialInstructions string, opts ...SubmitOption) (*Order, error) {
	if s.carts == nil {
		return nil, errors.New("no cart store configured")
	}
	c, err := s.carts.Get(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, c, specialInstructions, tableID, opts...)
}

func (s *Submitter) checkMenu(ctx context.Context, restaurantID uuid.UUID, lines []cart.Line) error {
	if s.menuItems == nil {
		return nil
	}
	for _, line := range lines {
		item, err := s.menuItems.Get(ctx, line.ItemID)
		if errors.Is(err, ErrNotFound) || (err == nil && item.RestaurantID != restaurantID) {
			return fmt.Errorf("%w: %s", ErrItemNotOnMenu, line.Name)
		}
		if err != nil {
			return fmt.Errorf("cannot load menu item %s: %w", line.ItemID, err)
		}
	}
	return nil
}

func itemsFromCart(c cart.Cart) []Item {
	items := make([]Item, 0, len(c.Lines))
	for _, line := range c.Lines {
		items = append(items, Item{
			MenuItemID: line.ItemID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
		})
	}
	return items
}

// MenuCatalog resolves cart additions against the menu of the table's
// restaurant.
type MenuCatalog struct {
	items  MenuItemRepo
	tables TableRepo
}

func NewMenuCatalog(items MenuItemRepo, tables TableRepo) *MenuCatalog {
	return &MenuCatalog{items: items, tables: tables}
}

func (c *MenuCatalog) MenuItem(ctx context.Context, tableID, itemID uuid.UUID) (cart.Item, error) {
	table, err := c.tables.Get(ctx, tableID)
	if errors.Is(err, ErrNotFound) {
		return cart.Item{}, cart.ErrTableNotFound
	}
	if err != nil {
		return cart.Item{}, err
	}
	item, err := c.items.Get(ctx, itemID)
	if errors.Is(err, ErrNotFound) {
		return cart.Item{}, cart.ErrItemNotFound
	}
	if err != nil {
		return cart.Item{}, err
	}
	if item.RestaurantID != table.RestaurantID {
		return cart.Item{}, cart.ErrItemNotFound
	}
	if !item.Available {
		return cart.Item{}, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
	}
	return cart.Item{
		ID:          item.ID,
		Name:        item.Name,
		UnitPrice:   item.Price,
		ImageRef:    item.ImageRef,
		Description: item.Description,
	}, nil
}

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/pkg/demo"
	"github.com/appetiteclub/tableside/services/order/internal/cart"
	"github.com/appetiteclub/tableside/services/order/internal/order"
)

// seedDemo creates the demo restaurant and places its orders through the
// regular submission and status paths, so feed events and order numbers
// are produced as in production. It is a no-op once the restaurant exists.
func seedDemo(ctx context.Context, repos order.Repos, submitter *order.Submitter, status *order.StatusService, logger apt.Logger) error {
	_, err := repos.Restaurants.Get(ctx, demo.RestaurantID)
	if err == nil {
		logger.Info("demo restaurant already present, skipping seeding")
		return nil
	}
	if !errors.Is(err, order.ErrNotFound) {
		return fmt.Errorf("check demo restaurant: %w", err)
	}

	rest := &order.Restaurant{
		ID:              demo.RestaurantID,
		Name:            demo.Restaurant.Name,
		TaxRatePercent:  demo.Restaurant.TaxRatePercent,
		CurrencySymbol:  demo.Restaurant.CurrencySymbol,
		PrepTimeMinutes: demo.Restaurant.PrepTimeMinutes,
	}
	rest.BeforeCreate()
	if err := repos.Restaurants.Create(ctx, rest); err != nil {
		return fmt.Errorf("create demo restaurant: %w", err)
	}

	for _, dt := range demo.Tables {
		t := &order.Table{
			ID:           dt.ID,
			RestaurantID: demo.RestaurantID,
			Number:       dt.Number,
			Capacity:     dt.Capacity,
			Status:       dt.Status,
		}
		t.BeforeCreate()
		if err := repos.Tables.Create(ctx, t); err != nil {
			return fmt.Errorf("create demo table %s: %w", dt.Number, err)
		}
	}

	for _, dm := range demo.Menu {
		m := &order.MenuItem{
			ID:           dm.ID,
			RestaurantID: demo.RestaurantID,
			Name:         dm.Name,
			Description:  dm.Description,
			Price:        dm.Price,
			ImageRef:     dm.ImageRef,
			Available:    true,
		}
		m.BeforeCreate()
		if err := repos.MenuItems.Create(ctx, m); err != nil {
			return fmt.Errorf("create demo menu item %s: %w", dm.Name, err)
		}
	}

	for i, do := range demo.Orders {
		if err := placeDemoOrder(ctx, do, submitter, status); err != nil {
			return fmt.Errorf("place demo order %d: %w", i+1, err)
		}
	}

	logger.Info("demo data seeded",
		"restaurant_id", demo.RestaurantID.String(),
		"tables", len(demo.Tables),
		"menu_items", len(demo.Menu),
		"orders", len(demo.Orders),
	)
	return nil
}

func placeDemoOrder(ctx context.Context, do demo.Order, submitter *order.Submitter, status *order.StatusService) error {
	table := demo.Tables[do.Table]
	c := cart.New(table.ID)
	for _, l := range do.Lines {
		m := demo.Menu[l.Menu]
		c.AddItem(cart.Item{
			ID:          m.ID,
			Name:        m.Name,
			UnitPrice:   m.Price,
			ImageRef:    m.ImageRef,
			Description: m.Description,
		}, l.Quantity)
	}

	o, err := submitter.Submit(ctx, c, do.Notes, table.ID, order.WithCustomerName(do.Customer))
	if err != nil {
		return err
	}

	for o.Status != do.Status {
		next, ok := o.CurrentStatus().Next()
		if !ok {
			return fmt.Errorf("cannot reach status %q", do.Status)
		}
		if o, err = status.UpdateStatus(ctx, o.ID, next.Code(), o.Version); err != nil {
			return err
		}
	}

	if do.Priority != "" {
		if _, err := status.UpdatePriority(ctx, o.ID, do.Priority); err != nil {
			return err
		}
	}
	return nil
}

package mongo

import (
	"time"

	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Documents store ids as strings and money as Decimal128 so values stay
// exact and readable from the mongo shell.

type orderDoc struct {
	ID                   string               `bson:"_id"`
	OrderNumber          string               `bson:"order_number"`
	RestaurantID         string               `bson:"restaurant_id"`
	TableID              string               `bson:"table_id"`
	CustomerName         string               `bson:"customer_name,omitempty"`
	Items                []itemDoc            `bson:"items"`
	Status               string               `bson:"status"`
	Priority             string               `bson:"priority"`
	SpecialInstructions  string               `bson:"special_instructions,omitempty"`
	EstimatedTimeMinutes int                  `bson:"estimated_time_minutes"`
	Currency             string               `bson:"currency"`
	TaxRatePercent       primitive.Decimal128 `bson:"tax_rate_percent"`
	Subtotal             primitive.Decimal128 `bson:"subtotal"`
	Tax                  primitive.Decimal128 `bson:"tax"`
	TotalAmount          primitive.Decimal128 `bson:"total_amount"`
	Version              int                  `bson:"version"`
	CreatedAt            time.Time            `bson:"created_at"`
	UpdatedAt            time.Time            `bson:"updated_at"`
	StartedAt            *time.Time           `bson:"started_at,omitempty"`
	ReadyAt              *time.Time           `bson:"ready_at,omitempty"`
	ServedAt             *time.Time           `bson:"served_at,omitempty"`
	CompletedAt          *time.Time           `bson:"completed_at,omitempty"`
}

type itemDoc struct {
	MenuItemID string               `bson:"menu_item_id"`
	Name       string               `bson:"name"`
	Quantity   int                  `bson:"quantity"`
	UnitPrice  primitive.Decimal128 `bson:"unit_price"`
	Modifiers  []string             `bson:"modifiers,omitempty"`
}

type restaurantDoc struct {
	ID              string               `bson:"_id"`
	Name            string               `bson:"name"`
	TaxRatePercent  primitive.Decimal128 `bson:"tax_rate_percent"`
	CurrencySymbol  string               `bson:"currency_symbol"`
	PrepTimeMinutes int                  `bson:"prep_time_minutes"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

type tableDoc struct {
	ID           string    `bson:"_id"`
	RestaurantID string    `bson:"restaurant_id"`
	Number       string    `bson:"number"`
	Capacity     int       `bson:"capacity"`
	QRCodeRef    string    `bson:"qr_code_ref,omitempty"`
	Status       string    `bson:"status"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type menuItemDoc struct {
	ID           string               `bson:"_id"`
	RestaurantID string               `bson:"restaurant_id"`
	Name         string               `bson:"name"`
	Description  string               `bson:"description,omitempty"`
	Price        primitive.Decimal128 `bson:"price"`
	ImageRef     string               `bson:"image_ref,omitempty"`
	Available    bool                 `bson:"available"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func newOrderDoc(o *order.Order) orderDoc {
	items := make([]itemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemDoc{
			MenuItemID: it.MenuItemID.String(),
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  toDecimal128(it.UnitPrice),
			Modifiers:  it.Modifiers,
		})
	}
	return orderDoc{
		ID:                   o.ID.String(),
		OrderNumber:          o.OrderNumber,
		RestaurantID:         o.RestaurantID.String(),
		TableID:              o.TableID.String(),
		CustomerName:         o.CustomerName,
		Items:                items,
		Status:               o.Status,
		Priority:             o.Priority,
		SpecialInstructions:  o.SpecialInstructions,
		EstimatedTimeMinutes: o.EstimatedTimeMinutes,
		Currency:             o.Currency,
		TaxRatePercent:       toDecimal128(o.TaxRatePercent),
		Subtotal:             toDecimal128(o.Subtotal),
		Tax:                  toDecimal128(o.Tax),
		TotalAmount:          toDecimal128(o.TotalAmount),
		Version:              o.Version,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		StartedAt:            o.StartedAt,
		ReadyAt:              o.ReadyAt,
		ServedAt:             o.ServedAt,
		CompletedAt:          o.CompletedAt,
	}
}

func (d orderDoc) toOrder() *order.Order {
	items := make([]order.Item, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, order.Item{
			MenuItemID: parseID(it.MenuItemID),
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  fromDecimal128(it.UnitPrice),
			Modifiers:  it.Modifiers,
		})
	}
	return &order.Order{
		ID:                   parseID(d.ID),
		OrderNumber:          d.OrderNumber,
		RestaurantID:         parseID(d.RestaurantID),
		TableID:              parseID(d.TableID),
		CustomerName:         d.CustomerName,
		Items:                items,
		Status:               d.Status,
		Priority:             d.Priority,
		SpecialInstructions:  d.SpecialInstructions,
		EstimatedTimeMinutes: d.EstimatedTimeMinutes,
		Currency:             d.Currency,
		TaxRatePercent:       fromDecimal128(d.TaxRatePercent),
		Subtotal:             fromDecimal128(d.Subtotal),
		Tax:                  fromDecimal128(d.Tax),
		TotalAmount:          fromDecimal128(d.TotalAmount),
		Version:              d.Version,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
		StartedAt:            d.StartedAt,
		ReadyAt:              d.ReadyAt,
		ServedAt:             d.ServedAt,
		CompletedAt:          d.CompletedAt,
	}
}

func newRestaurantDoc(r *order.Restaurant) restaurantDoc {
	return restaurantDoc{
		ID:              r.ID.String(),
		Name:            r.Name,
		TaxRatePercent:  toDecimal128(r.TaxRatePercent),
		CurrencySymbol:  r.CurrencySymbol,
		PrepTimeMinutes: r.PrepTimeMinutes,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (d restaurantDoc) toRestaurant() *order.Restaurant {
	return &order.Restaurant{
		ID:              parseID(d.ID),
		Name:            d.Name,
		TaxRatePercent:  fromDecimal128(d.TaxRatePercent),
		CurrencySymbol:  d.CurrencySymbol,
		PrepTimeMinutes: d.PrepTimeMinutes,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func newTableDoc(t *order.Table) tableDoc {
	return tableDoc{
		ID:           t.ID.String(),
		RestaurantID: t.RestaurantID.String(),
		Number:       t.Number,
		Capacity:     t.Capacity,
		QRCodeRef:    t.QRCodeRef,
		Status:       t.Status,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (d tableDoc) toTable() *order.Table {
	return &order.Table{
		ID:           parseID(d.ID),
		RestaurantID: parseID(d.RestaurantID),
		Number:       d.Number,
		Capacity:     d.Capacity,
		QRCodeRef:    d.QRCodeRef,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func newMenuItemDoc(m *order.MenuItem) menuItemDoc {
	return menuItemDoc{
		ID:           m.ID.String(),
		RestaurantID: m.RestaurantID.String(),
		Name:         m.Name,
		Description:  m.Description,
		Price:        toDecimal128(m.Price),
		ImageRef:     m.ImageRef,
		Available:    m.Available,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (d menuItemDoc) toMenuItem() *order.MenuItem {
	return &order.MenuItem{
		ID:           parseID(d.ID),
		RestaurantID: parseID(d.RestaurantID),
		Name:         d.Name,
		Description:  d.Description,
		Price:        fromDecimal128(d.Price),
		ImageRef:     d.ImageRef,
		Available:    d.Available,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

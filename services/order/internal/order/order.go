package order

import (
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableside/pkg/enums/priority"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the durable record created when a table submits its cart. Items
// and money fields are fixed at submission; only Status, Priority and the
// bookkeeping fields change afterwards.
type Order struct {
	ID                   uuid.UUID       `json:"id"`
	OrderNumber          string          `json:"order_number"`
	RestaurantID         uuid.UUID       `json:"restaurant_id"`
	TableID              uuid.UUID       `json:"table_id"`
	CustomerName         string          `json:"customer_name,omitempty"`
	Items                []Item          `json:"items"`
	Status               string          `json:"status"`
	Priority             string          `json:"priority"`
	SpecialInstructions  string          `json:"special_instructions,omitempty"`
	EstimatedTimeMinutes int             `json:"estimated_time_minutes"`
	Currency             string          `json:"currency"`
	TaxRatePercent       decimal.Decimal `json:"tax_rate_percent"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	Tax                  decimal.Decimal `json:"tax"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	Version              int             `json:"version"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	StartedAt            *time.Time      `json:"started_at,omitempty"`
	ReadyAt              *time.Time      `json:"ready_at,omitempty"`
	ServedAt             *time.Time      `json:"served_at,omitempty"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"`
}

// Item is an order line as it was at submission.
type Item struct {
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Modifiers  []string        `json:"modifiers,omitempty"`
}

func (i Item) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func NewOrder() *Order {
	return &Order{
		ID:       apt.GenerateNewID(),
		Status:   orderstatus.Statuses.Pending.Code(),
		Priority: priority.Priorities.Normal.Code(),
		Items:    []Item{},
	}
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.Status == "" {
		o.Status = orderstatus.Statuses.Pending.Code()
	}
	if o.Priority == "" {
		o.Priority = priority.Priorities.Normal.Code()
	}
	o.Version = 1
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now().UTC()
}

// CurrentStatus returns the parsed status. Unknown values yield the zero
// Status.
func (o *Order) CurrentStatus() orderstatus.Status {
	s, _ := orderstatus.Parse(o.Status)
	return s
}

// AdvanceTo moves the order forward to target, stamps the matching
// timestamp and bumps the version. Regressions and no-ops return
// ErrInvalidTransition.
func (o *Order) AdvanceTo(target orderstatus.Status, at time.Time) error {
	current := o.CurrentStatus()
	if !current.CanAdvanceTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target.Code())
	}

	at = at.UTC()
	switch target.Name {
	case orderstatus.Statuses.Preparing.Name:
		o.StartedAt = &at
	case orderstatus.Statuses.Ready.Name:
		o.ReadyAt = &at
	case orderstatus.Statuses.Served.Name:
		o.ServedAt = &at
	case orderstatus.Statuses.Completed.Name:
		o.CompletedAt = &at
	}

	o.Status = target.Code()
	o.UpdatedAt = at
	o.Version++
	return nil
}

// SetPriority changes the display tag. It bumps the version so feed
// consumers can order it against status writes.
func (o *Order) SetPriority(p priority.Priority, at time.Time) {
	o.Priority = p.Code()
	o.UpdatedAt = at.UTC()
	o.Version++
}

func (o *Order) TotalItems() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

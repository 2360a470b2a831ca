package order

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultPrepTimeMinutes = 20

// Restaurant holds the configuration read at submission time.
type Restaurant struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	TaxRatePercent  decimal.Decimal `json:"tax_rate_percent"`
	CurrencySymbol  string          `json:"currency_symbol"`
	PrepTimeMinutes int             `json:"prep_time_minutes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (r *Restaurant) GetID() uuid.UUID {
	return r.ID
}

func (r *Restaurant) ResourceType() string {
	return "restaurant"
}

func (r *Restaurant) BeforeCreate() {
	if r.ID == uuid.Nil {
		r.ID = apt.GenerateNewID()
	}
	if r.PrepTimeMinutes <= 0 {
		r.PrepTimeMinutes = DefaultPrepTimeMinutes
	}
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
}

func (r *Restaurant) BeforeUpdate() {
	r.UpdatedAt = time.Now().UTC()
}

type Table struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Number       string    `json:"number"`
	Capacity     int       `json:"capacity"`
	QRCodeRef    string    `json:"qr_code_ref,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (t *Table) GetID() uuid.UUID {
	return t.ID
}

func (t *Table) ResourceType() string {
	return "table"
}

func (t *Table) BeforeCreate() {
	if t.ID == uuid.Nil {
		t.ID = apt.GenerateNewID()
	}
	if t.Status == "" {
		t.Status = tablestatus.Statuses.Available.Code()
	}
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
}

// AcceptsOrders is false only for tables marked unavailable. Occupancy is
// managed by staff and does not block ordering.
func (t *Table) AcceptsOrders() bool {
	s := tablestatus.ByName(t.Status)
	if s == nil {
		return false
	}
	return s.AcceptsOrders()
}

type MenuItem struct {
	ID           uuid.UUID       `json:"id"`
	RestaurantID uuid.UUID       `json:"restaurant_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	ImageRef     string          `json:"image_ref,omitempty"`
	Available    bool            `json:"available"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (m *MenuItem) GetID() uuid.UUID {
	return m.ID
}

func (m *MenuItem) ResourceType() string {
	return "menu-item"
}

func (m *MenuItem) BeforeCreate() {
	if m.ID == uuid.Nil {
		m.ID = apt.GenerateNewID()
	}
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
}

package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is what a diner picks from the menu. UnitPrice comes from the
// catalog, never from the client.
type Item struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ImageRef    string          `json:"image_ref,omitempty"`
	Description string          `json:"description,omitempty"`
}

type Line struct {
	ItemID      uuid.UUID       `json:"item_id"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	ImageRef    string          `json:"image_ref,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the unsubmitted selection for one table session.
type Cart struct {
	TableID   uuid.UUID `json:"table_id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(tableID uuid.UUID) Cart {
	return Cart{TableID: tableID, Lines: []Line{}}
}

// MaxQuantity caps a single line so totals stay far from overflow.
const MaxQuantity = 1000

// AddItem inserts a line or increments the existing one. Quantities are
// clamped to [1, MaxQuantity] and so is the running line total.
func (c *Cart) AddItem(item Item, quantity int) {
	quantity = clamp(quantity)
	for i := range c.Lines {
		if c.Lines[i].ItemID == item.ID {
			c.Lines[i].Quantity = min(c.Lines[i].Quantity+quantity, MaxQuantity)
			c.touch()
			return
		}
	}
	c.Lines = append(c.Lines, Line{
		ItemID:      item.ID,
		Name:        item.Name,
		UnitPrice:   item.UnitPrice,
		Quantity:    quantity,
		ImageRef:    item.ImageRef,
		Description: item.Description,
	})
	c.touch()
}

// UpdateQuantity replaces a line's quantity; zero or less removes it.
// Unknown items are ignored.
func (c *Cart) UpdateQuantity(itemID uuid.UUID, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(itemID)
		return
	}
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			c.Lines[i].Quantity = min(quantity, MaxQuantity)
			c.touch()
			return
		}
	}
}

func (c *Cart) RemoveItem(itemID uuid.UUID) {
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.touch()
			return
		}
	}
}

// Subtract takes submitted lines out of the cart. Anything added after the
// submission was read, or beyond the submitted quantity, stays.
func (c *Cart) Subtract(submitted []Line) {
	for _, s := range submitted {
		for i := range c.Lines {
			if c.Lines[i].ItemID != s.ItemID {
				continue
			}
			if c.Lines[i].Quantity <= s.Quantity {
				c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			} else {
				c.Lines[i].Quantity -= s.Quantity
			}
			c.touch()
			break
		}
	}
}

func (c Cart) TotalItems() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Total())
	}
	return total
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}

func clamp(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return min(quantity, MaxQuantity)
}

// Package demo holds the fixture restaurant used by the seeding hooks and
// the utils CLI.
package demo

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const SeedID = "demo_restaurant_v1"

var RestaurantID = uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0001")

var Restaurant = struct {
	Name            string
	TaxRatePercent  decimal.Decimal
	CurrencySymbol  string
	PrepTimeMinutes int
}{
	Name:            "Tableside Demo",
	TaxRatePercent:  decimal.RequireFromString("7.7"),
	CurrencySymbol:  "CHF",
	PrepTimeMinutes: 20,
}

type Table struct {
	ID       uuid.UUID
	Number   string
	Capacity int
	Status   string
}

var Tables = []Table{
	{ID: uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0101"), Number: "T1", Capacity: 2, Status: "occupied"},
	{ID: uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0102"), Number: "T2", Capacity: 4, Status: "occupied"},
	{ID: uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0103"), Number: "T3", Capacity: 4, Status: "occupied"},
	{ID: uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0104"), Number: "T4", Capacity: 6, Status: "available"},
	{ID: uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0105"), Number: "T5", Capacity: 2, Status: "reserved"},
	{ID: uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0106"), Number: "T6", Capacity: 8, Status: "unavailable"},
}

type MenuItem struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	ImageRef    string
}

var Menu = []MenuItem{
	{ID: uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0201"), Name: "Margherita Pizza", Description: "Tomato, mozzarella, basil", Price: decimal.RequireFromString("22.00"), ImageRef: "menu/margherita.jpg"},
	{ID: uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0202"), Name: "Caesar Salad", Description: "Romaine, parmesan, croutons", Price: decimal.RequireFromString("16.50"), ImageRef: "menu/caesar.jpg"},
	{ID: uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0203"), Name: "Truffle Risotto", Description: "Carnaroli rice, black truffle", Price: decimal.RequireFromString("28.00"), ImageRef: "menu/risotto.jpg"},
	{ID: uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0204"), Name: "Tiramisu", Description: "Mascarpone, espresso, cocoa", Price: decimal.RequireFromString("9.50"), ImageRef: "menu/tiramisu.jpg"},
	{ID: uuid.MustParse("6f1c0a52-3b1e-4c0e-9a55-1d2a7b0c0205"), Name: "Lemonade", Description: "House made", Price: decimal.RequireFromString("5.50"), ImageRef: "menu/lemonade.jpg"},
}

type Line struct {
	Menu     int
	Quantity int
}

// Order is a demo order placed on Tables[Table] with Menu lines, already
// advanced to Status.
type Order struct {
	Table    int
	Customer string
	Lines    []Line
	Notes    string
	Status   string
	Priority string
	Age      time.Duration
}

var Orders = []Order{
	{Table: 0, Customer: "Ana", Lines: []Line{{Menu: 0, Quantity: 1}, {Menu: 1, Quantity: 1}}, Status: "pending", Priority: "normal", Age: 4 * time.Minute},
	{Table: 1, Customer: "Ben", Lines: []Line{{Menu: 2, Quantity: 2}, {Menu: 4, Quantity: 2}}, Notes: "No pepper", Status: "preparing", Priority: "high", Age: 12 * time.Minute},
	{Table: 2, Customer: "Chloe", Lines: []Line{{Menu: 0, Quantity: 2}}, Status: "ready", Priority: "normal", Age: 25 * time.Minute},
	{Table: 2, Customer: "Chloe", Lines: []Line{{Menu: 3, Quantity: 2}}, Status: "served", Priority: "normal", Age: 40 * time.Minute},
}

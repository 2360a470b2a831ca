// Package seeding writes the demo restaurant straight into the order
// service's Mongo collections.
package seeding

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/tableside/pkg/demo"
	"github.com/appetiteclub/tableside/pkg/enums/orderstatus"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RestaurantsCollection = "restaurants"
	TablesCollection      = "tables"
	MenuItemsCollection   = "menu_items"
	OrdersCollection      = "orders"
	SeedsCollection       = "_seeds"
)

// Demo orders use their own number prefix so they never collide with
// numbers handed out by the service.
const orderNumberFormat = "DEMO-%03d"

// SeedRestaurant upserts the demo restaurant, its tables, menu and orders.
// Existing documents are left untouched.
func SeedRestaurant(ctx context.Context, db *mongo.Database, now time.Time) error {
	upserts := []struct {
		collection string
		docs       []bson.M
	}{
		{RestaurantsCollection, []bson.M{RestaurantDoc(now)}},
		{TablesCollection, TableDocs(now)},
		{MenuItemsCollection, MenuDocs(now)},
		{OrdersCollection, OrderDocs(now)},
	}

	for _, u := range upserts {
		coll := db.Collection(u.collection)
		for _, doc := range u.docs {
			_, err := coll.UpdateOne(ctx,
				bson.M{"_id": doc["_id"]},
				bson.M{"$setOnInsert": doc},
				options.Update().SetUpsert(true),
			)
			if err != nil {
				return fmt.Errorf("cannot upsert %s %v: %w", u.collection, doc["_id"], err)
			}
		}
	}
	return nil
}

func RestaurantDoc(now time.Time) bson.M {
	return bson.M{
		"_id":               demo.RestaurantID.String(),
		"name":              demo.Restaurant.Name,
		"tax_rate_percent":  money(demo.Restaurant.TaxRatePercent),
		"currency_symbol":   demo.Restaurant.CurrencySymbol,
		"prep_time_minutes": demo.Restaurant.PrepTimeMinutes,
		"created_at":        now,
		"updated_at":        now,
	}
}

func TableDocs(now time.Time) []bson.M {
	docs := make([]bson.M, 0, len(demo.Tables))
	for _, t := range demo.Tables {
		docs = append(docs, bson.M{
			"_id":           t.ID.String(),
			"restaurant_id": demo.RestaurantID.String(),
			"number":        t.Number,
			"capacity":      t.Capacity,
			"status":        t.Status,
			"created_at":    now,
			"updated_at":    now,
		})
	}
	return docs
}

func MenuDocs(now time.Time) []bson.M {
	docs := make([]bson.M, 0, len(demo.Menu))
	for _, m := range demo.Menu {
		docs = append(docs, bson.M{
			"_id":           m.ID.String(),
			"restaurant_id": demo.RestaurantID.String(),
			"name":          m.Name,
			"description":   m.Description,
			"price":         money(m.Price),
			"image_ref":     m.ImageRef,
			"available":     true,
			"created_at":    now,
			"updated_at":    now,
		})
	}
	return docs
}

// OrderDocs builds the demo orders already in their target status, with
// the lifecycle timestamps that status implies.
func OrderDocs(now time.Time) []bson.M {
	docs := make([]bson.M, 0, len(demo.Orders))
	for i, o := range demo.Orders {
		docs = append(docs, orderDoc(i, o, now))
	}
	return docs
}

// OrderID is stable per position so reseeding hits the same documents.
func OrderID(position int) uuid.UUID {
	return uuid.NewSHA1(demo.RestaurantID, []byte(fmt.Sprintf("order-%d", position)))
}

func orderDoc(i int, o demo.Order, now time.Time) bson.M {
	createdAt := now.Add(-o.Age)
	table := demo.Tables[o.Table]

	subtotal := decimal.Zero
	items := make([]bson.M, 0, len(o.Lines))
	for _, line := range o.Lines {
		m := demo.Menu[line.Menu]
		subtotal = subtotal.Add(m.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, bson.M{
			"menu_item_id": m.ID.String(),
			"name":         m.Name,
			"quantity":     line.Quantity,
			"unit_price":   money(m.Price),
		})
	}
	rate := demo.Restaurant.TaxRatePercent
	tax := subtotal.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)

	status, ok := orderstatus.Parse(o.Status)
	if !ok {
		status = orderstatus.Statuses.Pending
	}

	doc := bson.M{
		"_id":                    OrderID(i).String(),
		"order_number":           fmt.Sprintf(orderNumberFormat, i+1),
		"restaurant_id":          demo.RestaurantID.String(),
		"table_id":               table.ID.String(),
		"customer_name":          o.Customer,
		"items":                  items,
		"status":                 status.Code(),
		"priority":               o.Priority,
		"estimated_time_minutes": demo.Restaurant.PrepTimeMinutes,
		"currency":               demo.Restaurant.CurrencySymbol,
		"tax_rate_percent":       money(rate),
		"subtotal":               money(subtotal),
		"tax":                    money(tax),
		"total_amount":           money(subtotal.Add(tax)),
		"version":                status.Rank,
		"created_at":             createdAt,
		"updated_at":             createdAt,
	}
	if o.Notes != "" {
		doc["special_instructions"] = o.Notes
	}

	// Each step after pending is spread evenly over the order's age.
	steps := []struct {
		status orderstatus.Status
		field  string
	}{
		{orderstatus.Statuses.Preparing, "started_at"},
		{orderstatus.Statuses.Ready, "ready_at"},
		{orderstatus.Statuses.Served, "served_at"},
		{orderstatus.Statuses.Completed, "completed_at"},
	}
	stepGap := o.Age / time.Duration(len(steps)+1)
	for n, step := range steps {
		if status.Rank < step.status.Rank {
			break
		}
		at := createdAt.Add(stepGap * time.Duration(n+1))
		doc[step.field] = at
		doc["updated_at"] = at
	}
	return doc
}

func money(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.StringFixed(2))
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

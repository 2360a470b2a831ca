package seeding

import (
	"testing"
	"time"

	"github.com/appetiteclub/tableside/pkg/demo"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var seedNow = time.Date(2026, 5, 4, 19, 30, 0, 0, time.UTC)

func TestOrderDocsTotals(t *testing.T) {
	docs := OrderDocs(seedNow)
	if len(docs) != len(demo.Orders) {
		t.Fatalf("expected %d orders, got %d", len(demo.Orders), len(docs))
	}

	// Ben: 2 x 28.00 + 2 x 5.50 = 67.00, tax 7.7% = 5.159 -> 5.16
	doc := docs[1]
	tests := []struct {
		field string
		want  string
	}{
		{field: "subtotal", want: "67.00"},
		{field: "tax", want: "5.16"},
		{field: "total_amount", want: "72.16"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got := doc[tt.field].(primitive.Decimal128)
			gotDec := decimal.RequireFromString(got.String())
			if !gotDec.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("%s = %s, want %s", tt.field, got.String(), tt.want)
			}
		})
	}
}

func TestOrderDocsTimestamps(t *testing.T) {
	docs := OrderDocs(seedNow)

	tests := []struct {
		name    string
		index   int
		present []string
		absent  []string
	}{
		{name: "pending", index: 0, absent: []string{"started_at", "ready_at", "served_at"}},
		{name: "preparing", index: 1, present: []string{"started_at"}, absent: []string{"ready_at"}},
		{name: "ready", index: 2, present: []string{"started_at", "ready_at"}, absent: []string{"served_at"}},
		{name: "served", index: 3, present: []string{"started_at", "ready_at", "served_at"}, absent: []string{"completed_at"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := docs[tt.index]
			if doc["status"] != tt.name {
				t.Fatalf("expected status %s, got %v", tt.name, doc["status"])
			}
			created := doc["created_at"].(time.Time)
			for _, field := range tt.present {
				at, ok := doc[field].(time.Time)
				if !ok {
					t.Errorf("expected %s to be set", field)
					continue
				}
				if !at.After(created) || at.After(seedNow) {
					t.Errorf("%s = %v, want between %v and %v", field, at, created, seedNow)
				}
			}
			for _, field := range tt.absent {
				if _, ok := doc[field]; ok {
					t.Errorf("expected %s to be unset", field)
				}
			}
		})
	}
}

func TestOrderIDIsStable(t *testing.T) {
	if OrderID(0) != OrderID(0) {
		t.Error("expected the same id for the same position")
	}
	if OrderID(0) == OrderID(1) {
		t.Error("expected different ids for different positions")
	}

	first := OrderDocs(seedNow)
	second := OrderDocs(seedNow.Add(time.Hour))
	for i := range first {
		if first[i]["_id"] != second[i]["_id"] {
			t.Errorf("order %d id changed between runs", i)
		}
	}
}

func TestOrderNumbersUseDemoPrefix(t *testing.T) {
	for i, doc := range OrderDocs(seedNow) {
		want := "DEMO-00" + string(rune('1'+i))
		if doc["order_number"] != want {
			t.Errorf("order %d number = %v, want %s", i, doc["order_number"], want)
		}
	}
}

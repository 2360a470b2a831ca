package board

import (
	"testing"
	"time"

	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/google/uuid"
)

func testOrder(number, status, prio string, age time.Duration) order.Order {
	return order.Order{
		ID:           uuid.New(),
		OrderNumber:  number,
		RestaurantID: restaurantID,
		Status:       status,
		Priority:     prio,
		Version:      1,
		CreatedAt:    fixedNow.Add(-age),
	}
}

func TestBuildSnapshotOrdersCards(t *testing.T) {
	oldNormal := testOrder("ORD-001", "pending", "normal", 12*time.Minute)
	newNormal := testOrder("ORD-002", "pending", "normal", 2*time.Minute)
	newHigh := testOrder("ORD-003", "pending", "high", time.Minute)
	orders := map[uuid.UUID]order.Order{
		oldNormal.ID: oldNormal,
		newNormal.ID: newNormal,
		newHigh.ID:   newHigh,
	}

	s := buildSnapshot(restaurantID, orders, nil, true, fixedNow, 20*time.Minute)

	cards := s.Lane("pending").Cards
	want := []string{"ORD-003", "ORD-001", "ORD-002"}
	if len(cards) != len(want) {
		t.Fatalf("len(cards) = %d, want %d", len(cards), len(want))
	}
	for i, number := range want {
		if cards[i].OrderNumber != number {
			t.Errorf("cards[%d] = %s, want %s", i, cards[i].OrderNumber, number)
		}
	}
	if cards[1].AgeSeconds != 720 {
		t.Errorf("AgeSeconds = %d, want 720", cards[1].AgeSeconds)
	}
}

func TestBuildSnapshotStaleFlag(t *testing.T) {
	tests := []struct {
		name      string
		age       time.Duration
		estimated int
		wantStale bool
	}{
		{name: "freshDefault", age: 5 * time.Minute, wantStale: false},
		{name: "pastDefault", age: 25 * time.Minute, wantStale: true},
		{name: "withinEstimate", age: 25 * time.Minute, estimated: 30, wantStale: false},
		{name: "pastEstimate", age: 12 * time.Minute, estimated: 10, wantStale: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOrder("ORD-001", "preparing", "normal", tt.age)
			o.EstimatedTimeMinutes = tt.estimated

			s := buildSnapshot(restaurantID, map[uuid.UUID]order.Order{o.ID: o}, nil, true, fixedNow, 20*time.Minute)

			card, ok := s.Find(o.ID)
			if !ok {
				t.Fatal("card missing")
			}
			if card.Stale != tt.wantStale {
				t.Errorf("Stale = %v, want %v", card.Stale, tt.wantStale)
			}
		})
	}
}

func TestBuildSnapshotOverlaysPendingCommands(t *testing.T) {
	o := testOrder("ORD-001", "pending", "normal", time.Minute)
	cmd := &command{orderID: o.ID, from: o.CurrentStatus()}
	cmd.target, _ = o.CurrentStatus().Next()

	s := buildSnapshot(restaurantID, map[uuid.UUID]order.Order{o.ID: o}, map[uuid.UUID]*command{o.ID: cmd}, true, fixedNow, 0)

	if s.Count("pending") != 0 || s.Count("preparing") != 1 {
		t.Errorf("counts pending=%d preparing=%d, want 0 and 1", s.Count("pending"), s.Count("preparing"))
	}
	card, _ := s.Find(o.ID)
	if !card.Syncing {
		t.Error("card not marked syncing")
	}
	if s.Lane("pending").Label != "New" {
		t.Errorf("pending label = %q, want New", s.Lane("pending").Label)
	}
}

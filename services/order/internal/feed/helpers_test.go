package feed

import (
	"testing"
	"time"

	"github.com/appetiteclub/tableside/pkg/event"
)

func addedEvent(restaurantID, orderID string) event.OrderEvent {
	return event.OrderEvent{
		Kind: event.EventOrderAdded,
		Added: &event.OrderAddedEvent{
			OrderEventMetadata: event.OrderEventMetadata{
				EventType:    event.EventOrderAdded,
				OccurredAt:   time.Now().UTC(),
				RestaurantID: restaurantID,
				OrderID:      orderID,
			},
			OrderNumber: "ORD-001",
			Status:      "pending",
		},
	}
}

func updatedEvent(restaurantID, orderID, status string, version int) event.OrderEvent {
	return event.OrderEvent{
		Kind: event.EventOrderUpdated,
		Updated: &event.OrderUpdatedEvent{
			OrderEventMetadata: event.OrderEventMetadata{
				EventType:    event.EventOrderUpdated,
				OccurredAt:   time.Now().UTC(),
				RestaurantID: restaurantID,
				OrderID:      orderID,
			},
			Status:  status,
			Version: version,
		},
	}
}

func encode(t *testing.T, evt event.OrderEvent) []byte {
	t.Helper()
	data, err := evt.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return data
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

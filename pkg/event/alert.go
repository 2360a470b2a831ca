package event

import "time"

const (
	KitchenAlertsExchange = "kitchen_alerts"
	EventNewOrdersAlert   = "kitchen.alert.new_orders"
)

// NewOrdersAlert asks kitchen displays to play the new-order sound and show
// a toast. It is advisory and never changes persisted state.
type NewOrdersAlert struct {
	EventType    string    `json:"event_type"`
	OccurredAt   time.Time `json:"occurred_at"`
	RestaurantID string    `json:"restaurant_id"`
	NewOrders    int       `json:"new_orders"`
	PendingCount int       `json:"pending_count"`
	Message      string    `json:"message"`
}
